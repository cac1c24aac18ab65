package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IsJournalFile reports whether name looks like a game journal file
// (Journal.<timestamp>.<part>.log).
func IsJournalFile(name string) bool {
	return strings.HasPrefix(name, "Journal.") && strings.HasSuffix(name, ".log")
}

// ListFiles returns the absolute paths of all journal files in dir, ordered
// by filename. Journal filenames embed a monotonically increasing timestamp,
// so lexical order is chronological order; processing must follow it so ring
// metadata seen in an earlier session can enrich hotspots found in a later
// one.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list journal dir %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsJournalFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// NewestFile returns the most recent journal file in dir, or "" when the
// directory holds none.
func NewestFile(dir string) (string, error) {
	paths, err := ListFiles(dir)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", nil
	}
	return paths[len(paths)-1], nil
}
