package journal

import (
	"bufio"
	"bytes"
	"fmt"
	"hash/fnv"
	"io"
	"os"
)

// maxLineSize bounds one journal line; real records are well under 64KB.
const maxLineSize = 1 << 20

// ReadResult is the outcome of one incremental read of a journal file.
type ReadResult struct {
	// Lines holds every complete line read, without trailing newlines.
	Lines [][]byte
	// Offset is the byte position after the last complete line consumed.
	// A trailing line with no newline (still being written by the game) is
	// not consumed; the next read resumes from this offset and picks it up
	// once it is finished.
	Offset int64
}

// ReadLines reads complete lines from path starting at offset. It never
// treats a partial final line as an error.
func ReadLines(path string, offset int64) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek journal %s to %d: %w", path, offset, err)
		}
	}

	res := &ReadResult{Offset: offset}
	r := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := readLine(r)
		if err == io.EOF {
			// Incomplete trailing line: leave it for the next run.
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("read journal %s: %w", path, err)
		}
		res.Offset += int64(len(line))
		line = bytes.TrimRight(line, "\r\n")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		res.Lines = append(res.Lines, line)
	}
}

// readLine accumulates one line across buffer refills, giving up before an
// oversized line is ever fully buffered. The returned slice is owned by the
// caller.
func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		frag, err := r.ReadSlice('\n')
		line = append(line, frag...)
		switch {
		case err == nil:
			return line, nil
		case err == bufio.ErrBufferFull:
			if len(line) > maxLineSize {
				return nil, fmt.Errorf("line exceeds %d bytes", maxLineSize)
			}
		default:
			return line, err
		}
	}
}

// FirstLineHash fingerprints a journal file by its first line. Journals are
// append-only, so a changed first line means the path was rotated or
// truncated and any stored offset for it is stale. Returns "" for an empty
// or unreadable file.
func FirstLineHash(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	line, err := bufio.NewReaderSize(f, 64*1024).ReadBytes('\n')
	if len(line) == 0 && err != nil {
		return ""
	}
	h := fnv.New64a()
	h.Write(bytes.TrimRight(line, "\r\n"))
	return fmt.Sprintf("%016x", h.Sum64())
}
