// Package voice talks to the external voice-automation host through its
// plain-text file mailbox: commands are written to one file, replies are
// polled from another. The host's own binary formats are its business; this
// side only ever reads and writes small text files.
package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"prospector/internal/log"
)

const (
	commandFile = "prospector_command.txt"
	statusFile  = "prospector_status.txt"
)

// ErrTimeout means the host did not answer within the polling window.
var ErrTimeout = errors.New("voice host did not respond")

// Mailbox exchanges request/response text files with the voice host.
type Mailbox struct {
	dir          string
	pollInterval time.Duration
	timeout      time.Duration
}

// NewMailbox creates a mailbox rooted at dir.
func NewMailbox(dir string, pollInterval, timeout time.Duration) *Mailbox {
	return &Mailbox{dir: dir, pollInterval: pollInterval, timeout: timeout}
}

// Send writes one command and polls for the host's status reply. The status
// file is consumed (removed) once read so a stale reply cannot satisfy the
// next command.
func (m *Mailbox) Send(ctx context.Context, command string) (string, error) {
	if m.dir == "" {
		return "", fmt.Errorf("voice mailbox directory not configured")
	}
	statusPath := filepath.Join(m.dir, statusFile)
	_ = os.Remove(statusPath)

	cmdPath := filepath.Join(m.dir, commandFile)
	if err := os.WriteFile(cmdPath, []byte(command+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write voice command: %w", err)
	}
	log.Debug().Str("command", command).Msg("Voice command written")

	deadline := time.Now().Add(m.timeout)
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		data, err := os.ReadFile(statusPath)
		if err == nil && len(data) > 0 {
			_ = os.Remove(statusPath)
			return strings.TrimSpace(string(data)), nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, m.timeout)
		}
	}
}
