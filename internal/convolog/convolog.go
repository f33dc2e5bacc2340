package convolog

import (
	"fmt"
	"io"
	"strings"

	"SelfChat/internal/telemetry"
)

// Log appends self-triggered exchanges to a plain text file.
// Each entry is written with a single Write, so concurrent entries never interleave.
type Log struct {
	w      io.WriteCloser
	prefix string
}

// Open appends to path, rotating it at 10 MB. name heads each entry's delimiter line.
func Open(path, name string) *Log {
	return New(telemetry.RotatingFile(path), name)
}

func New(w io.WriteCloser, name string) *Log {
	return &Log{w: w, prefix: name + " " + strings.Repeat("-", 40)}
}

func (l *Log) Record(message, response string) error {
	entry := fmt.Sprintf("%s\nSelf-Triggered Message: %s\nSelf-Triggered Response: %s\n\n", l.prefix, message, response)
	if _, err := io.WriteString(l.w, entry); err != nil {
		return fmt.Errorf("failed to write conversation log: %w", err)
	}
	return nil
}

func (l *Log) Close() error {
	return l.w.Close()
}
