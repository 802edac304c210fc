package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes formatted entries to a destination writer (stderr by
// default), guarded by a mutex since multiple goroutines may log concurrently.
type ConsoleOutput struct {
	mu  sync.Mutex
	dst io.Writer
}

// NewConsoleOutput returns a ConsoleOutput writing to os.Stderr.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{dst: os.Stderr} }

func (c *ConsoleOutput) writer() io.Writer {
	if c.dst == nil {
		return os.Stderr
	}
	return c.dst
}

func (c *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.writer().Write(formatted)
	return err
}

func (c *ConsoleOutput) Close() error { return nil }

// NullOutput discards every entry; useful in tests that only assert on
// returned errors, not on log content.
type NullOutput struct{}

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error               { return nil }
