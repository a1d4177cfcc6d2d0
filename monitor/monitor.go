// Package monitor follows log files written by external capture tools.
package monitor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nxadm/tail"
)

// Monitor watches a file for new lines
type Monitor struct {
	filePath string
	tail     *tail.Tail
}

// Option adjusts how the file is followed.
type Option func(*tail.Config)

// FromStart reads the file from the beginning instead of only new lines.
func FromStart() Option {
	return func(c *tail.Config) {
		c.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekStart}
	}
}

// Polling checks the file for changes by polling instead of inotify.
func Polling() Option {
	return func(c *tail.Config) { c.Poll = true }
}

// NewMonitor starts following filePath. The file does not have to exist
// yet; capture tools create it when they start.
func NewMonitor(filePath string, opts ...Option) (*Monitor, error) {
	cfg := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:    tail.DiscardingLogger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	t, err := tail.TailFile(filePath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to tail file: %w", err)
	}

	return &Monitor{
		filePath: filePath,
		tail:     t,
	}, nil
}

func (m *Monitor) Path() string { return m.filePath }

// Lines returns the channel of new lines
func (m *Monitor) Lines() chan *tail.Line {
	return m.tail.Lines
}

// Forward calls fn with every non-empty line until ctx is done or the
// monitor is stopped.
func (m *Monitor) Forward(ctx context.Context, fn func(line string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-m.tail.Lines:
			if !ok {
				return
			}
			if line.Err != nil {
				continue
			}
			if text := strings.TrimSpace(line.Text); text != "" {
				fn(text)
			}
		}
	}
}

// Stop stops the monitor
func (m *Monitor) Stop() {
	m.tail.Cleanup()
	_ = m.tail.Stop()
}
