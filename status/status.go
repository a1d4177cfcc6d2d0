// Package status publishes the recorder state to a small shell-style file
// that status bars such as Waybar can source or poll.
package status

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// State is the published recorder state.
type State string

const (
	Idle       State = "idle"
	Recording  State = "recording"
	Processing State = "processing"
)

// Status is the content of the status file.
type Status struct {
	State    State
	Title    string
	Duration time.Duration
	// ShowDuration writes DURATION even when it is zero.
	ShowDuration bool
}

// FormatDuration renders d as mm:ss; hours roll into the minutes.
func FormatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func (s Status) encode() string {
	var b strings.Builder
	fmt.Fprintf(&b, "STATUS=%s\n", strconv.Quote(string(s.State)))
	if s.Title != "" {
		fmt.Fprintf(&b, "TITLE=%s\n", strconv.Quote(s.Title))
	}
	if s.Duration > 0 || s.ShowDuration {
		fmt.Fprintf(&b, "DURATION=%q\n", FormatDuration(s.Duration))
	}
	return b.String()
}

// File writes status updates to one path. A File with an empty path
// discards every update.
type File struct {
	Path string
}

// Write replaces the file atomically so readers never see a partial status.
func (f File) Write(s Status) error {
	if f.Path == "" {
		return nil
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("create status file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(s.encode()); err != nil {
		tmp.Close()
		return fmt.Errorf("write status file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("replace status file: %w", err)
	}
	return nil
}

// Read parses a status file written by Write.
func Read(path string) (Status, error) {
	file, err := os.Open(path)
	if err != nil {
		return Status{}, err
	}
	defer file.Close()

	var s Status
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, raw, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		value, err := strconv.Unquote(raw)
		if err != nil {
			value = raw
		}
		switch key {
		case "STATUS":
			s.State = State(value)
		case "TITLE":
			s.Title = value
		case "DURATION":
			d, err := parseDuration(value)
			if err != nil {
				return Status{}, fmt.Errorf("bad DURATION %q: %w", value, err)
			}
			s.Duration = d
			s.ShowDuration = true
		}
	}
	if err := scanner.Err(); err != nil {
		return Status{}, err
	}
	if s.State == "" {
		return Status{}, fmt.Errorf("%s: no STATUS line", path)
	}
	return s, nil
}

func parseDuration(mmss string) (time.Duration, error) {
	m, s, ok := strings.Cut(mmss, ":")
	if !ok {
		return 0, fmt.Errorf("want mm:ss")
	}
	mins, err := strconv.Atoi(m)
	if err != nil {
		return 0, err
	}
	secs, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second, nil
}
