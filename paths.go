package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/micha/meeting-notes/audio"
	"github.com/micha/meeting-notes/config"
)

// logDir holds the application log and the capture tool logs.
func logDir() string {
	return config.Dir()
}

// newRecordingPath names a recording after its start time. If a file with
// that name exists, a numeric suffix is added.
func newRecordingPath(dir string, now time.Time) string {
	base := now.Format(audio.TimestampLayout)
	path := filepath.Join(dir, base+".wav")
	for i := 2; fileExists(path); i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s-%d.wav", base, i))
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// outputReady checks the recording exists and is more than a bare header.
func outputReady(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("recording %s was not written: %w", path, err)
	}
	if fi.Size() <= 44 {
		return fmt.Errorf("recording %s is empty", path)
	}
	return nil
}
