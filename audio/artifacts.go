package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/micha/meeting-notes/logging"
)

// TimestampLayout names recordings and their temp files.
const TimestampLayout = "2006-01-02-150405"

// Artifacts are the two per-source temp files of a combined session.
type Artifacts struct {
	Mic    string
	System string
}

// NewArtifacts names the temp files next to outputPath.
func NewArtifacts(outputPath string, now time.Time) *Artifacts {
	dir := filepath.Dir(outputPath)
	ts := now.Format(TimestampLayout)
	return &Artifacts{
		Mic:    filepath.Join(dir, "temp-"+SourceMic+"-"+ts+".wav"),
		System: filepath.Join(dir, "temp-"+SourceSystem+"-"+ts+".wav"),
	}
}

func (a *Artifacts) Paths() []string {
	return []string{a.Mic, a.System}
}

// Ready checks that both captures left a file. A file holding only a
// header is still mixed; the mixer pads the shorter stream with silence.
func (a *Artifacts) Ready() error {
	var errs []error
	for _, p := range a.Paths() {
		if _, err := os.Stat(p); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrMissingSource, filepath.Base(p), err))
		}
	}
	return errors.Join(errs...)
}

// Existing returns the temp files that are on disk.
func (a *Artifacts) Existing() []string {
	var paths []string
	for _, p := range a.Paths() {
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

// Dispose removes the temp files unless keep is set, in which case the
// existing files are returned. Removal errors are logged and ignored.
func (a *Artifacts) Dispose(keep bool) []string {
	log := logging.L("artifacts")
	if keep {
		kept := a.Existing()
		if len(kept) > 0 {
			log.Infow("keeping temp files", "paths", kept)
		}
		return kept
	}
	for _, p := range a.Paths() {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Debugw("could not remove temp file", logging.KeyPath, p, logging.KeyError, err)
		}
	}
	return nil
}
