package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/micha/meeting-notes/logging"
)

// GrowthWatcher tracks write activity on capture files so a capture that
// stopped producing audio can be noticed while recording.
type GrowthWatcher struct {
	w       *fsnotify.Watcher
	started time.Time

	mu    sync.Mutex
	last  map[string]time.Time
	close sync.Once
}

// NewGrowthWatcher watches the directories holding paths. Only events for
// the given paths are recorded.
func NewGrowthWatcher(paths ...string) (*GrowthWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	g := &GrowthWatcher{
		w:       w,
		started: time.Now(),
		last:    make(map[string]time.Time, len(paths)),
	}
	dirs := map[string]bool{}
	for _, p := range paths {
		p = filepath.Clean(p)
		g.last[p] = time.Time{}
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return g, nil
}

// Run records events until ctx is done or the watcher is closed.
func (g *GrowthWatcher) Run(ctx context.Context) {
	log := logging.L("watcher")
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-g.w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			g.touch(filepath.Clean(event.Name))
		case err, ok := <-g.w.Errors:
			if !ok {
				return
			}
			log.Debugw("watcher error", logging.KeyError, err)
		}
	}
}

func (g *GrowthWatcher) touch(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.last[path]; ok {
		g.last[path] = time.Now()
	}
}

// LastWrite returns when path was last written, if it has been.
func (g *GrowthWatcher) LastWrite(path string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.last[filepath.Clean(path)]
	return t, !t.IsZero()
}

// Stalled reports whether path has seen no write for longer than d. A file
// never written counts from when the watcher was created.
func (g *GrowthWatcher) Stalled(path string, d time.Duration) bool {
	t, ok := g.LastWrite(path)
	if !ok {
		t = g.started
	}
	return time.Since(t) > d
}

func (g *GrowthWatcher) Close() error {
	var err error
	g.close.Do(func() { err = g.w.Close() })
	return err
}
