package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/micha/meeting-notes/logging"
)

var recLog = logging.L("recorder")

// State is the recorder's position in its session lifecycle.
type State int

const (
	StateIdle State = iota
	StateRecordingSingle
	StateRecordingDual
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecordingSingle:
		return "recording"
	case StateRecordingDual:
		return "recording (dual)"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is the single recording owned by a Recorder.
type Session struct {
	ID         string
	Mode       Mode
	OutputPath string
	StartedAt  time.Time

	handles []*Handle
	temps   *Artifacts
}

// Handles returns the capture processes of the session.
func (s *Session) Handles() []*Handle { return s.handles }

// Result describes a finished session.
type Result struct {
	OutputPath string
	Mode       Mode
	Duration   time.Duration
	// Mixed is true when a combined session was mixed into OutputPath.
	Mixed bool
	// MixErr is why a combined session has no mixed output.
	MixErr      error
	KeptTemps   []string
	ForcedKills int
}

// Recorder owns at most one session and drives it from start to stop.
// Start, Stop and Cancel must not be called concurrently with each other;
// IsActive, State and Current may be called from any goroutine.
type Recorder struct {
	launcher   *Launcher
	mixer      Mixer
	keepTemps  bool
	escalation Escalation
	now        func() time.Time

	mu       sync.Mutex
	session  *Session
	starting bool
	stopping bool
}

type Option func(*Recorder)

// WithKeepTemps retains the per-source files of combined sessions.
func WithKeepTemps(keep bool) Option {
	return func(r *Recorder) { r.keepTemps = keep }
}

func WithEscalation(esc Escalation) Option {
	return func(r *Recorder) { r.escalation = esc }
}

func WithMixer(m Mixer) Option {
	return func(r *Recorder) { r.mixer = m }
}

func WithLauncher(l *Launcher) Option {
	return func(r *Recorder) { r.launcher = l }
}

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		escalation: DefaultEscalation,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.launcher == nil {
		r.launcher = NewLauncher(WithLaunchEscalation(r.escalation))
	}
	if r.mixer == nil {
		r.mixer = NewFFmpegMixer()
	}
	return r
}

// Start begins a session recording to outputPath. The lock is not held
// while the captures launch, so IsActive and State stay responsive.
func (r *Recorder) Start(ctx context.Context, mode Mode, outputPath string) (*Session, error) {
	r.mu.Lock()
	if r.session != nil || r.starting {
		r.mu.Unlock()
		return nil, ErrAlreadyRecording
	}
	r.starting = true
	r.mu.Unlock()

	s, err := r.start(ctx, mode, outputPath)

	r.mu.Lock()
	r.session = s
	r.starting = false
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	recLog.Infow("recording started",
		logging.KeySession, s.ID,
		logging.KeyMode, mode,
		logging.KeyPath, outputPath,
	)
	return s, nil
}

func (r *Recorder) start(ctx context.Context, mode Mode, outputPath string) (*Session, error) {
	if mode.Dual() {
		if err := r.mixer.Check(); err != nil {
			return nil, err
		}
	}
	created, err := mkdirAll(filepath.Dir(outputPath))
	if err != nil {
		return nil, fmt.Errorf("%w: create output directory: %v", ErrSpawnFailure, err)
	}

	handles, temps, err := r.launcher.Start(ctx, mode, outputPath)
	if err != nil {
		removeDirs(created)
		return nil, err
	}

	return &Session{
		ID:         uuid.NewString(),
		Mode:       mode,
		OutputPath: outputPath,
		StartedAt:  r.now(),
		handles:    handles,
		temps:      temps,
	}, nil
}

// mkdirAll is os.MkdirAll that returns the directories it created,
// deepest first.
func mkdirAll(dir string) ([]string, error) {
	var missing []string
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		if _, err := os.Stat(d); err == nil {
			break
		}
		missing = append(missing, d)
		if filepath.Dir(d) == d {
			break
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return missing, nil
}

// removeDirs removes directories that are still empty.
func removeDirs(dirs []string) {
	for _, d := range dirs {
		if err := os.Remove(d); err != nil {
			recLog.Debugw("could not remove directory", logging.KeyPath, d, logging.KeyError, err)
			return
		}
	}
}

// Stop ends the session. Combined sessions are mixed into the output path;
// a failed mix is reported in Result.MixErr, not as an error. When a source
// is missing no mix is attempted and the remaining temp file is kept.
func (r *Recorder) Stop(ctx context.Context) (*Result, error) {
	s, err := r.release()
	if err != nil {
		return nil, err
	}
	defer r.clear()

	log := recLog.With(logging.KeySession, s.ID, logging.KeyMode, s.Mode)
	log.Info("stopping recording")

	res := &Result{
		OutputPath:  s.OutputPath,
		Mode:        s.Mode,
		Duration:    r.now().Sub(s.StartedAt),
		ForcedKills: r.stopAll(s.handles),
	}

	if s.temps != nil {
		if err := s.temps.Ready(); err != nil {
			// Without a mix the surviving capture is the only copy.
			res.MixErr = err
			res.KeptTemps = s.temps.Existing()
			log.Errorw("mixing skipped", logging.KeyError, err, "kept", res.KeptTemps)
		} else {
			res.MixErr = r.mixer.Mix(ctx, s.temps.Mic, s.temps.System, s.OutputPath)
			res.Mixed = res.MixErr == nil
			if res.MixErr != nil {
				log.Errorw("mixing failed", logging.KeyError, res.MixErr)
			}
			res.KeptTemps = s.temps.Dispose(r.keepTemps)
		}
	}

	log.Infow("recording stopped", logging.KeyPath, s.OutputPath, "duration", res.Duration)
	return res, nil
}

// Cancel ends the session without mixing and always removes temp files.
// It returns the output path so the caller can discard it.
func (r *Recorder) Cancel() (string, error) {
	s, err := r.release()
	if err != nil {
		return "", err
	}
	defer r.clear()

	recLog.Infow("cancelling recording", logging.KeySession, s.ID)
	r.stopAll(s.handles)
	if s.temps != nil {
		s.temps.Dispose(false)
	}
	return s.OutputPath, nil
}

// release marks the owned session as stopping and returns it.
func (r *Recorder) release() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.stopping {
		return nil, ErrNotRecording
	}
	r.stopping = true
	return r.session, nil
}

func (r *Recorder) clear() {
	r.mu.Lock()
	r.session = nil
	r.stopping = false
	r.mu.Unlock()
}

// stopAll stops every handle concurrently and returns how many needed SIGKILL.
func (r *Recorder) stopAll(handles []*Handle) int {
	forced := make([]bool, len(handles))
	var g errgroup.Group
	for i, h := range handles {
		g.Go(func() error {
			forced[i] = StopProcess(h, r.escalation)
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, f := range forced {
		if f {
			n++
		}
	}
	return n
}

// IsActive reports whether any capture process of the session still runs.
// A session whose processes were killed externally is inactive but stays
// owned until Stop or Cancel.
func (r *Recorder) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return false
	}
	for _, h := range r.session.handles {
		if h.Alive() {
			return true
		}
	}
	return false
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.session == nil:
		return StateIdle
	case r.session.temps != nil:
		return StateRecordingDual
	default:
		return StateRecordingSingle
	}
}

// Current returns the owned session, or nil when idle.
func (r *Recorder) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Launcher exposes the launcher for tool and log queries.
func (r *Recorder) Launcher() *Launcher { return r.launcher }
