package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/micha/meeting-notes/logging"
)

// SettleDelay gives freshly started captures time to open their devices.
const SettleDelay = 100 * time.Millisecond

var launchLog = logging.L("launcher")

// Launcher starts the capture processes for a session.
type Launcher struct {
	resolver   *SinkResolver
	logDir     string
	settle     time.Duration
	escalation Escalation
	now        func() time.Time

	once  sync.Once
	probe toolProbe

	// startProcess is spawn; tests replace it to fail one source.
	startProcess func(source, toolName, binary string, args []string, path string, logFile *os.File) (*Handle, error)
}

type LauncherOption func(*Launcher)

// WithTools replaces the default [pw-record, parec] strategies.
func WithTools(tools ...Tool) LauncherOption {
	return func(l *Launcher) { l.probe.tools = tools }
}

// WithLookPath replaces exec.LookPath for tool probing.
func WithLookPath(fn func(string) (string, error)) LauncherOption {
	return func(l *Launcher) { l.probe.lookPath = fn }
}

// WithResolver sets the sink resolver used for system captures.
func WithResolver(r *SinkResolver) LauncherOption {
	return func(l *Launcher) { l.resolver = r }
}

// WithLogDir makes every capture write its output to
// <dir>/capture-<source>.log.
func WithLogDir(dir string) LauncherOption {
	return func(l *Launcher) { l.logDir = dir }
}

func WithSettleDelay(d time.Duration) LauncherOption {
	return func(l *Launcher) { l.settle = d }
}

// WithLaunchEscalation sets how a half-started combined session is stopped.
func WithLaunchEscalation(esc Escalation) LauncherOption {
	return func(l *Launcher) { l.escalation = esc }
}

func WithClock(now func() time.Time) LauncherOption {
	return func(l *Launcher) { l.now = now }
}

func NewLauncher(opts ...LauncherOption) *Launcher {
	l := &Launcher{
		settle:       SettleDelay,
		escalation:   DefaultEscalation,
		now:          time.Now,
		startProcess: spawn,
	}
	l.probe.tools = []Tool{PWRecord{}, Parec{}}
	for _, opt := range opts {
		opt(l)
	}
	if l.resolver == nil {
		l.resolver = NewSinkResolver(nil)
	}
	return l
}

// Tool returns the capture tool in use and its resolved path. The probe
// runs once; later calls return the cached answer.
func (l *Launcher) Tool() (Tool, string, error) {
	l.once.Do(l.probe.probe)
	return l.probe.tool, l.probe.path, l.probe.err
}

// CaptureLog returns the log file path of a source, or "" without a log dir.
func (l *Launcher) CaptureLog(source string) string {
	if l.logDir == "" {
		return ""
	}
	return filepath.Join(l.logDir, "capture-"+source+".log")
}

// Start launches the captures for mode. Single modes write straight to
// outputPath; combined mode writes two temp files that are returned as
// Artifacts and must be mixed into outputPath later.
func (l *Launcher) Start(ctx context.Context, mode Mode, outputPath string) ([]*Handle, *Artifacts, error) {
	tool, path, err := l.Tool()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSpawnFailure, err)
	}

	var sink Sink
	if mode.NeedsSystem() {
		sink = l.resolver.Resolve(ctx)
	}

	switch mode {
	case ModeMic:
		h, err := l.spawn(tool, path, CaptureSpec{Source: SourceMic, Channels: MicChannels, Path: outputPath})
		if err != nil {
			return nil, nil, err
		}
		return []*Handle{h}, nil, nil
	case ModeSystem:
		h, err := l.spawn(tool, path, CaptureSpec{Source: SourceSystem, Channels: SystemChannels, Sink: sink, Path: outputPath})
		if err != nil {
			return nil, nil, err
		}
		return []*Handle{h}, nil, nil
	case ModeCombined:
		return l.startCombined(ctx, tool, path, sink, outputPath)
	}
	return nil, nil, fmt.Errorf("%w: unknown mode %q", ErrSpawnFailure, mode)
}

func (l *Launcher) startCombined(ctx context.Context, tool Tool, path string, sink Sink, outputPath string) ([]*Handle, *Artifacts, error) {
	temps := NewArtifacts(outputPath, l.now())
	specs := []CaptureSpec{
		{Source: SourceMic, Channels: MicChannels, Path: temps.Mic},
		{Source: SourceSystem, Channels: SystemChannels, Sink: sink, Path: temps.System},
	}

	handles := make([]*Handle, len(specs))
	var g errgroup.Group
	for i, spec := range specs {
		g.Go(func() error {
			h, err := l.spawn(tool, path, spec)
			handles[i] = h
			return err
		})
	}
	if err := g.Wait(); err != nil {
		for _, h := range handles {
			if h != nil {
				StopProcess(h, l.escalation)
			}
		}
		temps.Dispose(false)
		return nil, nil, err
	}

	if l.settle > 0 {
		t := time.NewTimer(l.settle)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
	return handles, temps, nil
}

func (l *Launcher) spawn(tool Tool, path string, spec CaptureSpec) (*Handle, error) {
	logFile, err := l.openCaptureLog(spec.Source)
	if err != nil {
		launchLog.Warnw("could not open capture log", "source", spec.Source, logging.KeyError, err)
	}

	h, err := l.startProcess(spec.Source, tool.Name(), path, tool.Args(spec), spec.Path, logFile)
	if err != nil {
		return nil, err
	}
	launchLog.Infow("capture started",
		"source", spec.Source,
		logging.KeyTool, tool.Name(),
		logging.KeyPid, h.Pid(),
		logging.KeyPath, spec.Path,
		"sink", spec.Sink.ID,
	)
	return h, nil
}

func (l *Launcher) openCaptureLog(source string) (*os.File, error) {
	p := l.CaptureLog(source)
	if p == "" {
		return nil, nil
	}
	if err := os.MkdirAll(l.logDir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return f, nil
}
