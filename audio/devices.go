package audio

import (
	"context"
	"strings"
	"sync"

	"github.com/micha/meeting-notes/logging"
	"github.com/micha/meeting-notes/parser"
)

var devLog = logging.L("devices")

// Sink identifies a PulseAudio/PipeWire output device.
type Sink struct {
	ID   string
	Name string
}

// MonitorSource is the name of the virtual source mirroring the sink.
func (s Sink) MonitorSource() string {
	if s.Name == "" {
		return ""
	}
	return s.Name + ".monitor"
}

// SinkResolver looks up the default output device once and keeps the answer
// for the life of the process. A default sink changed mid-run is not noticed.
type SinkResolver struct {
	run Runner

	mu   sync.Mutex
	sink *Sink
}

func NewSinkResolver(run Runner) *SinkResolver {
	if run == nil {
		run = ExecRunner
	}
	return &SinkResolver{run: run}
}

// ResolveDefaultSink returns the numeric id of the default sink, or "" when
// it cannot be determined and the capture tool should use its own default.
func (r *SinkResolver) ResolveDefaultSink(ctx context.Context) string {
	return r.Resolve(ctx).ID
}

// Resolve returns the default sink. Only successful lookups are cached.
func (r *SinkResolver) Resolve(ctx context.Context) Sink {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sink != nil {
		return *r.sink
	}

	out, err := r.run(ctx, "pactl", "get-default-sink")
	if err != nil {
		devLog.Warnw("could not detect default sink, using system default", logging.KeyError, err)
		return Sink{}
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		devLog.Warn("pactl reported no default sink, using system default")
		return Sink{}
	}

	listing, err := r.run(ctx, "pactl", "list", "sinks", "short")
	if err != nil {
		devLog.Warnw("could not list sinks, using system default", "sink", name, logging.KeyError, err)
		return Sink{}
	}
	id, ok := parser.FindID(string(listing), name)
	if !ok {
		devLog.Warnw("default sink missing from sink list, using system default", "sink", name)
		return Sink{}
	}

	devLog.Infow("found default sink", "sink", name, "id", id)
	r.sink = &Sink{ID: id, Name: name}
	return *r.sink
}

// ListSources returns the names of all capture sources, monitors included.
func ListSources(ctx context.Context, run Runner) ([]string, error) {
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, "pactl", "list", "sources", "short")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range parser.ParseShort(string(out)) {
		names = append(names, e.Name)
	}
	return names, nil
}
