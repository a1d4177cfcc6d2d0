package audio

import (
	"fmt"
	"os/exec"
	"strconv"
)

// Capture sources. They double as log field values and temp file prefixes.
const (
	SourceMic    = "mic"
	SourceSystem = "system"
)

// CaptureSpec describes one capture process.
type CaptureSpec struct {
	Source   string
	Channels int
	// Sink is the resolved default sink for system captures. A zero Sink
	// means the tool's own default monitor.
	Sink Sink
	Path string
}

// Tool is a capture program strategy. Implementations only build argument
// lists; the Launcher owns process lifetime.
type Tool interface {
	Name() string
	Binary() string
	Args(spec CaptureSpec) []string
}

// PWRecord captures through PipeWire's pw-record.
type PWRecord struct{}

func (PWRecord) Name() string   { return "pw-record" }
func (PWRecord) Binary() string { return "pw-record" }

func (PWRecord) Args(spec CaptureSpec) []string {
	var args []string
	if spec.Source == SourceSystem {
		if spec.Sink.ID != "" {
			// pw-record records the monitor when targeting a sink.
			args = append(args, "--target="+spec.Sink.ID)
		} else {
			args = append(args, "-P", "{ stream.capture.sink=true }")
		}
	}
	return append(args,
		"--channels="+strconv.Itoa(spec.Channels),
		"--format=s16",
		"--rate="+strconv.Itoa(SampleRate),
		spec.Path,
	)
}

// Parec captures through PulseAudio's parec, writing a WAV container.
type Parec struct{}

func (Parec) Name() string   { return "parec" }
func (Parec) Binary() string { return "parec" }

func (Parec) Args(spec CaptureSpec) []string {
	var args []string
	if spec.Source == SourceSystem {
		device := spec.Sink.MonitorSource()
		if device == "" {
			device = "@DEFAULT_MONITOR@"
		}
		args = append(args, "--device="+device)
	}
	return append(args,
		"--channels="+strconv.Itoa(spec.Channels),
		"--format=s16le",
		"--rate="+strconv.Itoa(SampleRate),
		"--file-format=wav",
		spec.Path,
	)
}

// ToolsFor returns the ordered tool strategies for a capture_tool setting.
func ToolsFor(setting string) ([]Tool, error) {
	switch setting {
	case "", "auto":
		return []Tool{PWRecord{}, Parec{}}, nil
	case "pw-record":
		return []Tool{PWRecord{}}, nil
	case "parec":
		return []Tool{Parec{}}, nil
	}
	return nil, fmt.Errorf("unknown capture tool %q", setting)
}

// toolProbe picks the first installed tool. The result is computed once.
type toolProbe struct {
	tools    []Tool
	lookPath func(string) (string, error)

	tool Tool
	path string
	err  error
}

func (p *toolProbe) probe() {
	lookPath := p.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, t := range p.tools {
		path, err := lookPath(t.Binary())
		if err == nil {
			p.tool, p.path = t, path
			return
		}
	}
	p.err = ErrNoCaptureTool
}
