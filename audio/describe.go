package audio

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/micha/meeting-notes/logging"
	"github.com/micha/meeting-notes/parser"
)

// Labels used when no device can be named.
const (
	DefaultMicLabel     = "System default"
	DefaultMonitorLabel = "System default (monitor)"
)

const monitorSuffix = " (monitor)"

// DeviceInfo names the devices a session in Mode will capture from. Fields
// for sources the mode does not use are empty.
type DeviceInfo struct {
	Mode   Mode
	Mic    string
	System string
}

// Describer produces human readable device labels. Implementations never
// fail; they fall back to generic labels.
type Describer interface {
	Describe(ctx context.Context, mode Mode) DeviceInfo
}

// DeviceNamer reports default device names without pactl.
type DeviceNamer interface {
	DefaultCapture() (string, error)
	DefaultPlayback() (string, error)
}

// PactlDescriber scrapes pactl listings for device descriptions. When pactl
// is not installed, Fallback (if set) is asked for default device names.
type PactlDescriber struct {
	Run      Runner
	Fallback DeviceNamer
	LookPath func(string) (string, error)
}

func NewPactlDescriber(run Runner, fallback DeviceNamer) *PactlDescriber {
	if run == nil {
		run = ExecRunner
	}
	return &PactlDescriber{Run: run, Fallback: fallback, LookPath: exec.LookPath}
}

func (d *PactlDescriber) Describe(ctx context.Context, mode Mode) DeviceInfo {
	info := DeviceInfo{Mode: mode}

	if d.LookPath != nil {
		if _, err := d.LookPath("pactl"); err != nil {
			return d.describeFallback(mode)
		}
	}

	if mode.NeedsMic() {
		info.Mic = d.label(ctx, "source", "sources")
		if info.Mic == "" {
			info.Mic = DefaultMicLabel
		}
	}
	if mode.NeedsSystem() {
		info.System = d.label(ctx, "sink", "sinks")
		if info.System == "" {
			info.System = DefaultMonitorLabel
		} else {
			info.System += monitorSuffix
		}
	}
	return info
}

// label returns the description of the default device of kind, the raw
// device name if no description is listed, or "" if nothing is known.
func (d *PactlDescriber) label(ctx context.Context, kind, plural string) string {
	out, err := d.Run(ctx, "pactl", "get-default-"+kind)
	if err != nil {
		devLog.Debugw("default device query failed", "kind", kind, logging.KeyError, err)
		return ""
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return ""
	}

	listing, err := d.Run(ctx, "pactl", "list", plural)
	if err != nil {
		devLog.Debugw("device listing failed", "kind", kind, logging.KeyError, err)
		return name
	}
	if desc, ok := parser.FindDescription(string(listing), name); ok {
		return desc
	}
	return name
}

func (d *PactlDescriber) describeFallback(mode Mode) DeviceInfo {
	info := DeviceInfo{Mode: mode}
	if mode.NeedsMic() {
		info.Mic = DefaultMicLabel
		if name, err := namer(d.Fallback, true); err == nil {
			info.Mic = name
		}
	}
	if mode.NeedsSystem() {
		info.System = DefaultMonitorLabel
		if name, err := namer(d.Fallback, false); err == nil {
			info.System = name + monitorSuffix
		}
	}
	return info
}

var errNoNamer = errors.New("no device namer")

func namer(n DeviceNamer, capture bool) (string, error) {
	if n == nil {
		return "", errNoNamer
	}
	var (
		name string
		err  error
	)
	if capture {
		name, err = n.DefaultCapture()
	} else {
		name, err = n.DefaultPlayback()
	}
	if err != nil {
		devLog.Debugw("native device lookup failed", logging.KeyError, err)
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", errNoNamer
	}
	return strings.TrimSpace(name), nil
}
