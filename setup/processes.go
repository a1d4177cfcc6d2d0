package setup

import (
	"context"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/micha/meeting-notes/logging"
)

// captureNames are processes a crashed recorder may have left behind.
var captureNames = map[string]bool{
	"pw-record": true,
	"parec":     true,
}

// CaptureProcess is a running capture tool.
type CaptureProcess struct {
	PID     int32
	Name    string
	Cmdline string
	// Orphaned is true when the parent is gone (reparented to init).
	Orphaned bool
}

// ProcessLister returns the running processes. It exists so tests can run
// without scanning the real process table.
type ProcessLister func(ctx context.Context) ([]*process.Process, error)

// StrayCaptures lists capture tool processes not started by this process.
func StrayCaptures(ctx context.Context, list ProcessLister) ([]CaptureProcess, error) {
	if list == nil {
		list = process.ProcessesWithContext
	}
	procs, err := list(ctx)
	if err != nil {
		return nil, err
	}

	self := int32(os.Getpid())
	skipped := 0
	var found []CaptureProcess
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			skipped++
			continue
		}
		if !captureNames[strings.ToLower(name)] {
			continue
		}
		ppid, _ := p.PpidWithContext(ctx)
		if ppid == self {
			continue
		}
		cmdline, _ := p.CmdlineWithContext(ctx)
		found = append(found, CaptureProcess{
			PID:      p.Pid,
			Name:     name,
			Cmdline:  cmdline,
			Orphaned: ppid == 1,
		})
	}

	if skipped > 0 {
		logging.L("setup").Debugw("process scan skipped processes", "skipped", skipped, "total", len(procs))
	}
	return found, nil
}
