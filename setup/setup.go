// Package setup checks that the external audio tools are installed and
// offers to install missing ones.
package setup

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
)

// Tool is an external program the recorder shells out to.
type Tool struct {
	Binary string
	// Purpose is shown to the user.
	Purpose string
	// Packages maps a package manager name to the package providing Binary.
	Packages map[string]string
}

// Tools lists every program the recorder can use.
var Tools = []Tool{
	{
		Binary:  "pw-record",
		Purpose: "PipeWire capture (preferred)",
		Packages: map[string]string{
			"apt-get": "pipewire-bin", "dnf": "pipewire-utils", "pacman": "pipewire", "zypper": "pipewire-tools",
		},
	},
	{
		Binary:  "parec",
		Purpose: "PulseAudio capture (fallback)",
		Packages: map[string]string{
			"apt-get": "pulseaudio-utils", "dnf": "pulseaudio-utils", "pacman": "libpulse", "zypper": "pulseaudio-utils",
		},
	},
	{
		Binary:  "pactl",
		Purpose: "device lookup",
		Packages: map[string]string{
			"apt-get": "pulseaudio-utils", "dnf": "pulseaudio-utils", "pacman": "libpulse", "zypper": "pulseaudio-utils",
		},
	},
	{
		Binary:  "ffmpeg",
		Purpose: "mixing combined recordings",
		Packages: map[string]string{
			"apt-get": "ffmpeg", "dnf": "ffmpeg", "pacman": "ffmpeg", "zypper": "ffmpeg",
		},
	},
}

// Check is the result of probing one tool.
type Check struct {
	Tool Tool
	Path string
	Err  error
}

func (c Check) OK() bool { return c.Err == nil }

// Report summarizes a probe of all tools.
type Report struct {
	Checks []Check
}

// CanCapture reports whether at least one capture tool is installed.
func (r Report) CanCapture() bool {
	return r.found("pw-record") || r.found("parec")
}

// CanMix reports whether combined recordings can be mixed.
func (r Report) CanMix() bool {
	return r.found("ffmpeg")
}

func (r Report) found(binary string) bool {
	for _, c := range r.Checks {
		if c.Tool.Binary == binary {
			return c.OK()
		}
	}
	return false
}

// Missing returns the tools that were not found.
func (r Report) Missing() []Tool {
	var tools []Tool
	for _, c := range r.Checks {
		if !c.OK() {
			tools = append(tools, c.Tool)
		}
	}
	return tools
}

// Doctor probes and installs tools.
type Doctor struct {
	LookPath func(string) (string, error)
	// Run executes install commands; tests replace it.
	Run func(*exec.Cmd) error
}

func NewDoctor() *Doctor {
	return &Doctor{LookPath: exec.LookPath}
}

func (d *Doctor) run(cmd *exec.Cmd) error {
	if d.Run != nil {
		return d.Run(cmd)
	}
	return cmd.Run()
}

// Probe looks up every tool.
func (d *Doctor) Probe() Report {
	var r Report
	for _, t := range Tools {
		path, err := d.LookPath(t.Binary)
		r.Checks = append(r.Checks, Check{Tool: t, Path: path, Err: err})
	}
	return r
}

// Print writes a human readable report.
func (r Report) Print(out io.Writer) {
	for _, c := range r.Checks {
		if c.OK() {
			fmt.Fprintf(out, "✔ %-10s %s (%s)\n", c.Tool.Binary, c.Path, c.Tool.Purpose)
		} else {
			fmt.Fprintf(out, "✘ %-10s not found (%s)\n", c.Tool.Binary, c.Tool.Purpose)
		}
	}
	if !r.CanCapture() {
		fmt.Fprintln(out, "No capture tool found: install pw-record or parec.")
	}
	if !r.CanMix() {
		fmt.Fprintln(out, "Combined recording is unavailable without ffmpeg.")
	}
}

// EnsureEnvironment offers to install every missing tool and probes again.
func (d *Doctor) EnsureEnvironment(scanner *bufio.Scanner, out io.Writer) (Report, error) {
	report := d.Probe()
	missing := report.Missing()
	if len(missing) == 0 {
		return report, nil
	}

	pm, ok := detectPackageManager(d.LookPath)
	if !ok {
		return report, fmt.Errorf("no supported package manager found; install %s manually", binaries(missing))
	}

	installed := map[string]bool{}
	for _, t := range missing {
		pkg, ok := t.Packages[pm.Name]
		if !ok || installed[pkg] {
			continue
		}
		fmt.Fprintf(out, "%s is missing (%s).\n", t.Binary, t.Purpose)
		if err := d.InstallDependency(scanner, out, pkg); err != nil {
			fmt.Fprintf(out, "Could not install %s: %v\n", pkg, err)
			continue
		}
		installed[pkg] = true
	}

	return d.Probe(), nil
}

func binaries(tools []Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Binary)
	}
	return names
}
