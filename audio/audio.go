// Package audio records microphone and system audio through external
// PipeWire/PulseAudio capture processes and mixes dual-source sessions with
// FFmpeg.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Fixed capture profile: WAV, signed 16-bit PCM, 48 kHz.
const (
	SampleRate     = 48000
	BitDepth       = 16
	MicChannels    = 1
	SystemChannels = 2
)

// queryTimeout bounds each pactl query.
const queryTimeout = 2 * time.Second

// Mode selects which sources a session captures.
type Mode string

const (
	ModeMic      Mode = "mic"
	ModeSystem   Mode = "system"
	ModeCombined Mode = "combined"
)

// Modes lists every recording mode.
var Modes = []Mode{ModeMic, ModeSystem, ModeCombined}

// ParseMode converts a config or flag value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMic:
		return ModeMic, nil
	case ModeSystem:
		return ModeSystem, nil
	case ModeCombined, "dual", "both":
		return ModeCombined, nil
	}
	return "", fmt.Errorf("unknown recording mode %q (want mic, system or combined)", s)
}

// Dual reports whether the mode captures two sources.
func (m Mode) Dual() bool { return m == ModeCombined }

// NeedsMic reports whether the microphone is captured.
func (m Mode) NeedsMic() bool { return m == ModeMic || m == ModeCombined }

// NeedsSystem reports whether the system output monitor is captured.
func (m Mode) NeedsSystem() bool { return m == ModeSystem || m == ModeCombined }

// Runner runs a short query command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with queryTimeout applied on top of ctx.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), ctx.Err())
		}
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
