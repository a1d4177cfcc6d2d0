package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"github.com/micha/meeting-notes/logging"
)

// MixTimeout bounds a single ffmpeg mix.
const MixTimeout = 30 * time.Second

// Both inputs are boosted before mixing; amix without normalization keeps
// the levels of a quiet microphone next to loud system audio.
const mixFilter = "[0:a]volume=2.0[a0];[1:a]volume=2.0[a1];" +
	"[a0][a1]amix=inputs=2:duration=longest:normalize=0[out]"

// stderrTail is how much ffmpeg output is kept in a mix error.
const stderrTail = 512

// Mixer combines the microphone and system captures into one stereo file.
type Mixer interface {
	// Check reports ErrMixerUnavailable if Mix cannot run at all.
	Check() error
	Mix(ctx context.Context, micPath, systemPath, outPath string) error
}

// FFmpegMixer mixes with the ffmpeg binary.
type FFmpegMixer struct {
	Binary  string
	Timeout time.Duration
}

func NewFFmpegMixer() *FFmpegMixer {
	return &FFmpegMixer{Binary: "ffmpeg", Timeout: MixTimeout}
}

func (m *FFmpegMixer) Check() error {
	if _, err := exec.LookPath(m.Binary); err != nil {
		return fmt.Errorf("%w: %v", ErrMixerUnavailable, err)
	}
	return nil
}

func mixArgs(micPath, systemPath, outPath string) []string {
	return []string{
		"-i", micPath,
		"-i", systemPath,
		"-filter_complex", mixFilter,
		"-map", "[out]",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(SystemChannels),
		"-y", outPath,
	}
}

// Mix runs ffmpeg and validates that the result is a WAV file with audio.
func (m *FFmpegMixer) Mix(ctx context.Context, micPath, systemPath, outPath string) error {
	log := logging.L("mixer").With(logging.KeyPath, outPath)

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = MixTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.Binary, mixArgs(micPath, systemPath, outPath)...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	log.Infow("mixing audio sources", "mic", micPath, "system", systemPath)
	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: ffmpeg timed out after %s", ErrMixFailure, timeout)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrMixFailure, ctx.Err())
		}
		return fmt.Errorf("%w: ffmpeg: %v: %s", ErrMixFailure, err, tail(stderr.String(), stderrTail))
	}

	d, err := validateWAV(outPath)
	if err != nil {
		return err
	}
	log.Infow("mix complete", "duration", d, "took", time.Since(start))
	return nil
}

// validateWAV returns the audio duration of path.
func validateWAV(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMixFailure, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", ErrMixFailure, path, err)
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 || dec.BitDepth == 0 {
		return 0, fmt.Errorf("%w: %s is not a valid WAV file", ErrMixFailure, path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("%w: %s has no sample data: %v", ErrEmptyMix, path, err)
	}
	pcm := dec.PCMLen()
	if pcm <= 0 {
		return 0, ErrEmptyMix
	}
	bytesPerSec := int64(dec.SampleRate) * int64(dec.NumChans) * int64(dec.BitDepth/8)
	return time.Duration(pcm * int64(time.Second) / bytesPerSec), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
