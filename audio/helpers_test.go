//go:build !windows

package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// Fake capture scripts. Arguments: $1 output path, $2 channels, $3 source,
// $4 target sink id.
const (
	// Writes until interrupted, then exits cleanly.
	scriptGraceful = `trap 'exit 0' INT; : > "$1"; while :; do printf '0123456789abcdef0123456789abcdef' >> "$1"; sleep 0.02; done`
	// Ignores SIGINT, exits on SIGTERM.
	scriptTermOnly = `trap '' INT; trap 'exit 0' TERM; : > "$1"; while :; do sleep 0.02; done`
	// Ignores everything that can be ignored.
	scriptStubborn = `trap '' INT TERM; : > "$1"; while :; do sleep 0.02; done`
)

var testEscalation = Escalation{Interrupt: 300 * time.Millisecond, Terminate: 300 * time.Millisecond}

// fakeTool runs a shell script in place of pw-record.
type fakeTool struct {
	script string
}

func (fakeTool) Name() string   { return "fake" }
func (fakeTool) Binary() string { return "sh" }

func (f fakeTool) Args(spec CaptureSpec) []string {
	return []string{"-c", f.script, "fake", spec.Path, strconv.Itoa(spec.Channels), spec.Source, spec.Sink.ID}
}

type mixCall struct {
	mic, system, out string
}

// fakeMixer records calls and writes a marker file on success.
type fakeMixer struct {
	checkErr error
	mixErr   error

	mu    sync.Mutex
	calls []mixCall
}

func (m *fakeMixer) Check() error { return m.checkErr }

func (m *fakeMixer) Mix(_ context.Context, mic, system, out string) error {
	m.mu.Lock()
	m.calls = append(m.calls, mixCall{mic, system, out})
	m.mu.Unlock()
	if m.mixErr != nil {
		return m.mixErr
	}
	return os.WriteFile(out, []byte("mixed"), 0o644)
}

func (m *fakeMixer) Calls() []mixCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mixCall(nil), m.calls...)
}

// fakeRunner answers pactl queries from a table keyed by the joined args.
type fakeRunner struct {
	mu      sync.Mutex
	answers map[string]string
	fail    map[string]bool
	calls   []string
}

func newFakeRunner(answers map[string]string) *fakeRunner {
	return &fakeRunner{answers: answers, fail: map[string]bool{}}
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if f.fail[key] {
		return nil, errors.New("exit status 1")
	}
	out, ok := f.answers[key]
	if !ok {
		return nil, errors.New("no such command")
	}
	return []byte(out), nil
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRunner) setFail(key string, fail bool) {
	f.mu.Lock()
	f.fail[key] = fail
	f.mu.Unlock()
}

// startScript spawns a fake capture writing to a temp file.
func startScript(t *testing.T, script string) *Handle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.wav")
	h, err := spawn(SourceMic, "fake", "sh", fakeTool{script}.Args(CaptureSpec{Source: SourceMic, Channels: 1, Path: path}), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = h.Kill()
		_ = h.Wait()
	})
	waitForFile(t, path)
	return h
}

// waitForFile waits until the script has created path, which happens after
// its traps are installed.
func waitForFile(t *testing.T, path string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond, "capture never created %s", path)
}

func newTestRecorder(t *testing.T, script string, mixer Mixer, opts ...Option) *Recorder {
	t.Helper()
	runner := newFakeRunner(map[string]string{
		"pactl get-default-sink": "alsa_output.speaker\n",
		"pactl list sinks short": "57\talsa_output.speaker\tPipeWire\ts16le 2ch 48000Hz\tRUNNING\n",
	})
	launcher := NewLauncher(
		WithTools(fakeTool{script}),
		WithResolver(NewSinkResolver(runner.Run)),
		WithSettleDelay(10*time.Millisecond),
		WithLaunchEscalation(testEscalation),
	)
	all := append([]Option{
		WithLauncher(launcher),
		WithMixer(mixer),
		WithEscalation(testEscalation),
	}, opts...)
	return NewRecorder(all...)
}

// writeWAV writes a 16 bit PCM file holding frames frames.
func writeWAV(t *testing.T, path string, frames, channels int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, SampleRate, BitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: SampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: BitDepth,
	}
	for i := range buf.Data {
		buf.Data[i] = (i % 200) - 100
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}
