//go:build !windows

package audio

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPWRecordArgs(t *testing.T) {
	tool := PWRecord{}

	assert.Equal(t,
		[]string{"--channels=1", "--format=s16", "--rate=48000", "/r/mic.wav"},
		tool.Args(CaptureSpec{Source: SourceMic, Channels: 1, Path: "/r/mic.wav"}))

	assert.Equal(t,
		[]string{"--target=57", "--channels=2", "--format=s16", "--rate=48000", "/r/sys.wav"},
		tool.Args(CaptureSpec{Source: SourceSystem, Channels: 2, Sink: Sink{ID: "57", Name: "speaker"}, Path: "/r/sys.wav"}))

	assert.Equal(t,
		[]string{"-P", "{ stream.capture.sink=true }", "--channels=2", "--format=s16", "--rate=48000", "/r/sys.wav"},
		tool.Args(CaptureSpec{Source: SourceSystem, Channels: 2, Path: "/r/sys.wav"}))
}

func TestParecArgs(t *testing.T) {
	tool := Parec{}

	assert.Equal(t,
		[]string{"--channels=1", "--format=s16le", "--rate=48000", "--file-format=wav", "/r/mic.wav"},
		tool.Args(CaptureSpec{Source: SourceMic, Channels: 1, Path: "/r/mic.wav"}))

	assert.Equal(t,
		[]string{"--device=speaker.monitor", "--channels=2", "--format=s16le", "--rate=48000", "--file-format=wav", "/r/sys.wav"},
		tool.Args(CaptureSpec{Source: SourceSystem, Channels: 2, Sink: Sink{ID: "57", Name: "speaker"}, Path: "/r/sys.wav"}))

	assert.Equal(t, "--device=@DEFAULT_MONITOR@",
		tool.Args(CaptureSpec{Source: SourceSystem, Channels: 2, Path: "/r/sys.wav"})[0])
}

func TestToolsFor(t *testing.T) {
	tools, err := ToolsFor("auto")
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "pw-record", tools[0].Name())
	assert.Equal(t, "parec", tools[1].Name())

	tools, err = ToolsFor("parec")
	require.NoError(t, err)
	assert.Equal(t, []Tool{Parec{}}, tools)

	_, err = ToolsFor("arecord")
	assert.Error(t, err)
}

func TestLauncherProbesToolsOnce(t *testing.T) {
	var looked []string
	l := NewLauncher(WithLookPath(func(name string) (string, error) {
		looked = append(looked, name)
		if name == "parec" {
			return "/usr/bin/parec", nil
		}
		return "", errors.New("not found")
	}))

	tool, path, err := l.Tool()
	require.NoError(t, err)
	assert.Equal(t, "parec", tool.Name())
	assert.Equal(t, "/usr/bin/parec", path)

	_, _, _ = l.Tool()
	assert.Equal(t, []string{"pw-record", "parec"}, looked)
}

func TestLauncherWritesCaptureLog(t *testing.T) {
	logDir := t.TempDir()
	l := NewLauncher(
		WithTools(fakeTool{`echo "capture starting" >&2; ` + scriptGraceful}),
		WithLogDir(logDir),
		WithSettleDelay(0),
		WithLaunchEscalation(testEscalation),
	)
	out := t.TempDir() + "/mic.wav"

	handles, temps, err := l.Start(t.Context(), ModeMic, out)
	require.NoError(t, err)
	require.Len(t, handles, 1)
	assert.Nil(t, temps)
	waitForFile(t, out)

	StopProcess(handles[0], testEscalation)
	data, err := os.ReadFile(l.CaptureLog(SourceMic))
	require.NoError(t, err)
	assert.Contains(t, string(data), "capture starting")
}

func TestLauncherCombinedSpawnFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	l := NewLauncher(
		WithTools(fakeTool{scriptGraceful}),
		WithLookPath(func(string) (string, error) { return dir + "/missing-binary", nil }),
		WithSettleDelay(0),
		WithClock(func() time.Time { return time.Date(2026, 10, 19, 10, 15, 0, 0, time.Local) }),
	)

	_, _, err := l.Start(t.Context(), ModeCombined, dir+"/meeting.wav")
	assert.ErrorIs(t, err, ErrSpawnFailure)
	assert.NoFileExists(t, dir+"/temp-mic-2026-10-19-101500.wav")
	assert.NoFileExists(t, dir+"/temp-system-2026-10-19-101500.wav")
}

func TestLauncherCombinedCaptureLayout(t *testing.T) {
	runner := newFakeRunner(map[string]string{
		"pactl get-default-sink": "alsa_output.speaker\n",
		"pactl list sinks short": "57\talsa_output.speaker\tPipeWire\ts16le 2ch 48000Hz\tRUNNING\n",
	})
	// Each capture records its source, channel count and target sink.
	script := `trap 'exit 0' INT TERM; printf '%s %s %s' "$3" "$2" "$4" > "$1"; while :; do sleep 0.02; done`
	l := NewLauncher(
		WithTools(fakeTool{script}),
		WithResolver(NewSinkResolver(runner.Run)),
		WithSettleDelay(0),
		WithLaunchEscalation(testEscalation),
	)

	handles, temps, err := l.Start(t.Context(), ModeCombined, t.TempDir()+"/meeting.wav")
	require.NoError(t, err)
	require.Len(t, handles, 2)
	require.NotNil(t, temps)
	t.Cleanup(func() {
		for _, h := range handles {
			StopProcess(h, testEscalation)
		}
	})

	assert.Equal(t, SourceMic, handles[0].Source)
	assert.Equal(t, temps.Mic, handles[0].Path)
	assert.Equal(t, SourceSystem, handles[1].Source)
	assert.Equal(t, temps.System, handles[1].Path)

	contents := func(path string) string {
		data, _ := os.ReadFile(path)
		return string(data)
	}
	require.Eventually(t, func() bool {
		return contents(temps.Mic) != "" && contents(temps.System) != ""
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "mic 1 ", contents(temps.Mic))
	assert.Equal(t, "system 2 57", contents(temps.System))
}

func TestLauncherCombinedStopsStartedCaptureWhenOtherFails(t *testing.T) {
	dir := t.TempDir()
	l := NewLauncher(
		WithTools(fakeTool{scriptGraceful}),
		WithResolver(NewSinkResolver(newFakeRunner(nil).Run)),
		WithSettleDelay(0),
		WithLaunchEscalation(testEscalation),
		WithClock(func() time.Time { return time.Date(2026, 10, 19, 10, 15, 0, 0, time.Local) }),
	)
	micPath := dir + "/temp-mic-2026-10-19-101500.wav"

	var mic *Handle
	micStarted := make(chan struct{})
	l.startProcess = func(source, toolName, binary string, args []string, path string, logFile *os.File) (*Handle, error) {
		if source == SourceSystem {
			// Fail only once the mic capture is writing.
			<-micStarted
			for i := 0; i < 500; i++ {
				if _, err := os.Stat(micPath); err == nil {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			return nil, ErrSpawnFailure
		}
		h, err := spawn(source, toolName, binary, args, path, logFile)
		mic = h
		close(micStarted)
		return h, err
	}

	handles, temps, err := l.Start(t.Context(), ModeCombined, dir+"/meeting.wav")
	assert.ErrorIs(t, err, ErrSpawnFailure)
	assert.Nil(t, handles)
	assert.Nil(t, temps)

	require.NotNil(t, mic)
	assert.False(t, mic.Alive(), "the started mic capture is stopped")
	assert.NoFileExists(t, micPath)
	assert.NoFileExists(t, dir+"/temp-system-2026-10-19-101500.wav")
}
