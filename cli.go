package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/micha/meeting-notes/audio"
	"github.com/micha/meeting-notes/audio/native"
	"github.com/micha/meeting-notes/hotkey"
	"github.com/micha/meeting-notes/logging"
	"github.com/micha/meeting-notes/monitor"
	"github.com/micha/meeting-notes/status"
)

// stallWarning is how long a capture file may go without writes before
// the user is warned.
const stallWarning = 5 * time.Second

var (
	recordMode    string
	recordOutput  string
	recordTitle   string
	recordKeep    bool
	recordHotkeys bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a meeting",
	Long: `Start recording. Press Enter (or F9 with --hotkeys) to stop and save,
type c and Enter (or F10) to cancel and discard. Ctrl+C and SIGTERM stop and save.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecord(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordMode, "mode", "m", "", "recording mode: mic, system or combined (default from config)")
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "output WAV file (default: <recordings_dir>/<timestamp>.wav)")
	recordCmd.Flags().StringVarP(&recordTitle, "title", "t", "", "meeting title shown in the status file")
	recordCmd.Flags().BoolVar(&recordKeep, "keep-temp", false, "keep the per-source files of combined recordings")
	recordCmd.Flags().BoolVar(&recordHotkeys, "hotkeys", false, "listen for F9 (stop) and F10 (cancel) system-wide")
}

// action is what the user asked the running session to do.
type action int

const (
	actionNone action = iota
	actionStop
	actionCancel
)

// parseInput maps a line typed during recording to an action.
func parseInput(line string) action {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "c", "cancel":
		return actionCancel
	case "", "s", "stop", "q":
		return actionStop
	}
	return actionNone
}

func hotkeyAction(code uint16) action {
	switch code {
	case hotkey.KeyF9:
		return actionStop
	case hotkey.KeyF10:
		return actionCancel
	}
	return actionNone
}

func runRecord(ctx context.Context, out io.Writer) error {
	log := logging.L("cli")

	modeName := recordMode
	if modeName == "" {
		modeName = cfg.RecordingMode
	}
	mode, err := audio.ParseMode(modeName)
	if err != nil {
		return err
	}
	output := recordOutput
	if output == "" {
		output = newRecordingPath(cfg.RecordingsDir, time.Now())
	}

	tools, err := audio.ToolsFor(cfg.CaptureTool)
	if err != nil {
		return err
	}
	launcher := audio.NewLauncher(audio.WithTools(tools...), audio.WithLogDir(logDir()))
	rec := audio.NewRecorder(
		audio.WithLauncher(launcher),
		audio.WithKeepTemps(recordKeep || cfg.KeepTempFiles),
	)

	info := audio.NewPactlDescriber(nil, native.Namer{}).Describe(ctx, mode)
	printDevices(out, info)

	sess, err := rec.Start(ctx, mode, output)
	if err != nil {
		return err
	}
	if tool, _, err := launcher.Tool(); err == nil {
		fmt.Fprintf(out, "Recording with %s to %s\n", tool.Name(), output)
	}

	statusFile := status.File{Path: cfg.StatusFile}
	publish(statusFile, status.Status{State: status.Recording, Title: recordTitle, ShowDuration: true})

	sessCtx, stopSession := context.WithCancel(ctx)
	defer stopSession()

	for _, h := range sess.Handles() {
		followCaptureLog(sessCtx, launcher.CaptureLog(h.Source), h.Source)
	}

	watcher := watchCaptures(sessCtx, sess)
	if watcher != nil {
		defer watcher.Close()
	}

	events := sessionEvents{
		input: readInput(sessCtx, os.Stdin),
	}
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	events.signals = signals

	if recordHotkeys {
		hk := hotkey.NewListener(hotkey.KeyF9, hotkey.KeyF10)
		go func() {
			if err := hk.Start(sessCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warnw("hotkeys unavailable", logging.KeyError, err)
				fmt.Fprintf(out, "\nHotkeys unavailable: %v\n", err)
			}
		}()
		events.hotkeys = hk.KeyPressed()
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	events.tick = ticker.C

	fmt.Fprintln(out, "Press Enter to stop, or type c and Enter to cancel.")

	s := &session{
		rec:     rec,
		started: sess.StartedAt,
		title:   recordTitle,
		status:  statusFile,
		out:     out,
		watcher: watcher,
		paths:   capturePaths(sess),
	}
	return s.run(ctx, events)
}

// sessionRecorder is the part of audio.Recorder a running session drives.
type sessionRecorder interface {
	Stop(ctx context.Context) (*audio.Result, error)
	Cancel() (string, error)
	IsActive() bool
}

type sessionEvents struct {
	input   <-chan action
	signals <-chan os.Signal
	hotkeys <-chan uint16
	tick    <-chan time.Time
}

// session waits for the user and then stops or cancels the recording.
type session struct {
	rec     sessionRecorder
	started time.Time
	title   string
	status  status.File
	out     io.Writer

	watcher *audio.GrowthWatcher
	paths   []string
	warned  map[string]bool
}

func (s *session) run(ctx context.Context, ev sessionEvents) error {
	log := logging.L("cli")
	for {
		select {
		case <-ctx.Done():
			return s.stop(context.Background())
		case sig := <-ev.signals:
			log.Infow("received signal, stopping", "signal", sig.String())
			return s.stop(ctx)
		case a, ok := <-ev.input:
			if !ok {
				ev.input = nil
				continue
			}
			switch a {
			case actionStop:
				return s.stop(ctx)
			case actionCancel:
				return s.cancel()
			}
		case code := <-ev.hotkeys:
			fmt.Fprintf(s.out, "\n[%s]\n", hotkey.KeyName(code))
			switch hotkeyAction(code) {
			case actionStop:
				return s.stop(ctx)
			case actionCancel:
				return s.cancel()
			}
		case <-ev.tick:
			elapsed := time.Since(s.started)
			publish(s.status, status.Status{State: status.Recording, Title: s.title, Duration: elapsed, ShowDuration: true})
			fmt.Fprintf(s.out, "\rRecording %s ", status.FormatDuration(elapsed))
			if !s.rec.IsActive() {
				log.Warn("all capture processes exited")
				fmt.Fprintln(s.out, "\nCapture stopped unexpectedly; saving what was recorded.")
				return s.stop(ctx)
			}
			s.checkStalls()
		}
	}
}

func (s *session) checkStalls() {
	if s.watcher == nil {
		return
	}
	if s.warned == nil {
		s.warned = map[string]bool{}
	}
	for _, p := range s.paths {
		if !s.warned[p] && s.watcher.Stalled(p, stallWarning) {
			s.warned[p] = true
			logging.L("cli").Warnw("capture file is not growing", logging.KeyPath, p)
			fmt.Fprintf(s.out, "\nWarning: no audio written to %s for %s\n", p, stallWarning)
		}
	}
}

func (s *session) stop(ctx context.Context) error {
	fmt.Fprintln(s.out, "\nStopping...")
	publish(s.status, status.Status{State: status.Processing, Title: s.title})
	defer publish(s.status, status.Status{State: status.Idle})

	res, err := s.rec.Stop(ctx)
	if err != nil {
		return err
	}
	printResult(s.out, res)

	if res.Mode.Dual() && !res.Mixed {
		return fmt.Errorf("recording not saved: %w", res.MixErr)
	}
	return outputReady(res.OutputPath)
}

func (s *session) cancel() error {
	fmt.Fprintln(s.out, "\nCancelling...")
	defer publish(s.status, status.Status{State: status.Idle})

	path, err := s.rec.Cancel()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.L("cli").Warnw("could not remove cancelled recording", logging.KeyPath, path, logging.KeyError, err)
	}
	fmt.Fprintln(s.out, "Recording cancelled.")
	return nil
}

func publish(f status.File, st status.Status) {
	if err := f.Write(st); err != nil {
		logging.L("status").Warnw("failed to write status file", logging.KeyError, err)
	}
}

// readInput turns lines on r into actions. EOF ends the channel without an
// action so a recorder started without a terminal keeps running.
func readInput(ctx context.Context, r io.Reader) <-chan action {
	ch := make(chan action)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			a := parseInput(scanner.Text())
			if a == actionNone {
				continue
			}
			select {
			case ch <- a:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func followCaptureLog(ctx context.Context, path, source string) {
	if path == "" {
		return
	}
	mon, err := monitor.NewMonitor(path, monitor.FromStart())
	if err != nil {
		logging.L("cli").Debugw("not following capture log", logging.KeyPath, path, logging.KeyError, err)
		return
	}
	capLog := logging.L("capture").With("source", source)
	go func() {
		defer mon.Stop()
		mon.Forward(ctx, func(line string) { capLog.Debug(line) })
	}()
}

func capturePaths(sess *audio.Session) []string {
	var paths []string
	for _, h := range sess.Handles() {
		paths = append(paths, h.Path)
	}
	return paths
}

func watchCaptures(ctx context.Context, sess *audio.Session) *audio.GrowthWatcher {
	w, err := audio.NewGrowthWatcher(capturePaths(sess)...)
	if err != nil {
		logging.L("cli").Debugw("capture watcher unavailable", logging.KeyError, err)
		return nil
	}
	go w.Run(ctx)
	return w
}

func printDevices(out io.Writer, info audio.DeviceInfo) {
	fmt.Fprintf(out, "Mode: %s\n", info.Mode)
	if info.Mic != "" {
		fmt.Fprintf(out, "  Microphone: %s\n", info.Mic)
	}
	if info.System != "" {
		fmt.Fprintf(out, "  System:     %s\n", info.System)
	}
}

func printResult(out io.Writer, res *audio.Result) {
	fmt.Fprintf(out, "Recorded %s (%s)\n", status.FormatDuration(res.Duration), res.Mode)
	if res.ForcedKills > 0 {
		fmt.Fprintf(out, "Warning: %d capture process(es) had to be killed; audio may be truncated.\n", res.ForcedKills)
	}
	if res.Mode.Dual() {
		if res.Mixed {
			fmt.Fprintln(out, "Mixed microphone and system audio.")
		} else {
			fmt.Fprintf(out, "Mixing failed: %v\n", res.MixErr)
		}
	}
	for _, p := range res.KeptTemps {
		fmt.Fprintf(out, "Kept %s\n", p)
	}
	fmt.Fprintf(out, "Saved to %s\n", res.OutputPath)
}
