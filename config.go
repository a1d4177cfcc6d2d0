package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/micha/meeting-notes/audio"
	"github.com/micha/meeting-notes/audio/native"
	"github.com/micha/meeting-notes/config"
	"github.com/micha/meeting-notes/logging"
	"github.com/micha/meeting-notes/setup"
	"github.com/micha/meeting-notes/status"
)

var (
	configForce   bool
	doctorInstall bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.Path()
		}
		if fileExists(path) && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Show the devices each recording mode would use",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		describer := audio.NewPactlDescriber(nil, native.Namer{})
		for _, mode := range []audio.Mode{audio.ModeMic, audio.ModeSystem, audio.ModeCombined} {
			printDevices(out, describer.Describe(ctx, mode))
		}

		sink := audio.NewSinkResolver(nil).Resolve(ctx)
		if sink.ID != "" {
			fmt.Fprintf(out, "\nDefault sink: %s (id %s, monitor %s)\n", sink.Name, sink.ID, sink.MonitorSource())
		} else {
			fmt.Fprintln(out, "\nDefault sink: unknown, capture tools will use their own default")
		}

		sources, err := audio.ListSources(ctx, nil)
		if err != nil {
			logging.L("cli").Debugw("pactl source listing failed", logging.KeyError, err)
			sources, err = native.Names(true)
			if err != nil {
				return fmt.Errorf("listing sources: %w", err)
			}
		}
		fmt.Fprintln(out, "\nSources:")
		for _, s := range sources {
			fmt.Fprintf(out, "  %s\n", s)
		}
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the capture and mixing tools are installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		doctor := setup.NewDoctor()

		var report setup.Report
		if doctorInstall {
			var err error
			report, err = doctor.EnsureEnvironment(bufio.NewScanner(os.Stdin), out)
			if err != nil {
				return err
			}
		} else {
			report = doctor.Probe()
		}
		report.Print(out)

		strays, err := setup.StrayCaptures(cmd.Context(), nil)
		if err != nil {
			logging.L("cli").Warnw("could not scan processes", logging.KeyError, err)
		}
		printStrays(out, strays)

		if !report.CanCapture() {
			return errors.New("no capture tool available")
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the published recorder status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := status.Read(cfg.StatusFile)
		if errors.Is(err, os.ErrNotExist) {
			st = status.Status{State: status.Idle}
		} else if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	doctorCmd.Flags().BoolVar(&doctorInstall, "install", false, "offer to install missing tools")
}

func printStrays(out io.Writer, strays []setup.CaptureProcess) {
	if len(strays) == 0 {
		return
	}
	fmt.Fprintln(out, "\nCapture processes not owned by this recorder:")
	for _, p := range strays {
		note := ""
		if p.Orphaned {
			note = " (orphaned)"
		}
		fmt.Fprintf(out, "  %d %s%s\n", p.PID, p.Cmdline, note)
	}
}

func printStatus(out io.Writer, st status.Status) {
	fmt.Fprint(out, st.State)
	if st.Title != "" {
		fmt.Fprintf(out, " %q", st.Title)
	}
	if st.ShowDuration || st.Duration > 0 {
		fmt.Fprintf(out, " %s", status.FormatDuration(st.Duration))
	}
	fmt.Fprintln(out)
}
