// Package main provides the pcbdrill command line.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/piwi3910/pcbdrill/internal/project"
	"github.com/piwi3910/pcbdrill/internal/report"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	settingsPath string
	rackFile     string
	profilesPath string
	verbose      bool
	noColor      bool
}

func main() {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "pcbdrill",
		Short:         "PCB drill and rack planner",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&opts.settingsPath, "settings", project.DefaultSettingsPath(), "settings file (TOML)")
	rootCmd.PersistentFlags().StringVar(&opts.rackFile, "rack-file", "", "rack file (default from settings)")
	rootCmd.PersistentFlags().StringVar(&opts.profilesPath, "profiles", project.DefaultProfilesPath(), "custom GCode profiles file (JSON)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "plain output")

	rootCmd.AddCommand(newPlanCmd(opts))
	rootCmd.AddCommand(newRackCmd(opts))
	rootCmd.AddCommand(newWearCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))
	rootCmd.AddCommand(newBackupCmd(opts))
	rootCmd.AddCommand(newProfilesCmd(opts))

	return rootCmd
}

func (o *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *globalOptions) settings() (model.Settings, error) {
	s, err := project.LoadSettings(o.settingsPath)
	if err != nil {
		return model.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return s, nil
}

func (o *globalOptions) renderer(w io.Writer) *report.Renderer {
	return report.New(w, !o.noColor && report.ShouldUseColor(w))
}

// parseWhat reads a comma separated selection of pth, npth, outline or all.
func parseWhat(s string) (model.MachiningWhat, error) {
	var what model.MachiningWhat
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "pth":
			what |= model.DrillPTH
		case "npth":
			what |= model.DrillNPTH
		case "drill":
			what |= model.DrillAll
		case "outline", "edge":
			what |= model.RouteOutline
		case "all":
			what |= model.DrillAndRouteAll
		default:
			return 0, fmt.Errorf("unknown --what value %q (use pth, npth, outline or all)", part)
		}
	}
	if what == 0 {
		return 0, fmt.Errorf("--what selects nothing")
	}
	return what, nil
}

// warningsFromStrings wraps plain messages as operator warnings.
func warningsFromStrings(msgs []string) []model.Warning {
	out := make([]model.Warning, len(msgs))
	for i, m := range msgs {
		out[i] = model.Warning{Summary: m}
	}
	return out
}
