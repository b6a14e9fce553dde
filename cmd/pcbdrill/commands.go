package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piwi3910/pcbdrill/internal/importer"
	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/piwi3910/pcbdrill/internal/project"
	"github.com/piwi3910/pcbdrill/internal/rack"
	"github.com/piwi3910/pcbdrill/internal/store"
)

func newWearCmd(global *globalOptions) *cobra.Command {
	var dbPath string
	var runs int
	cmd := &cobra.Command{
		Use:   "wear",
		Short: "Show cumulative bit use from the wear log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open wear log: %w", err)
			}
			defer func() {
				if cerr := st.Close(); cerr != nil {
					global.logger(cmd.ErrOrStderr()).Error("failed to close wear log", "err", cerr)
				}
			}()

			totals, err := st.BitWear(cmd.Context())
			if err != nil {
				return err
			}
			out := global.renderer(cmd.OutOrStdout())
			out.Wear(totals)
			if runs > 0 {
				list, err := st.ListRuns(cmd.Context(), runs)
				if err != nil {
					return err
				}
				out.Runs(list)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", store.DefaultPath(), "wear log database")
	cmd.Flags().IntVar(&runs, "runs", 0, "also list the last N runs")
	return cmd
}

func newImportCmd(global *globalOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Convert a CSV, Excel or DXF hole list into a board file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := global.logger(cmd.ErrOrStderr())
			res := importer.Import(args[0])
			for _, e := range res.Errors {
				logger.Error("import error", "file", args[0], "problem", e)
			}
			if !res.OK() {
				return fmt.Errorf("failed to import %s: %d errors", args[0], len(res.Errors))
			}

			plated, unplated := res.Inventory.CountByPlating()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d plated, %d non-plated holes, %d outline paths\n",
				res.Inventory.Name, plated, unplated, len(res.Inventory.Outline))
			global.renderer(cmd.OutOrStdout()).Warnings(warningsFromStrings(res.Warnings))

			if outPath == "" {
				return nil
			}
			if err := project.SaveBoard(outPath, res.Inventory); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the board as JSON")
	return cmd
}

func newBackupCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or restore settings, racks and profiles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export <file>",
		Short: "Write all configuration to one JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := global.settings()
			if err != nil {
				return err
			}
			path := global.rackFile
			if path == "" {
				path = settings.RackFile
			}
			reg, err := rack.ReadRegistry(path)
			var lerr *rack.LoadError
			if err != nil && !(errors.As(err, &lerr) && lerr.Kind == rack.LoadMissing) {
				return err
			}
			profiles, err := project.LoadCustomProfiles(global.profilesPath)
			if err != nil {
				return err
			}
			if err := project.ExportAllData(args[0], settings, reg, profiles); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Restore configuration from a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backup, err := project.ImportAllData(args[0])
			if err != nil {
				return err
			}
			rackFile := global.rackFile
			if rackFile == "" {
				rackFile = backup.Settings.Apply(model.DefaultSettings()).RackFile
			}
			if err := project.RestoreAllData(backup, global.settingsPath, rackFile, global.profilesPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored backup from %s (created %s)\n", args[0], backup.CreatedAt)
			return nil
		},
	})
	return cmd
}

func newProfilesCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List GCode profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			custom, err := project.LoadCustomProfiles(global.profilesPath)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, name := range model.GetProfileNames() {
				p := model.GetProfile(name)
				fmt.Fprintf(w, "%-12s %s\n", p.Name, p.Description)
			}
			for _, p := range custom {
				fmt.Fprintf(w, "%-12s %s (custom)\n", p.Name, strings.TrimSpace(p.Description))
			}
			if _, err := os.Stat(global.profilesPath); err == nil {
				fmt.Fprintf(w, "Custom profiles from %s\n", global.profilesPath)
			}
			return nil
		},
	}
}
