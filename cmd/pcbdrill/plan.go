package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/piwi3910/pcbdrill/internal/engine"
	"github.com/piwi3910/pcbdrill/internal/export"
	"github.com/piwi3910/pcbdrill/internal/gcode"
	"github.com/piwi3910/pcbdrill/internal/importer"
	"github.com/piwi3910/pcbdrill/internal/metrics"
	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/piwi3910/pcbdrill/internal/project"
	"github.com/piwi3910/pcbdrill/internal/rack"
	"github.com/piwi3910/pcbdrill/internal/report"
	"github.com/piwi3910/pcbdrill/internal/store"
)

type planOptions struct {
	what       string
	rackSpec   string
	useRack    string
	gcodePath  string
	profile    string
	pdfPath    string
	labelsPath string
	xlsxPath   string
	metrics    string
	wearDB     string
	saveRack   string
	compare    bool
}

func newPlanCmd(global *globalOptions) *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan <inventory>",
		Short: "Plan tools and drilling order for a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), global, opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&opts.what, "what", "pth,npth", "features to machine: pth, npth, outline, all")
	cmd.Flags().StringVar(&opts.rackSpec, "rack", "", `rack string overriding the rack file, e.g. "T1:0.8 T2:R1.0"`)
	cmd.Flags().StringVar(&opts.useRack, "use", "", "named rack from the rack file")
	cmd.Flags().StringVar(&opts.gcodePath, "gcode", "", "write the GCode program to this file")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "GCode profile (default from settings)")
	cmd.Flags().StringVar(&opts.pdfPath, "pdf", "", "write the PDF job sheet to this file")
	cmd.Flags().StringVar(&opts.labelsPath, "labels", "", "write bit labels (PDF) to this file")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "write the tool table (xlsx) to this file")
	cmd.Flags().StringVar(&opts.metrics, "metrics", "", "write Prometheus textfile metrics to this file")
	cmd.Flags().StringVar(&opts.wearDB, "wear-db", "", "record the run in this wear log")
	cmd.Flags().StringVar(&opts.saveRack, "save-rack", "", "save the resulting rack under this name")
	cmd.Flags().BoolVar(&opts.compare, "compare", false, "also compare alternative tolerance scenarios")
	return cmd
}

func runPlan(ctx context.Context, global *globalOptions, opts *planOptions, inventoryPath string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := global.logger(stderr)

	settings, err := global.settings()
	if err != nil {
		return err
	}
	what, err := parseWhat(opts.what)
	if err != nil {
		return err
	}

	imported := importer.Import(inventoryPath)
	for _, e := range imported.Errors {
		logger.Error("import error", "file", inventoryPath, "problem", e)
	}
	if !imported.OK() {
		return fmt.Errorf("failed to import %s: %d errors", inventoryPath, len(imported.Errors))
	}
	inv := imported.Inventory
	logger.Debug("inventory loaded", "board", inv.Name, "holes", len(inv.Holes), "outline", len(inv.Outline))

	manager := rack.NewManager(settings, global.rackFile, logger)
	switch {
	case opts.rackSpec != "":
		r, warnings := rack.ParseSpec(opts.rackSpec, settings)
		manager.Use(r, warnings)
	case opts.useRack != "":
		// Select records the warning and falls back to a manual rack.
		_ = manager.Select(opts.useRack)
	}

	res, err := engine.New(settings).Plan(inv, what, manager.Rack())
	if err != nil {
		var ierr *engine.InvariantError
		if errors.As(err, &ierr) {
			return fmt.Errorf("internal error planning %s: %w", inv.Name, err)
		}
		return fmt.Errorf("failed to plan %s: %w", inv.Name, err)
	}

	plan := res.Plan
	var diag model.Diagnostics
	diag.Append(warningsFromStrings(imported.Warnings)...)
	diag.Append(manager.Warnings()...)
	diag.Append(plan.Warnings...)
	plan.Warnings = diag.Entries()

	out := global.renderer(stdout)
	out.Plan(plan)
	out.Rack(rackTitle(manager), res.Rack)

	if opts.compare {
		results, err := engine.CompareScenarios(engine.BuildDefaultScenarios(settings), inv, what, manager.Rack())
		if err != nil {
			return fmt.Errorf("failed to compare scenarios: %w", err)
		}
		out.Comparison(results)
	}

	if err := writeOutputs(ctx, global, opts, settings, &plan, out, logger); err != nil {
		return err
	}

	if opts.saveRack != "" {
		if err := manager.Save(opts.saveRack, res.Rack); err != nil {
			logger.Error("failed to save rack", "rack", opts.saveRack, "path", manager.Path(), "err", err)
		} else {
			logger.Info("rack saved", "rack", opts.saveRack, "path", manager.Path())
		}
	}

	out.Warnings(plan.Warnings)
	return nil
}

func writeOutputs(ctx context.Context, global *globalOptions, opts *planOptions, settings model.Settings, plan *model.Plan, out *report.Renderer, logger *slog.Logger) error {
	if opts.gcodePath != "" {
		name := opts.profile
		if name == "" {
			name = settings.GCodeProfile
		}
		profile, found, err := project.ResolveProfile(global.profilesPath, name)
		if err != nil {
			logger.Warn("failed to load custom profiles", "err", err)
		}
		if !found {
			logger.Warn("unknown GCode profile, using Generic", "profile", name)
		}
		program := gcode.NewWithProfile(settings, profile).Generate(*plan)
		if err := os.WriteFile(opts.gcodePath, []byte(program), 0644); err != nil {
			return fmt.Errorf("failed to write GCode: %w", err)
		}
		logger.Info("GCode written", "path", opts.gcodePath, "profile", profile.Name)

		stats, err := gcode.Check(*plan, program)
		if err != nil {
			logger.Error("GCode does not match the plan", "path", opts.gcodePath, "err", err)
			plan.Warnings = append(plan.Warnings, model.Warning{
				Summary: "GCode check failed",
				Hints:   []string{err.Error(), "Check the tool change and pause codes of profile " + profile.Name},
			})
		}
		out.Program(opts.gcodePath, stats)
	}

	if opts.pdfPath != "" {
		if err := export.ExportPDF(opts.pdfPath, *plan); err != nil {
			return err
		}
		logger.Info("job sheet written", "path", opts.pdfPath)
	}
	if opts.labelsPath != "" {
		if err := export.ExportBitLabels(opts.labelsPath, *plan); err != nil {
			return err
		}
		logger.Info("bit labels written", "path", opts.labelsPath)
	}
	if opts.xlsxPath != "" {
		if err := export.ExportToolTable(opts.xlsxPath, *plan); err != nil {
			return err
		}
		logger.Info("tool table written", "path", opts.xlsxPath)
	}
	if opts.metrics != "" {
		if err := metrics.WriteTextfile(opts.metrics, *plan); err != nil {
			return err
		}
		logger.Debug("metrics written", "path", opts.metrics)
	}

	if opts.wearDB != "" {
		st, err := store.Open(opts.wearDB)
		if err != nil {
			return fmt.Errorf("failed to open wear log: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logger.Error("failed to close wear log", "err", cerr)
			}
		}()
		if err := st.RecordPlan(ctx, *plan); err != nil {
			return err
		}
		logger.Info("run recorded", "plan", plan.ID, "path", opts.wearDB)
	}
	return nil
}

func rackTitle(m *rack.Manager) string {
	if m.Selected() != "" {
		return "Rack " + m.Selected()
	}
	return "Rack"
}
