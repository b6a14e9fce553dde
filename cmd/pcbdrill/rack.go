package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/piwi3910/pcbdrill/internal/rack"
)

func newRackCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rack",
		Short: "Inspect and manage the rack file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [name]",
		Short: "Show the rack in use, or a named rack",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := global.settings()
			if err != nil {
				return err
			}
			manager := rack.NewManager(settings, global.rackFile, global.logger(cmd.ErrOrStderr()))
			if len(args) == 1 {
				_ = manager.Select(args[0])
			}
			out := global.renderer(cmd.OutOrStdout())
			out.Rack(rackTitle(manager), manager.Rack())
			if names := manager.Registry().Names(); len(names) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Racks in %s: %v\n", manager.Path(), names)
			}
			out.Warnings(manager.Warnings())
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a rack file from the template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := rackPath(global)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := rack.WriteTemplate(path, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing rack file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the rack file and every rack in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRackCheck(cmd, global)
		},
	})
	return cmd
}

func rackPath(global *globalOptions) (string, error) {
	if global.rackFile != "" {
		return global.rackFile, nil
	}
	settings, err := global.settings()
	if err != nil {
		return "", err
	}
	return settings.RackFile, nil
}

func runRackCheck(cmd *cobra.Command, global *globalOptions) error {
	settings, err := global.settings()
	if err != nil {
		return err
	}
	path := global.rackFile
	if path == "" {
		path = settings.RackFile
	}
	w := cmd.OutOrStdout()

	if _, err := rack.ReadRegistry(path); err != nil {
		var lerr *rack.LoadError
		if errors.As(err, &lerr) {
			fmt.Fprintf(w, "%s: %s\n", path, lerr.Kind)
			for _, p := range lerr.Problems {
				fmt.Fprintf(w, "  %s\n", p)
			}
		}
		return err
	}

	manager := rack.NewManager(settings, path, global.logger(cmd.ErrOrStderr()))
	failed := 0
	for _, name := range manager.Registry().Names() {
		if err := manager.Select(name); err != nil {
			failed++
			fmt.Fprintf(w, "  %-16s FAIL %v\n", name, err)
			continue
		}
		fmt.Fprintf(w, "  %-16s ok   %d tools\n", name, manager.Rack().Loaded())
	}
	global.renderer(w).Warnings(manager.Warnings())
	if failed > 0 {
		return fmt.Errorf("%d of %d racks are invalid", failed, len(manager.Registry().Names()))
	}
	fmt.Fprintf(w, "%s is valid\n", path)
	return nil
}
