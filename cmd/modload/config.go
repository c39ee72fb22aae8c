// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/invowk/modload/internal/config"
	"github.com/invowk/modload/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `modload config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modload configuration",
		Long: `Manage modload configuration.

Configuration is read from the first of:
  - the --config flag
  - Linux: ~/.config/modload/config.cue
    macOS: ~/Library/Application Support/modload/config.cue
    Windows: %APPDATA%\modload\config.cue
  - config.cue in the working directory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Source == "" {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("(no config file, using defaults)"))
				return nil
			}
			fmt.Fprintln(app.stdout, cfg.Source)
			return nil
		},
	})

	return cfgCmd
}

// showConfig prints the configuration after file, environment and flag
// overrides are applied.
func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	source := cfg.Source
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintf(app.stdout, "// source: %s\n", source)
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

func initConfig(app *App) error {
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	path, err := config.CreateDefaultConfig(app.Fs, dir)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("create configuration").
			WithResource(dir).
			WithSuggestion("Check that the directory is writable").
			Wrap(err).
			BuildError()
	}
	fmt.Fprintln(app.stdout, SuccessStyle.Render("✓")+" "+path)
	return nil
}
