// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/invowk/modload/internal/issue"
	"github.com/invowk/modload/pkg/stdmods"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modload",
		Short: "Resolve, load and inspect modules",
		Long: TitleStyle.Render("modload") + SubtitleStyle.Render(" - module resolution and loading") + `

modload maps import specifiers to canonical paths (data URIs, built-in
names, relative and absolute paths, manifest aliases, search path),
evaluates each module exactly once per run, and reports circular imports.

` + SubtitleStyle.Render("Examples:") + `
  modload run ./main              Load main.js and print its exports
  modload resolve util --from a   Show where 'util' resolves from a.js
  modload modules ./main          List every module the load touched
  modload graph ./main            Print modules in evaluation order
  modload builtins                List compiled-in modules
  modload config show             Show the effective configuration`,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/modload/config.cue)")
	flags.StringVarP(&app.flags.workDir, "chdir", "C", "", "resolve relative specifiers and the manifest from this directory")
	flags.CountVarP(&app.flags.verbosity, "verbose", "v", "trace resolution (-v per module, -vv every step)")
	flags.StringVar(&app.flags.onCycle, "on-cycle", "", "circular import policy: warn, error or ignore")
	flags.StringSliceVar(&app.flags.searchPath, "search-path", nil, "directories searched for bare specifiers (overrides MODLOAD_PATH)")
	flags.StringVar(&app.flags.logFormat, "log-format", "", "diagnostics format: text, json or logfmt")

	rootCmd.AddCommand(
		newRunCommand(app),
		newResolveCommand(app),
		newModulesCommand(app),
		newGraphCommand(app),
		newBuiltinsCommand(app),
		newConfigCommand(app),
		newExplainCommand(app),
	)

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute runs the CLI and exits the process with the command's exit code.
// This is called by main.main().
func Execute() {
	stdmods.Version = Version
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			writeError(w, err, app.verbose())
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// writeError prints err to w. An ExitError without a cause was already
// reported by the command and prints nothing.
func writeError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, verbose))
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
