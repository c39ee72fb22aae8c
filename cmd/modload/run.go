// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/invowk/modload/internal/issue"
	"github.com/invowk/modload/pkg/modload"

	"github.com/spf13/cobra"
)

func newRunCommand(app *App) *cobra.Command {
	var from, export string

	cmd := &cobra.Command{
		Use:   "run <specifier>",
		Short: "Load a module and print its namespace as JSON",
		Long: `Load a module, evaluating it and everything it imports exactly once,
and print its exports as a JSON object.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModule(cmd.Context(), app, args[0], from, export)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "file the specifier is imported from")
	cmd.Flags().StringVar(&export, "export", "", "print only this export")

	return cmd
}

func runModule(ctx context.Context, app *App, specifier, from, export string) error {
	l, err := app.newLoader(ctx)
	if err != nil {
		return err
	}

	rec, err := l.Load(ctx, specifier, from)
	if err != nil {
		return loadFailed(err, "load module", specifier)
	}

	var out any = rec.Namespace()
	if export != "" {
		v, ok := rec.Exports.Get(export)
		if !ok {
			return &ExitError{Code: ExitLoadFailed, Err: issue.NewErrorContext().
				WithOperation("read export").
				WithResource(export).
				WithSuggestion("Available exports: " + strings.Join(rec.Exports.Names(), ", ")).
				Wrap(fmt.Errorf("module %s has no export %q", rec.Name, export)).
				BuildError()}
		}
		out = v
	}

	return writeJSON(app.stdout, out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode exports: %w", err)
	}
	return nil
}

func newModulesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "modules <specifier>...",
		Short: "Load modules and list every registry entry",
		Long: `Load each specifier in order with one shared registry, then list every
module the run touched with its state, kind and canonical path. Failed
modules stay in the registry and are listed too.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listModules(cmd.Context(), app, args)
		},
	}
}

func listModules(ctx context.Context, app *App, specifiers []string) error {
	l, err := app.newLoader(ctx)
	if err != nil {
		return err
	}

	var (
		firstErr   error
		failedSpec string
	)
	for _, spec := range specifiers {
		if _, err := l.Load(ctx, spec, ""); err != nil && firstErr == nil {
			firstErr, failedSpec = err, spec
			if modload.IsFatal(err) {
				break
			}
		}
	}

	for _, rec := range l.Modules() {
		fmt.Fprintf(app.stdout, "%s %s %s\n",
			stateStyle(rec.State).Render(string(rec.State)),
			kindStyle.Render(string(rec.Kind)),
			PathStyle.Render(string(rec.Name)))
	}

	if firstErr != nil {
		return loadFailed(firstErr, "load module", failedSpec)
	}
	return nil
}
