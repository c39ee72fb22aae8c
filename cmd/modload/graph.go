// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/invowk/modload/internal/dag"

	"github.com/spf13/cobra"
)

func newGraphCommand(app *App) *cobra.Command {
	var edges bool

	cmd := &cobra.Command{
		Use:   "graph <specifier>...",
		Short: "Print the import graph in evaluation order",
		Long: `Load each specifier, then print every module dependencies-first: each
module is listed after the modules it imports. With --edges, print one
"importer -> imported" line per import instead.

Modules caught in an import cycle have no such position; they are listed
last, after a warning naming them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printGraph(cmd.Context(), app, args, edges)
		},
	}

	cmd.Flags().BoolVar(&edges, "edges", false, "print import edges instead of the order")

	return cmd
}

func printGraph(ctx context.Context, app *App, specifiers []string, edges bool) error {
	l, err := app.newLoader(ctx)
	if err != nil {
		return err
	}
	for _, spec := range specifiers {
		if _, err := l.Load(ctx, spec, ""); err != nil {
			return loadFailed(err, "load module", spec)
		}
	}

	g := dag.FromLoader(l)
	if edges {
		for _, e := range g.Edges() {
			fmt.Fprintf(app.stdout, "%s -> %s\n", PathStyle.Render(string(e.Importer)), PathStyle.Render(string(e.Imported)))
		}
		return nil
	}

	order, err := g.Order()
	var cycleErr *dag.CycleError
	if err != nil && !errors.As(err, &cycleErr) {
		return err
	}
	for _, p := range order {
		fmt.Fprintln(app.stdout, PathStyle.Render(string(p)))
	}
	if cycleErr != nil {
		fmt.Fprintln(app.stderr, WarningStyle.Render("warning:")+" "+cycleErr.Error())
		for _, p := range cycleErr.Cycle {
			fmt.Fprintln(app.stdout, PathStyle.Render(string(p)))
		}
	}
	return nil
}
