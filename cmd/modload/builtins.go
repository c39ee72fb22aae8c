// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBuiltinsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "builtins",
		Short: "List the compiled-in modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range app.Builtins.Names() {
				e, ok := app.Builtins.Find(name)
				if !ok {
					continue
				}
				fmt.Fprintf(app.stdout, "%s %s\n",
					kindStyle.Render(string(e.Kind())),
					PathStyle.Render(string(e.Path())))
			}
			return nil
		},
	}
}
