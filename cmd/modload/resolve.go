// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCommand(app *App) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "resolve <specifier>",
		Short: "Print the canonical path a specifier resolves to",
		Long: `Run the normalization strategies (data URI, built-in, relative or
absolute path, manifest alias, search path) without compiling or
evaluating anything, and print the canonical path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := app.newLoader(cmd.Context())
			if err != nil {
				return err
			}
			path, err := l.Resolve(cmd.Context(), args[0], from)
			if err != nil {
				return loadFailed(err, "resolve specifier", args[0])
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "file the specifier is imported from")

	return cmd
}
