// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/invowk/modload/internal/issue"

	"github.com/spf13/cobra"
)

func newExplainCommand(app *App) *cobra.Command {
	var style string

	cmd := &cobra.Command{
		Use:   "explain [topic]",
		Short: "Show long-form help for a failure class",
		Long: `Show long-form help for a failure class. Without a topic, list the
available topics. Errors printed with -v name the topic to read.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, g := range issue.Values() {
					fmt.Fprintf(app.stdout, "%s %s\n", PathStyle.Width(12).Render(g.Name()), guideTitle(g))
				}
				return nil
			}

			g := issue.Lookup(args[0])
			if g == nil {
				names := make([]string, 0)
				for _, known := range issue.Values() {
					names = append(names, known.Name())
				}
				return &ExitError{Code: ExitUsage, Err: issue.NewErrorContext().
					WithOperation("explain").
					WithResource(args[0]).
					WithSuggestion("Known topics: " + strings.Join(names, ", ")).
					Wrap(fmt.Errorf("unknown topic %q", args[0])).
					BuildError()}
			}

			out, err := g.Render(style)
			if err != nil {
				return fmt.Errorf("render %s: %w", g.Name(), err)
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&style, "style", "auto", "glamour style: auto, dark, light, notty, ascii")

	return cmd
}

// guideTitle returns the first Markdown heading of a guide.
func guideTitle(g *issue.Guide) string {
	for _, line := range strings.Split(string(g.MarkdownMsg()), "\n") {
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return title
		}
	}
	return ""
}
