// Package history provides the history command, which reads the pass journal.
package history

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/crmsync/cmd/application"
	"github.com/agentstation/crmsync/internal/cmd/output"
	"github.com/agentstation/crmsync/pkg/constants"
)

// NewCommand creates the history command with app dependencies.
func NewCommand(app application.Application) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "history [pass-id]",
		GroupID: "management",
		Short:   "Show journaled passes",
		Long: `History lists the most recent passes, newest first. Given a pass
identifier it lists the per-identity outcomes of that pass instead.`,
		Example: `  crmsync history                  # Recent passes
  crmsync history --limit 5 -o wide
  crmsync history 3f2c...          # Outcomes of one pass`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			passID := ""
			if len(args) == 1 {
				passID = args[0]
			}
			return Run(cmd.Context(), app, cmd.OutOrStdout(), passID, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", constants.DefaultHistoryLimit, "number of passes to show")

	return cmd
}

// Run executes the command.
func Run(ctx context.Context, app application.Application, w io.Writer, passID string, limit int) error {
	h, err := app.History()
	if err != nil {
		return err
	}
	format := output.DetectFormat(app.OutputFormat())

	if passID != "" {
		outcomes, err := h.Outcomes(ctx, passID)
		if err != nil {
			return err
		}
		if len(outcomes) == 0 && format.IsTable() {
			_, err := fmt.Fprintf(w, "No outcomes recorded for pass %s\n", passID)
			return err
		}
		return output.FormatOutcomes(w, format, outcomes)
	}

	passes, err := h.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(passes) == 0 && format.IsTable() {
		_, err := fmt.Fprintln(w, "No passes recorded yet")
		return err
	}
	return output.FormatPasses(w, format, passes)
}
