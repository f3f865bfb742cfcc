// Package validate provides the validate command for mapping files.
package validate

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/crmsync/cmd/application"
	"github.com/agentstation/crmsync/internal/cmd/output"
	"github.com/agentstation/crmsync/pkg/mapping"
)

// NewCommand creates the validate command with app dependencies.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "validate [mapping-file]",
		GroupID: "management",
		Short:   "Validate a field mapping",
		Long: `Validate loads a field mapping, checks it against the CRM fields the
engine knows, and prints it.

Without an argument the configured mapping (mapping.file) is validated,
or the built-in mapping when none is configured.`,
		Example: `  crmsync validate                 # Configured mapping
  crmsync validate mapping.yaml    # A specific file
  crmsync validate -o yaml         # Print the effective mapping`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg *mapping.Config
				err error
			)
			if len(args) == 1 {
				cfg, err = mapping.Load(args[0])
			} else {
				cfg, err = app.Mapping()
			}
			if err != nil {
				return err
			}
			return Print(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), cfg)
		},
	}
}

// Print writes a validated mapping.
func Print(w io.Writer, format output.Format, cfg *mapping.Config) error {
	if format.IsTable() {
		if _, err := fmt.Fprintf(w, "Mapping is valid: %d fields, %d static fields\n\n",
			len(cfg.Fields), len(cfg.Static)); err != nil {
			return err
		}
	}
	return output.FormatMapping(w, format, cfg)
}
