// Package run provides the run command: one reconciliation pass, or a pass
// on a fixed interval.
package run

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/crmsync/cmd/application"
	"github.com/agentstation/crmsync/internal/cmd/output"
	"github.com/agentstation/crmsync/pkg/logging"
	"github.com/agentstation/crmsync/pkg/sync"
)

// Flags holds the run command flags.
type Flags struct {
	DryRun     bool
	SkipCreate bool
	SkipFields bool
	Timeout    time.Duration
	Every      time.Duration
	Strict     bool
}

// Options converts the flags into pass options.
func (f *Flags) Options() []sync.Option {
	return []sync.Option{
		sync.WithDryRun(f.DryRun),
		sync.WithSkipCreate(f.SkipCreate),
		sync.WithSkipFields(f.SkipFields),
		sync.WithTimeout(f.Timeout),
	}
}

// NewCommand creates the run command with app dependencies.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "run",
		GroupID: "core",
		Short:   "Reconcile the ledgers with the CRM",
		Long: `Run executes one reconciliation pass: the creation flow, which gives
every contact without a lead exactly one lead, followed by the field flow,
which synchronises activity dates and comment history.

With --every the pass repeats on that interval until interrupted. A failed
pass is logged and the next one runs on schedule.`,
		Example: `  crmsync run                      # One pass
  crmsync run --dry-run -o wide    # Show what a pass would do
  crmsync run --skip-create        # Field sync only
  crmsync run --every 15m          # A pass every 15 minutes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd.Context(), app, cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "compute the pass without writing to the CRM or the ledgers")
	cmd.Flags().BoolVar(&flags.SkipCreate, "skip-create", false, "skip the creation flow")
	cmd.Flags().BoolVar(&flags.SkipFields, "skip-fields", false, "skip the field flow")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "abort a pass that runs longer than this (0 for no limit)")
	cmd.Flags().DurationVar(&flags.Every, "every", 0, "repeat the pass on this interval until interrupted")
	cmd.Flags().BoolVar(&flags.Strict, "strict", false, "exit non-zero when any identity failed")
	cmd.MarkFlagsMutuallyExclusive("skip-create", "skip-fields")

	return cmd
}

// Run executes the command.
func Run(ctx context.Context, app application.Application, w io.Writer, flags *Flags) error {
	format := output.DetectFormat(app.OutputFormat())

	s, err := app.Syncer()
	if err != nil {
		return err
	}

	if flags.Every > 0 {
		s.OnPassComplete(func(res *sync.Result, _ error) {
			if err := output.FormatResult(w, format, res); err != nil {
				logging.FromContext(ctx).Warn().Err(err).Msg("Could not print pass result")
			}
		})
		return s.Run(ctx, flags.Every, flags.Options()...)
	}

	res, err := s.Sync(ctx, flags.Options()...)
	if res != nil {
		if ferr := output.FormatResult(w, format, res); ferr != nil && err == nil {
			err = ferr
		}
	}
	if err != nil {
		return err
	}

	if flags.Strict && res.Failed() > 0 {
		return fmt.Errorf("pass %s: %d identities failed", res.PassID, res.Failed())
	}
	return nil
}
