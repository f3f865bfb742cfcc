// Package auth provides the auth command, which verifies CRM credentials.
package auth

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/crmsync/cmd/application"
	"github.com/agentstation/crmsync/internal/cmd/output"
	"github.com/agentstation/crmsync/pkg/logging"
)

// Status is the outcome of a login.
type Status struct {
	UserID  string    `json:"user_id" yaml:"user_id"`
	Expires time.Time `json:"expires" yaml:"expires"`
}

// NewCommand creates the auth command with app dependencies.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "auth",
		GroupID: "management",
		Short:   "Verify CRM credentials",
		Long: `Auth performs the webservice challenge and login with the configured
username and access key and prints the session's user and expiry.

The session token itself is never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd.Context(), app, cmd.OutOrStdout())
		},
	}
}

// Run executes the command.
func Run(ctx context.Context, app application.Application, w io.Writer) error {
	session, err := app.Session()
	if err != nil {
		return err
	}
	if _, err := session.Renew(ctx); err != nil {
		return err
	}

	status := Status{UserID: session.UserID(), Expires: session.Expiry()}
	logging.FromContext(ctx).Debug().
		Str("user_id", status.UserID).
		Time("expires", status.Expires).
		Msg("CRM login succeeded")

	rows := [][]string{
		{"Status", "authenticated"},
		{"User", status.UserID},
		{"Expires", status.Expires.Local().Format(time.RFC3339)},
	}
	return output.FormatProperties(w, output.DetectFormat(app.OutputFormat()), rows, status)
}
