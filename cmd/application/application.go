// Package application provides the application interface for crmsync commands.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            s, err := app.Syncer()
//	            if err != nil {
//	                return err
//	            }
//	            res, err := s.Sync(cmd.Context())
//	            // ... render res
//	        },
//	    }
//	}
//
// Testing with Mocks:
//
//	mock := &application.Mock{
//	    SyncerFunc: func(...crmsync.Option) (crmsync.Syncer, error) {
//	        return fakeSyncer, nil
//	    },
//	}
//	cmd := run.NewCommand(mock)
package application

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/crmsync"
	"github.com/agentstation/crmsync/internal/journal"
	"github.com/agentstation/crmsync/pkg/mapping"
	"github.com/agentstation/crmsync/pkg/reconciler"
)

// Application provides the application interface that commands need.
// The App struct from cmd/crmsync/app implements this interface.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Syncer returns the syncer built from the configuration.
	// When called without options, returns the default cached instance.
	// When called with options, creates a new instance (no caching).
	Syncer(opts ...crmsync.Option) (crmsync.Syncer, error)

	// Mapping returns the configured field mapping, validated.
	Mapping() (*mapping.Config, error)

	// Session returns the CRM login session.
	Session() (Session, error)

	// History returns the pass journal.
	History() (History, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}

// Session is the part of the CRM login session commands use.
type Session interface {
	Renew(ctx context.Context) (string, error)
	UserID() string
	Expiry() time.Time
}

// History reads journaled passes.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Pass, error)
	Outcomes(ctx context.Context, passID string) ([]reconciler.Outcome, error)
}
