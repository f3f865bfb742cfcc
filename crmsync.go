// Package crmsync reconciles two event ledgers, exhibitors and speakers,
// with a CRM.
//
// A pass reads both ledgers, merges their rows into identities keyed by
// email, gives every identity without a canonical CRM record exactly one
// record (the creation flow), then re-reads the ledgers and synchronises the
// activity date and comment history of every identified record (the field
// flow). Ledger writes are buffered and applied in one batch per ledger after
// each flow.
//
// Example usage:
//
//	// store is any ledger.Store, client is usually a *crm.Client
//	s, err := crmsync.New(store, client, crmsync.WithJournal(journal))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// One pass
//	result, err := s.Sync(ctx, sync.WithDryRun(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
//
//	// Or a pass every 15 minutes until ctx is done
//	s.OnPassComplete(func(r *sync.Result, err error) { fmt.Println(r.Summary()) })
//	err = s.Run(ctx, 15*time.Minute)
package crmsync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/logging"
	"github.com/agentstation/crmsync/pkg/mapping"
	"github.com/agentstation/crmsync/pkg/reconciler"
	"github.com/agentstation/crmsync/pkg/sync"
)

// Compile-time interface check to ensure proper implementation.
var _ Syncer = (*syncer)(nil)

// Syncer runs reconciliation passes.
type Syncer interface {
	// Sync executes one pass. The result is returned even when the pass
	// was aborted, holding whatever was reconciled before the abort.
	Sync(ctx context.Context, opts ...sync.Option) (*sync.Result, error)

	// Run executes a pass every interval until ctx is done.
	Run(ctx context.Context, every time.Duration, opts ...sync.Option) error

	// Mapping returns the field mapping passes use.
	Mapping() *mapping.Config

	// Hooks provides access to pass callbacks
	Hooks
}

// syncer is the default implementation of Syncer.
type syncer struct {
	// mu serialises passes: at most one pass touches the ledgers at a time
	mu gosync.Mutex

	options *options
	store   ledger.Store
	client  reconciler.RecordClient
	hooks   *hooks
}

// New creates a Syncer reading and writing ledgers through store and CRM
// records through client.
func New(store ledger.Store, client reconciler.RecordClient, opts ...Option) (Syncer, error) {
	if store == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}
	if client == nil {
		return nil, &errors.ValidationError{Field: "client", Message: "cannot be nil"}
	}

	options, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}
	if options.mapping == nil {
		if options.mapping, err = mapping.Default(); err != nil {
			return nil, err
		}
	}

	logging.Debug().
		Str("module", options.mapping.Module).
		Str("exhibitor_sheet", options.mapping.Policy(ledger.Exhibitor).Sheet).
		Str("speaker_sheet", options.mapping.Policy(ledger.Speaker).Sheet).
		Bool("journal", options.journal != nil).
		Msg("Syncer created")

	return &syncer{
		options: options,
		store:   store,
		client:  client,
		hooks:   newHooks(),
	}, nil
}

// Mapping returns the field mapping passes use.
func (s *syncer) Mapping() *mapping.Config {
	return s.options.mapping
}
