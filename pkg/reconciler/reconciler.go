// Package reconciler reconciles merged ledger identities against the CRM.
//
// A pass runs two flows. The creation flow gives every identity without a
// canonical identifier exactly one CRM record and propagates the identifier
// (or a duplicate marker) to both ledgers. The field flow pulls the record of
// every identified identity, resolves the activity date by recency, mirrors
// comment history into the ledger and clears identifiers the CRM no longer
// resolves.
//
// Reconcilers never write ledgers directly: each identity's writes are built
// as one change set and queued on a ledger.Batcher only when the identity
// finished without error.
package reconciler

import (
	"context"

	"github.com/agentstation/crmsync/pkg/crm"
	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/identity"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/mapping"
)

// RecordClient is the CRM record API the reconcilers need.
type RecordClient interface {
	Create(ctx context.Context, payload map[string]string) (string, error)
	Retrieve(ctx context.Context, id string) (crm.Record, error)
	Update(ctx context.Context, id string, record crm.Record) error
	ListComments(ctx context.Context, id string) (string, error)
}

// Reconciler runs the creation and field flows.
type Reconciler interface {
	// Create runs the creation flow over identities and queues the resulting
	// ledger writes. It stops early only on authentication failure or
	// context cancellation.
	Create(ctx context.Context, set *identity.Set, batch *ledger.Batcher) (*Report, error)

	// Fields runs the field flow over identities read after the creation
	// flow's writes were flushed.
	Fields(ctx context.Context, set *identity.Set, batch *ledger.Batcher) (*Report, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	client  RecordClient
	mapping *mapping.Config
	dryRun  bool
}

// New creates a Reconciler.
func New(client RecordClient, cfg *mapping.Config, opts ...Option) (Reconciler, error) {
	if client == nil {
		return nil, &errors.ValidationError{Field: "client", Message: "cannot be nil"}
	}
	if cfg == nil {
		return nil, &errors.ValidationError{Field: "mapping", Message: "cannot be nil"}
	}
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{
		client:  client,
		mapping: cfg,
		dryRun:  options.dryRun,
	}, nil
}

// abort reports whether err must stop the whole pass.
func abort(err error) bool {
	return errors.IsAuthentication(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
