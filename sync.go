package crmsync

import (
	"context"

	"github.com/agentstation/crmsync/pkg/constants"
	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/identity"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/logging"
	"github.com/agentstation/crmsync/pkg/reconciler"
	"github.com/agentstation/crmsync/pkg/sync"
)

// Sync executes one reconciliation pass.
func (s *syncer) Sync(ctx context.Context, opts ...sync.Option) (*sync.Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Parse and validate options
	options := sync.Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}

	// Step 2: One pass at a time
	s.mu.Lock()
	defer s.mu.Unlock()

	// Step 3: Tag the pass and apply the timeout
	passID := s.options.passID()
	ctx = logging.WithPassID(ctx, passID)
	var cancel context.CancelFunc
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	} else {
		cancel = func() {} // No-op cancel if no timeout
	}
	defer cancel()

	logger := logging.FromContext(ctx)
	logger.Info().
		Bool("dry_run", options.DryRun).
		Bool("skip_create", options.SkipCreate).
		Bool("skip_fields", options.SkipFields).
		Msg("Pass started")

	// Step 4: Run the flows
	result := sync.NewResult(passID, options.DryRun, s.options.clock.Now())
	err := s.pass(ctx, options, result)
	result.EndTime = s.options.clock.Now()

	// Step 5: Journal and notify, also for aborted passes
	s.record(ctx, result, err)
	s.hooks.triggerPass(result, err)

	if err != nil {
		logger.Error().Err(err).
			Int("failed", result.Failed()).
			Msg("Pass aborted")
		return result, err
	}
	logger.Info().
		Str("summary", result.Summary()).
		Int("failed", result.Failed()).
		Dur("duration", result.Duration()).
		Msg("Pass completed")
	return result, nil
}

// pass runs creation, flush, re-read, field sync, flush.
func (s *syncer) pass(ctx context.Context, options *sync.Options, result *sync.Result) error {
	cfg := s.options.mapping
	rec, err := reconciler.New(s.client, cfg, reconciler.WithDryRun(options.DryRun))
	if err != nil {
		return err
	}
	batch := ledger.NewBatcher(s.store, cfg.Sheets(), ledger.WithDryRun(options.DryRun))

	// Missing identifier and status columns are added once, before any
	// flow. A dry run never writes, so it reads the ledgers as they are.
	set, err := s.snapshot(ctx, !options.DryRun)
	if err != nil {
		return err
	}

	if !options.SkipCreate {
		result.Create, err = rec.Create(ctx, set, batch)
		// Identifiers of records created before an abort must still reach
		// the ledgers, or the next pass would create them again.
		if ferr := s.flush(ctx, batch, result); ferr != nil || err != nil {
			return errors.Join(err, ferr)
		}
		if options.SkipFields {
			return nil
		}

		// The field flow must observe the creation flow's writes.
		if set, err = s.snapshot(ctx, false); err != nil {
			return err
		}
	}

	result.Fields, err = rec.Fields(ctx, set, batch)
	return errors.Join(err, s.flush(ctx, batch, result))
}

// snapshot reads both ledgers and merges them into identities.
func (s *syncer) snapshot(ctx context.Context, bootstrap bool) (*identity.Set, error) {
	cfg := s.options.mapping
	snaps := make([]*ledger.Snapshot, 0, len(ledger.Kinds()))
	for _, kind := range ledger.Kinds() {
		sheet := cfg.Policy(kind).Sheet

		var (
			snap *ledger.Snapshot
			err  error
		)
		if bootstrap {
			snap, err = ledger.Load(ctx, s.store, kind, sheet, cfg.RequiredColumns()...)
		} else {
			snap, err = ledger.Read(ctx, s.store, kind, sheet)
		}
		if err != nil {
			return nil, err
		}

		logging.FromContext(ctx).Debug().
			Str("ledger", kind.String()).
			Str("sheet", sheet).
			Int("rows", snap.Len()).
			Msg("Ledger snapshot taken")
		snaps = append(snaps, snap)
	}

	set := identity.Merge(ctx, cfg.Columns.Email, snaps...)
	logging.FromContext(ctx).Info().
		Int("identities", set.Len()).
		Msg("Ledgers merged")
	return set, nil
}

// flush applies queued ledger writes. A canceled pass still gets its
// completed writes applied, bounded by the store timeout.
func (s *syncer) flush(ctx context.Context, batch *ledger.Batcher, result *sync.Result) error {
	if batch.Len() == 0 {
		return nil
	}
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultSheetsTimeout)
		defer cancel()
	}
	n, err := batch.Flush(ctx)
	result.Written += n
	return err
}

// record journals a finished pass. Journal failures never fail the pass.
func (s *syncer) record(ctx context.Context, result *sync.Result, passErr error) {
	if s.options.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultSheetsTimeout)
	defer cancel()
	if err := s.options.journal.Record(ctx, result, passErr); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Could not journal pass")
	}
}
