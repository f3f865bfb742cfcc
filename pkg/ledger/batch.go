package ledger

import (
	"context"

	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/logging"
)

// Change is a pending cell write queued by a reconciler.
type Change struct {
	Ledger     Kind
	Row        int
	Column     int
	ColumnName string
	Value      string
}

// Range returns the A1 reference of the cell.
func (c Change) Range() string {
	return CellRef(c.Column, c.Row)
}

// Changes is an ordered set of pending writes built for one identity.
type Changes []Change

// Set appends a write of value into column on row. Columns the ledger does
// not have are skipped.
func (cs *Changes) Set(row *Row, column, value string) bool {
	if row == nil {
		return false
	}
	c, ok := row.Change(column, value)
	if !ok {
		return false
	}
	*cs = append(*cs, c)
	return true
}

// Batcher accumulates cell writes per ledger and applies them as a single
// batch call per ledger on Flush. Writes to the same cell are applied in
// queue order, so the last one queued wins.
type Batcher struct {
	store   Store
	sheets  map[Kind]string
	pending map[Kind][]Change
	dryRun  bool
}

// BatcherOption configures a Batcher.
type BatcherOption func(*Batcher)

// WithDryRun makes Flush log the queued writes instead of applying them.
func WithDryRun(dryRun bool) BatcherOption {
	return func(b *Batcher) {
		b.dryRun = dryRun
	}
}

// NewBatcher creates a batcher writing to the given sheet per ledger.
func NewBatcher(store Store, sheets map[Kind]string, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		store:   store,
		sheets:  sheets,
		pending: make(map[Kind][]Change),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Queue appends writes in order.
func (b *Batcher) Queue(changes ...Change) {
	for _, c := range changes {
		b.pending[c.Ledger] = append(b.pending[c.Ledger], c)
	}
}

// Pending returns the writes queued for a ledger.
func (b *Batcher) Pending(kind Kind) []Change {
	return b.pending[kind]
}

// Len returns the total number of queued writes.
func (b *Batcher) Len() int {
	n := 0
	for _, cs := range b.pending {
		n += len(cs)
	}
	return n
}

// Flush applies each ledger's queued writes as one batch call and clears the
// queue. A failure on one ledger does not prevent flushing the other; all
// failures are joined into the returned error. It returns the number of
// cell writes that were applied.
func (b *Batcher) Flush(ctx context.Context) (int, error) {
	logger := logging.FromContext(ctx)
	applied := 0
	var errs []error

	for _, kind := range Kinds() {
		changes := b.pending[kind]
		if len(changes) == 0 {
			continue
		}
		sheet := b.sheets[kind]

		cells := make([]CellWrite, len(changes))
		for i, c := range changes {
			cells[i] = CellWrite{Range: c.Range(), Value: c.Value}
		}

		if b.dryRun {
			for _, c := range changes {
				logger.Info().
					Str("ledger", kind.String()).
					Str("ref", c.Range()).
					Str("column", c.ColumnName).
					Str("value", c.Value).
					Msg("Dry run: would write ledger cell")
			}
			continue
		}

		if err := b.store.BatchWrite(ctx, sheet, cells); err != nil {
			logger.Error().Err(err).
				Str("ledger", kind.String()).
				Int("cells", len(cells)).
				Msg("Ledger batch write failed")
			errs = append(errs, errors.WrapLedger("batch_write", sheet, err))
			continue
		}

		logger.Debug().
			Str("ledger", kind.String()).
			Int("cells", len(cells)).
			Msg("Ledger batch applied")
		applied += len(cells)
	}

	b.pending = make(map[Kind][]Change)
	return applied, errors.Join(errs...)
}
