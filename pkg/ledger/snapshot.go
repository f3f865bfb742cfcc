package ledger

import (
	"context"
	"strings"

	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/logging"
)

// Row is one data row of a ledger: an ordered mapping of column name to cell
// value, identified by its 1-based row number in the sheet.
type Row struct {
	Ledger Kind
	Number int

	header []string
	index  map[string]int // column name → 0-based position
	cells  []string
}

// Get returns the raw cell value for column, or "" when the column is
// unknown or the row is shorter than the header.
func (r *Row) Get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}

// Value returns the trimmed cell value for column.
func (r *Row) Value(column string) string {
	return strings.TrimSpace(r.Get(column))
}

// Has reports whether the ledger has the column.
func (r *Row) Has(column string) bool {
	_, ok := r.index[column]
	return ok
}

// Columns returns the header in sheet order.
func (r *Row) Columns() []string {
	return r.header
}

// Fields returns the row as a column → value map.
func (r *Row) Fields() map[string]string {
	fields := make(map[string]string, len(r.header))
	for _, name := range r.header {
		fields[name] = r.Get(name)
	}
	return fields
}

// Change builds a pending write of value into column on this row. It
// returns false when the ledger has no such column.
func (r *Row) Change(column, value string) (Change, bool) {
	i, ok := r.index[column]
	if !ok {
		return Change{}, false
	}
	return Change{
		Ledger:     r.Ledger,
		Row:        r.Number,
		Column:     i + 1,
		ColumnName: column,
		Value:      value,
	}, true
}

// Snapshot is a point-in-time read of one ledger.
type Snapshot struct {
	Ledger Kind
	Sheet  string
	Header []string
	Rows   []*Row

	index map[string]int
}

// NewSnapshot builds a snapshot from raw sheet values, header first.
func NewSnapshot(kind Kind, sheet string, values [][]string) *Snapshot {
	s := &Snapshot{Ledger: kind, Sheet: sheet, index: make(map[string]int)}
	if len(values) == 0 {
		return s
	}

	s.Header = values[0]
	for i, name := range s.Header {
		// Later duplicates win, matching how the sheet is read by humans left to right.
		s.index[name] = i
	}

	for i, cells := range values[1:] {
		s.Rows = append(s.Rows, &Row{
			Ledger: kind,
			Number: i + 2,
			header: s.Header,
			index:  s.index,
			cells:  cells,
		})
	}
	return s
}

// Column returns the 1-based position of a column.
func (s *Snapshot) Column(name string) (int, bool) {
	i, ok := s.index[name]
	return i + 1, ok
}

// Len returns the number of data rows.
func (s *Snapshot) Len() int {
	return len(s.Rows)
}

// Read takes a snapshot of a ledger without modifying it.
func Read(ctx context.Context, store Store, kind Kind, sheet string) (*Snapshot, error) {
	values, err := store.ReadAll(ctx, sheet)
	if err != nil {
		return nil, errors.WrapLedger("read", sheet, err)
	}
	return NewSnapshot(kind, sheet, values), nil
}

// Load takes a snapshot of a ledger, first appending any missing required
// columns to its header. When columns were added the ledger is re-read so the
// snapshot reflects the sheet as stored.
func Load(ctx context.Context, store Store, kind Kind, sheet string, required ...string) (*Snapshot, error) {
	snap, err := Read(ctx, store, kind, sheet)
	if err != nil {
		return nil, err
	}

	next := len(snap.Header) + 1
	added := 0
	for _, name := range required {
		if _, ok := snap.index[name]; ok || name == "" {
			continue
		}
		if err := store.WriteHeaderCell(ctx, sheet, next, name); err != nil {
			return nil, errors.WrapLedger("write_header", sheet, err)
		}
		logging.FromContext(ctx).Info().
			Str("ledger", kind.String()).
			Str("column", name).
			Str("ref", CellRef(next, 1)).
			Msg("Added missing ledger column")
		snap.index[name] = next - 1
		next++
		added++
	}

	if added == 0 {
		return snap, nil
	}
	return Read(ctx, store, kind, sheet)
}
