// Package ledger models the two tabular ledgers (exhibitor and speaker) that
// crmsync reconciles against the CRM.
//
// A ledger is read as a Snapshot: a header row plus data rows addressed by
// 1-based row number. Ledger state is only ever mutated through a Batcher,
// which applies all queued cell writes as one batch call per ledger.
package ledger

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies one of the two ledgers.
type Kind string

// Ledger kinds.
const (
	Exhibitor Kind = "exhibitor"
	Speaker   Kind = "speaker"
)

// Kinds returns the ledgers in processing order.
func Kinds() []Kind {
	return []Kind{Exhibitor, Speaker}
}

// String returns the ledger name.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is a known ledger.
func (k Kind) Valid() bool {
	return k == Exhibitor || k == Speaker
}

// Store is the tabular store holding the ledgers. Sheets are addressed by
// name; ranges use A1 notation without a sheet prefix.
type Store interface {
	// ReadAll returns every row of the sheet, header first. Rows may be ragged.
	ReadAll(ctx context.Context, sheet string) ([][]string, error)

	// WriteHeaderCell writes value into row 1 of the given 1-based column.
	WriteHeaderCell(ctx context.Context, sheet string, column int, value string) error

	// BatchWrite applies all cell writes to the sheet in one call, in order.
	BatchWrite(ctx context.Context, sheet string, cells []CellWrite) error
}

// CellWrite is a single cell assignment in A1 notation.
type CellWrite struct {
	Range string
	Value string
}

// ColumnLetter converts a 1-based column number to its letter form
// (1 → A, 26 → Z, 27 → AA).
func ColumnLetter(col int) string {
	var letters []byte
	for col > 0 {
		rem := (col - 1) % 26
		letters = append([]byte{byte('A' + rem)}, letters...)
		col = (col - 1) / 26
	}
	return string(letters)
}

// ColumnNumber converts column letters to a 1-based column number.
func ColumnNumber(letters string) (int, error) {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return 0, fmt.Errorf("empty column reference")
	}
	n := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column reference %q", letters)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n, nil
}

// CellRef renders a 1-based column and row as an A1 reference.
func CellRef(col, row int) string {
	return fmt.Sprintf("%s%d", ColumnLetter(col), row)
}

// ParseCellRef splits an A1 reference into 1-based column and row.
func ParseCellRef(ref string) (col, row int, err error) {
	ref = strings.TrimSpace(ref)
	i := 0
	for i < len(ref) && (ref[i] < '0' || ref[i] > '9') {
		i++
	}
	if i == 0 || i == len(ref) {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	col, err = ColumnNumber(ref[:i])
	if err != nil {
		return 0, 0, err
	}
	if _, err := fmt.Sscanf(ref[i:], "%d", &row); err != nil || row < 1 {
		return 0, 0, fmt.Errorf("invalid row in cell reference %q", ref)
	}
	return col, row, nil
}
