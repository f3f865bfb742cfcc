// Package csvledger implements ledger.Store over a directory of CSV files,
// one file per sheet. It serves offline passes and end-to-end tests.
package csvledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/agentstation/crmsync/pkg/constants"
	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/logging"
)

var _ ledger.Store = (*Store)(nil)

// Store is a CSV-directory ledger store.
type Store struct {
	mu  sync.Mutex
	fs  afero.Fs
	dir string
}

// Option configures a Store.
type Option func(*Store) error

// WithFs sets the filesystem, the OS filesystem by default.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) error {
		if fs == nil {
			return &errors.ValidationError{Field: "fs", Message: "cannot be nil"}
		}
		s.fs = fs
		return nil
	}
}

// New creates a store rooted at dir.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, &errors.ValidationError{Field: "dir", Message: "ledger directory is required"}
	}
	s := &Store{fs: afero.NewOsFs(), dir: dir}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the file backing sheet.
func (s *Store) Path(sheet string) string {
	return filepath.Join(s.dir, sheet+".csv")
}

// ReadAll implements ledger.Store.
func (s *Store) ReadAll(ctx context.Context, sheet string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(sheet)
}

// WriteHeaderCell implements ledger.Store.
func (s *Store) WriteHeaderCell(ctx context.Context, sheet string, column int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.read(sheet)
	if err != nil {
		return err
	}
	return s.write(sheet, set(rows, column, 1, value))
}

// BatchWrite implements ledger.Store. Cells are applied in order and the
// file is replaced once.
func (s *Store) BatchWrite(ctx context.Context, sheet string, cells []ledger.CellWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.read(sheet)
	if err != nil {
		return err
	}
	for _, c := range cells {
		col, row, err := ledger.ParseCellRef(c.Range)
		if err != nil {
			return err
		}
		rows = set(rows, col, row, c.Value)
	}

	logging.Debug().
		Str("sheet", sheet).
		Int("cells", len(cells)).
		Msg("Writing CSV ledger")
	return s.write(sheet, rows)
}

func (s *Store) read(sheet string) ([][]string, error) {
	data, err := afero.ReadFile(s.fs, s.Path(sheet))
	if err != nil {
		return nil, errors.WrapIO("read", s.Path(sheet), err)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.WrapParse("csv", s.Path(sheet), err)
	}
	return rows, nil
}

func (s *Store) write(sheet string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(pad(rows)); err != nil {
		return err
	}

	if err := s.fs.MkdirAll(s.dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", s.dir, err)
	}
	path := s.Path(sheet)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, buf.Bytes(), os.FileMode(constants.FilePermissions)); err != nil {
		return errors.WrapIO("write", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.WrapIO("rename", path, err)
	}
	return nil
}

// set assigns a 1-based cell, growing the grid as needed.
func set(rows [][]string, col, row int, value string) [][]string {
	for len(rows) < row {
		rows = append(rows, nil)
	}
	r := rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	rows[row-1] = r
	return rows
}

// pad widens every row to the widest one. Blank lines are skipped by the
// CSV reader, so an empty row must still carry its separators.
func pad(rows [][]string) [][]string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	for i, r := range rows {
		for len(r) < width {
			r = append(r, "")
		}
		rows[i] = r
	}
	return rows
}
