// Package sheets implements ledger.Store on a Google Sheets spreadsheet.
// Each ledger is one worksheet of the spreadsheet, addressed by title.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/agentstation/crmsync/pkg/constants"
	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/logging"
)

var _ ledger.Store = (*Store)(nil)

// valueInput keeps identifiers such as "10x123" and markers as literal text.
const valueInput = "RAW"

// Store is a spreadsheet-backed ledger store.
type Store struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
	timeout       time.Duration
}

type options struct {
	credentialsFile string
	timeout         time.Duration
	client          []option.ClientOption
}

// Option configures a Store.
type Option func(*options) error

// WithCredentialsFile authenticates with a service account key file.
func WithCredentialsFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return &errors.ValidationError{Field: "credentials_file", Message: "path is empty"}
		}
		o.credentialsFile = path
		return nil
	}
}

// WithTimeout bounds every spreadsheet call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return &errors.ValidationError{Field: "timeout", Value: d, Message: "must be non-negative"}
		}
		o.timeout = d
		return nil
	}
}

// WithClientOptions passes options through to the Sheets API client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) error {
		o.client = append(o.client, opts...)
		return nil
	}
}

// New connects to the spreadsheet.
func New(ctx context.Context, spreadsheetID string, opts ...Option) (*Store, error) {
	if spreadsheetID == "" {
		return nil, &errors.ConfigError{Component: "sheets", Message: "spreadsheet id is required"}
	}

	o := &options{timeout: constants.DefaultSheetsTimeout}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	clientOpts := o.client
	if o.credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(o.credentialsFile))
	}

	svc, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, &errors.ConfigError{Component: "sheets", Message: "cannot create client", Err: err}
	}

	return &Store{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		timeout:       o.timeout,
	}, nil
}

// ReadAll implements ledger.Store.
func (s *Store) ReadAll(ctx context.Context, sheet string) ([][]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.values.Get(s.spreadsheetID, quote(sheet)).Context(ctx).Do()
	if err != nil {
		return nil, apiError("read", sheet, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, cells := range resp.Values {
		row := make([]string, len(cells))
		for j, v := range cells {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	return rows, nil
}

// WriteHeaderCell implements ledger.Store.
func (s *Store) WriteHeaderCell(ctx context.Context, sheet string, column int, value string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rng := Range(sheet, ledger.CellRef(column, 1))
	_, err := s.values.Update(s.spreadsheetID, rng, &gsheets.ValueRange{
		Range:  rng,
		Values: [][]any{{value}},
	}).ValueInputOption(valueInput).Context(ctx).Do()
	if err != nil {
		return apiError("write_header", sheet, err)
	}
	return nil
}

// BatchWrite implements ledger.Store with a single values:batchUpdate call.
func (s *Store) BatchWrite(ctx context.Context, sheet string, cells []ledger.CellWrite) error {
	if len(cells) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data := make([]*gsheets.ValueRange, len(cells))
	for i, c := range cells {
		data[i] = &gsheets.ValueRange{
			Range:  Range(sheet, c.Range),
			Values: [][]any{{c.Value}},
		}
	}

	resp, err := s.values.BatchUpdate(s.spreadsheetID, &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInput,
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return apiError("batch_write", sheet, err)
	}

	logging.FromContext(ctx).Debug().
		Str("sheet", sheet).
		Int64("cells", resp.TotalUpdatedCells).
		Msg("Spreadsheet batch applied")
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Range qualifies an A1 reference with its worksheet title.
func Range(sheet, a1 string) string {
	return quote(sheet) + "!" + a1
}

// quote renders a worksheet title for A1 notation.
func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func apiError(op, sheet string, err error) error {
	return &errors.APIError{
		Service: "sheets",
		Message: fmt.Sprintf("%s %s", op, sheet),
		Err:     err,
	}
}
