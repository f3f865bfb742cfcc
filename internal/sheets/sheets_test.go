package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/ledger"
)

type request struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

type fakeSheets struct {
	mu       gosync.Mutex
	requests []request
	values   [][]any
	fail     bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.fail {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`))
		return
	}

	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "sheet", "majorDimension": "ROWS", "values": f.values})
	case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id", "totalUpdatedCells": 2})
	default:
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id", "updatedCells": 1})
	}
}

func newStore(t *testing.T, fake *fakeSheets) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := New(context.Background(), "sheet-id", WithClientOptions(
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	))
	require.NoError(t, err)
	return s
}

func TestReadAll(t *testing.T) {
	fake := &fakeSheets{values: [][]any{
		{"Email", "First_Name", "Score"},
		{"jane@example.com", "Jane", 42},
		{"bob@example.com"},
	}}
	s := newStore(t, fake)

	rows, err := s.ReadAll(context.Background(), "exhibitors-1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Email", "First_Name", "Score"},
		{"jane@example.com", "Jane", "42"},
		{"bob@example.com"},
	}, rows)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodGet, fake.requests[0].Method)
	assert.Contains(t, fake.requests[0].Path, "/v4/spreadsheets/sheet-id/values/")
	assert.Contains(t, fake.requests[0].Path, "'exhibitors-1'")
}

func TestWriteHeaderCell(t *testing.T) {
	fake := &fakeSheets{}
	s := newStore(t, fake)

	require.NoError(t, s.WriteHeaderCell(context.Background(), "speakers-2", 5, "CRM Lead ID"))

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Contains(t, req.Path, "'speakers-2'!E1")
	assert.Contains(t, req.Query, "valueInputOption=RAW")
	assert.Equal(t, []any{[]any{"CRM Lead ID"}}, req.Body["values"])
}

func TestBatchWrite(t *testing.T) {
	fake := &fakeSheets{}
	s := newStore(t, fake)

	err := s.BatchWrite(context.Background(), "exhibitors-1", []ledger.CellWrite{
		{Range: "E2", Value: "10x1"},
		{Range: "F2", Value: "ADDED IN CRM"},
	})
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.True(t, strings.HasSuffix(req.Path, "/values:batchUpdate"))
	assert.Equal(t, "RAW", req.Body["valueInputOption"])

	data, ok := req.Body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	assert.Equal(t, "'exhibitors-1'!E2", first["range"])
	assert.Equal(t, []any{[]any{"10x1"}}, first["values"])
}

func TestBatchWriteEmpty(t *testing.T) {
	fake := &fakeSheets{}
	s := newStore(t, fake)

	require.NoError(t, s.BatchWrite(context.Background(), "exhibitors-1", nil))
	assert.Empty(t, fake.requests)
}

func TestAPIFailure(t *testing.T) {
	fake := &fakeSheets{fail: true}
	s := newStore(t, fake)

	_, err := s.ReadAll(context.Background(), "exhibitors-1")
	require.Error(t, err)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "sheets", apiErr.Service)
	assert.Contains(t, err.Error(), "exhibitors-1")
}

func TestRange(t *testing.T) {
	assert.Equal(t, "'exhibitors-1'!E2", Range("exhibitors-1", "E2"))
	assert.Equal(t, "'Bob''s sheet'!A1", Range("Bob's sheet", "A1"))
}

func TestNewValidation(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.Error(t, err)

	_, err = New(context.Background(), "id", WithCredentialsFile(""))
	assert.Error(t, err)

	_, err = New(context.Background(), "id", WithTimeout(-1))
	assert.Error(t, err)
}
