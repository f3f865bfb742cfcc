package csvledger

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/crmsync/pkg/ledger"
)

func newStore(t *testing.T, files map[string]string) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, contents := range files {
		require.NoError(t, afero.WriteFile(fs, "/ledgers/"+name, []byte(contents), 0644))
	}
	s, err := New("/ledgers", WithFs(fs))
	require.NoError(t, err)
	return s, fs
}

func TestReadAll(t *testing.T) {
	s, _ := newStore(t, map[string]string{
		"exhibitors-1.csv": "Email,First_Name,Comments\njane@example.com,Jane\n\"bob@example.com\",Bob,\"said \"\"hi\"\"\"\n",
	})

	rows, err := s.ReadAll(context.Background(), "exhibitors-1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Email", "First_Name", "Comments"},
		{"jane@example.com", "Jane"},
		{"bob@example.com", "Bob", `said "hi"`},
	}, rows)
}

func TestReadAllErrors(t *testing.T) {
	s, _ := newStore(t, map[string]string{
		"broken.csv": "Email,Name\n\"unterminated,x\n",
	})

	_, err := s.ReadAll(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	_, err = s.ReadAll(context.Background(), "broken")
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.ReadAll(ctx, "broken")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteHeaderCell(t *testing.T) {
	s, fs := newStore(t, map[string]string{
		"speakers-2.csv": "Email,Name\na@x.com,Ann\n",
	})
	ctx := context.Background()

	require.NoError(t, s.WriteHeaderCell(ctx, "speakers-2", 4, "CRM Lead ID"))

	rows, err := s.ReadAll(ctx, "speakers-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "Name", "", "CRM Lead ID"}, rows[0])
	assert.Equal(t, []string{"a@x.com", "Ann", "", ""}, rows[1])

	exists, err := afero.Exists(fs, s.Path("speakers-2")+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBatchWrite(t *testing.T) {
	s, _ := newStore(t, map[string]string{
		"exhibitors-1.csv": "Email,CRM Lead ID,CRM Update\na@x.com\nb@x.com,,\n",
	})
	ctx := context.Background()

	err := s.BatchWrite(ctx, "exhibitors-1", []ledger.CellWrite{
		{Range: "B2", Value: "10x1"},
		{Range: "C2", Value: "ADDED IN CRM"},
		{Range: "B2", Value: "10x2"},
		{Range: "A5", Value: "late@x.com"},
	})
	require.NoError(t, err)

	rows, err := s.ReadAll(ctx, "exhibitors-1")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"a@x.com", "10x2", "ADDED IN CRM"}, rows[1], "later writes win")
	assert.Equal(t, []string{"", "", ""}, rows[3], "gap rows keep their position")
	assert.Equal(t, "late@x.com", rows[4][0])
}

func TestBatchWriteInvalidRange(t *testing.T) {
	s, _ := newStore(t, map[string]string{
		"exhibitors-1.csv": "Email\na@x.com\n",
	})
	err := s.BatchWrite(context.Background(), "exhibitors-1", []ledger.CellWrite{{Range: "2B", Value: "x"}})
	require.Error(t, err)

	rows, err := s.ReadAll(context.Background(), "exhibitors-1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Email"}, {"a@x.com"}}, rows, "nothing written")
}

func TestLoadThroughStore(t *testing.T) {
	s, _ := newStore(t, map[string]string{
		"exhibitors-1.csv": "Email,First_Name\njane@example.com,Jane\n",
	})

	snap, err := ledger.Load(context.Background(), s, ledger.Exhibitor, "exhibitors-1", "CRM Lead ID", "CRM Update")
	require.NoError(t, err)
	col, ok := snap.Column("CRM Update")
	require.True(t, ok)
	assert.Equal(t, 4, col)
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "jane@example.com", snap.Rows[0].Get("Email"))
}

func TestNew(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("/x", WithFs(nil))
	assert.Error(t, err)
}
