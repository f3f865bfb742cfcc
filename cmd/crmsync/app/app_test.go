package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/crmsync/pkg/mapping"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		CRMURL:         "https://crm.example.com",
		CRMUsername:    "sync",
		CRMAccessKey:   "k3y",
		LedgerDir:      filepath.Join(dir, "ledgers"),
		JournalEnabled: true,
		JournalPath:    filepath.Join(dir, "journal.db"),
		LogOutput:      "discard",
	}
}

func newTestApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	a, err := New("1.0.0", "abc", "2024-03-01", "test", WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func TestNew(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	assert.Equal(t, "1.0.0", a.Version())
	assert.Equal(t, "abc", a.Commit())
	assert.Equal(t, "2024-03-01", a.Date())
	assert.Equal(t, "test", a.BuiltBy())
	assert.NotNil(t, a.Logger())
	assert.Equal(t, "", a.OutputFormat())

	_, err := New("1", "", "", "", WithConfig(nil))
	assert.Error(t, err)
}

func TestSyncerCached(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	s1, err := a.Syncer()
	require.NoError(t, err)
	s2, err := a.Syncer()
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, "exhibitors-1", s1.Mapping().Ledgers.Exhibitor.Sheet)

	session, err := a.Session()
	require.NoError(t, err)
	assert.Empty(t, session.UserID())

	h, err := a.History()
	require.NoError(t, err)
	passes, err := h.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, passes)

	_, err = os.Stat(a.Config().JournalPath)
	assert.NoError(t, err)
}

func TestSyncerMissingCRM(t *testing.T) {
	cfg := testConfig(t)
	cfg.CRMURL = ""
	a := newTestApp(t, cfg)

	_, err := a.Syncer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crm.url")
}

func TestSyncerMissingStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.LedgerDir = ""
	a := newTestApp(t, cfg)

	_, err := a.Syncer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheets.spreadsheet_id")
}

func TestJournalDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.JournalEnabled = false
	a := newTestApp(t, cfg)

	_, err := a.History()
	assert.Error(t, err)

	_, err = a.Syncer()
	require.NoError(t, err)
	_, err = os.Stat(cfg.JournalPath)
	assert.True(t, os.IsNotExist(err))
}

func TestMappingFile(t *testing.T) {
	cfg, err := mapping.Default()
	require.NoError(t, err)
	cfg.Module = "Contacts"
	data, err := cfg.YAML()
	require.NoError(t, err)

	appCfg := testConfig(t)
	appCfg.MappingFile = filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(appCfg.MappingFile, data, 0o600))

	a := newTestApp(t, appCfg)
	got, err := a.Mapping()
	require.NoError(t, err)
	assert.Equal(t, "Contacts", got.Module)
}

func TestExecute(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	ctx := context.Background()

	assert.NoError(t, a.Execute(ctx, []string{"version"}))
	assert.Error(t, a.Execute(ctx, []string{"validate", "-o", "xml"}))
	assert.Error(t, a.Execute(ctx, []string{"no-such-command"}))
}

func TestExecuteConfigFlag(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	path := writeConfig(t, "log:\n  output: discard\n")

	require.NoError(t, a.Execute(context.Background(), []string{"--config", path, "-o", "json", "validate"}))
	assert.Equal(t, path, a.Config().ConfigFile)
	assert.Equal(t, "json", a.Config().Format)
}

func TestShutdownIdempotent(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	_, err := a.History()
	require.NoError(t, err)

	assert.NoError(t, a.Shutdown(context.Background()))
	assert.NoError(t, a.Shutdown(context.Background()))
}
