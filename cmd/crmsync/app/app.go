// Package app provides the application context and dependency management
// for the crmsync CLI. It centralizes configuration, logging, and the
// lazily built syncer, CRM session and pass journal.
package app

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/crmsync"
	"github.com/agentstation/crmsync/cmd/application"
	"github.com/agentstation/crmsync/internal/csvledger"
	"github.com/agentstation/crmsync/internal/journal"
	"github.com/agentstation/crmsync/internal/sheets"
	"github.com/agentstation/crmsync/internal/transport"
	"github.com/agentstation/crmsync/pkg/crm"
	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/mapping"
)

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// App represents the crmsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Lazily built dependencies
	mu      sync.RWMutex
	mapping *mapping.Config
	session *crm.Session
	client  *crm.Client
	store   ledger.Store
	journal *journal.Journal
	syncer  crmsync.Syncer
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration loaded from the environment
// that can be customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Mapping returns the configured field mapping, loading it once.
func (a *App) Mapping() (*mapping.Config, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mappingLocked()
}

// Session returns the CRM login session shared by every command.
func (a *App) Session() (application.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.crmLocked(); err != nil {
		return nil, err
	}
	return a.session, nil
}

// History returns the pass journal, opening it once.
func (a *App) History() (application.History, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	j, err := a.journalLocked()
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, &errors.ConfigError{Component: "journal", Message: "journal is disabled (journal.enabled)"}
	}
	return j, nil
}

// Syncer returns the syncer, creating it lazily if needed.
// With options, a new syncer sharing the app's store and session is
// created on every call.
func (a *App) Syncer(opts ...crmsync.Option) (crmsync.Syncer, error) {
	if len(opts) == 0 {
		a.mu.RLock()
		if a.syncer != nil {
			s := a.syncer
			a.mu.RUnlock()
			return s, nil
		}
		a.mu.RUnlock()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if len(opts) == 0 && a.syncer != nil {
		return a.syncer, nil
	}

	s, err := a.buildSyncer(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "syncer", "", err)
	}
	if len(opts) == 0 {
		a.syncer = s
	}
	return s, nil
}

// Shutdown releases the journal.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.journal == nil {
		return nil
	}
	err := a.journal.Close()
	a.journal = nil
	return err
}

// buildSyncer wires store, CRM client, mapping and journal into a syncer.
func (a *App) buildSyncer(opts ...crmsync.Option) (crmsync.Syncer, error) {
	cfg, err := a.mappingLocked()
	if err != nil {
		return nil, err
	}
	if err := a.crmLocked(); err != nil {
		return nil, err
	}
	store, err := a.storeLocked()
	if err != nil {
		return nil, err
	}

	base := []crmsync.Option{crmsync.WithMapping(cfg)}
	j, err := a.journalLocked()
	if err != nil {
		return nil, err
	}
	if j != nil {
		base = append(base, crmsync.WithJournal(j))
	}

	return crmsync.New(store, a.client, append(base, opts...)...)
}

func (a *App) mappingLocked() (*mapping.Config, error) {
	if a.mapping != nil {
		return a.mapping, nil
	}
	cfg, err := mapping.Load(a.config.MappingFile)
	if err != nil {
		return nil, err
	}
	a.mapping = cfg
	return cfg, nil
}

func (a *App) crmLocked() error {
	if a.session != nil {
		return nil
	}
	if err := a.config.validateCRM(); err != nil {
		return err
	}
	endpoint, err := a.config.Endpoint()
	if err != nil {
		return err
	}

	module := a.config.CRMModule
	if module == "" {
		cfg, err := a.mappingLocked()
		if err != nil {
			return err
		}
		module = cfg.Module
	}

	tc := transport.New(endpoint,
		transport.WithHTTPClient(&http.Client{Timeout: a.config.HTTPTimeout}),
	)
	a.session = crm.NewSession(tc, crm.Credentials{
		Username:  a.config.CRMUsername,
		AccessKey: a.config.CRMAccessKey,
	}, crm.WithLifetime(a.config.SessionLifetime))
	a.client = crm.NewClient(tc, a.session, crm.WithModule(module))

	a.logger.Debug().
		Str("endpoint", tc.Endpoint()).
		Str("module", module).
		Msg("CRM client configured")
	return nil
}

func (a *App) storeLocked() (ledger.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	if a.config.LedgerDir != "" {
		store, err := csvledger.New(a.config.LedgerDir)
		if err != nil {
			return nil, err
		}
		a.logger.Debug().Str("dir", a.config.LedgerDir).Msg("Using CSV ledgers")
		a.store = store
		return store, nil
	}

	if a.config.SpreadsheetID == "" {
		return nil, &errors.ConfigError{
			Component: "ledger",
			Message:   "set sheets.spreadsheet_id (CRMSYNC_SHEETS_SPREADSHEET_ID) or ledger.dir (CRMSYNC_LEDGER_DIR)",
		}
	}
	sheetOpts := []sheets.Option{sheets.WithTimeout(a.config.SheetsTimeout)}
	if a.config.SheetsCredentialsFile != "" {
		sheetOpts = append(sheetOpts, sheets.WithCredentialsFile(a.config.SheetsCredentialsFile))
	}
	store, err := sheets.New(context.Background(), a.config.SpreadsheetID, sheetOpts...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("spreadsheet", a.config.SpreadsheetID).Msg("Using spreadsheet ledgers")
	a.store = store
	return store, nil
}

// journalLocked opens the journal, or returns nil when it is disabled.
func (a *App) journalLocked() (*journal.Journal, error) {
	if !a.config.JournalEnabled {
		return nil, nil
	}
	if a.journal != nil {
		return a.journal, nil
	}
	j, err := journal.Open(a.config.JournalPath)
	if err != nil {
		return nil, errors.WrapResource("open", "journal", a.config.JournalPath, err)
	}
	a.journal = j
	return j, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return &errors.ValidationError{Field: "config", Message: "cannot be nil"}
		}
		a.config = config
		logger := NewLogger(config)
		a.logger = &logger
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStore sets the ledger store (useful for testing).
func WithStore(store ledger.Store) Option {
	return func(a *App) error {
		a.store = store
		return nil
	}
}

// WithSyncer sets a custom syncer (useful for testing).
func WithSyncer(s crmsync.Syncer) Option {
	return func(a *App) error {
		a.syncer = s
		return nil
	}
}
