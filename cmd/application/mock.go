package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/crmsync"
	"github.com/agentstation/crmsync/pkg/mapping"
)

// Compile-time interface check.
var _ Application = (*Mock)(nil)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	SyncerFunc       func(opts ...crmsync.Option) (crmsync.Syncer, error)
	MappingFunc      func() (*mapping.Config, error)
	SessionFunc      func() (Session, error)
	HistoryFunc      func() (History, error)
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

// Syncer returns a syncer using the mock function or nil.
func (m *Mock) Syncer(opts ...crmsync.Option) (crmsync.Syncer, error) {
	if m.SyncerFunc != nil {
		return m.SyncerFunc(opts...)
	}
	return nil, nil
}

// Mapping returns a mapping using the mock function or the built-in mapping.
func (m *Mock) Mapping() (*mapping.Config, error) {
	if m.MappingFunc != nil {
		return m.MappingFunc()
	}
	return mapping.Default()
}

// Session returns a session using the mock function or nil.
func (m *Mock) Session() (Session, error) {
	if m.SessionFunc != nil {
		return m.SessionFunc()
	}
	return nil, nil
}

// History returns a journal using the mock function or nil.
func (m *Mock) History() (History, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc()
	}
	return nil, nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns the version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns the commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns the date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns the builder using the mock function or "unknown".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "unknown"
}
