// Package constants provides shared constants used throughout the crmsync codebase.
// This includes timeouts, ledger markers, file permissions, and other values
// that must stay consistent between the reconcilers, the CLI and the tests.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for requests to the CRM webservice
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultSheetsTimeout is the timeout for a single tabular store call
	DefaultSheetsTimeout = 60 * time.Second

	// DefaultSessionLifetime is how long a CRM session is trusted when the
	// server does not declare an expiry
	DefaultSessionLifetime = 1 * time.Hour

	// ShutdownTimeout bounds cleanup after a failed command
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Ledger marker values written to the identifier and status columns.
const (
	// DuplicateID is the identifier sentinel for identities the CRM rejected
	// as duplicates. Identities carrying it are never retried automatically.
	DuplicateID = "DUPLICATE"

	// StatusAdded marks rows whose canonical record was created by this pass.
	StatusAdded = "ADDED IN CRM"

	// StatusCopied marks a secondary row that received the primary's identifier.
	StatusCopied = "DUPLICATE – CRM ID COPIED"

	// StatusDuplicate marks rows whose creation was rejected as a duplicate.
	StatusDuplicate = "Failed to add in CRM – Duplicate detected"
)

// CRM webservice defaults.
const (
	// DefaultModule is the CRM module canonical records live in
	DefaultModule = "Leads"

	// WebservicePath is appended to the configured CRM base URL
	WebservicePath = "/webservice.php"
)

// Journal constants
const (
	// DefaultHistoryLimit is how many passes `crmsync history` shows by default
	DefaultHistoryLimit = 20
)
