// Package journal keeps a SQLite history of reconciliation passes and the
// per-identity outcomes each pass recorded.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentstation/crmsync/pkg/constants"
	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/reconciler"
	"github.com/agentstation/crmsync/pkg/sync"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Pass is one journaled pass.
type Pass struct {
	ID         string    `json:"id" yaml:"id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	EndedAt    time.Time `json:"ended_at" yaml:"ended_at"`
	DryRun     bool      `json:"dry_run" yaml:"dry_run"`
	Created    int       `json:"created" yaml:"created"`
	Duplicates int       `json:"duplicates" yaml:"duplicates"`
	Conflicts  int       `json:"conflicts" yaml:"conflicts"`
	Pushed     int       `json:"pushed" yaml:"pushed"`
	Pulled     int       `json:"pulled" yaml:"pulled"`
	Cleared    int       `json:"cleared" yaml:"cleared"`
	Failed     int       `json:"failed" yaml:"failed"`
	Written    int       `json:"written" yaml:"written"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Journal is an append-only pass history.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("create", dir, err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	j := &Journal{db: db, path: path}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return j, nil
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS passes (
			id         TEXT PRIMARY KEY,
			started_at TEXT    NOT NULL,
			ended_at   TEXT    NOT NULL,
			dry_run    INTEGER NOT NULL DEFAULT 0,
			created    INTEGER NOT NULL DEFAULT 0,
			duplicates INTEGER NOT NULL DEFAULT 0,
			conflicts  INTEGER NOT NULL DEFAULT 0,
			pushed     INTEGER NOT NULL DEFAULT 0,
			pulled     INTEGER NOT NULL DEFAULT 0,
			cleared    INTEGER NOT NULL DEFAULT 0,
			failed     INTEGER NOT NULL DEFAULT 0,
			written    INTEGER NOT NULL DEFAULT 0,
			error      TEXT
		);

		CREATE TABLE IF NOT EXISTS outcomes (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			pass_id TEXT    NOT NULL,
			flow    TEXT    NOT NULL,
			email   TEXT    NOT NULL,
			ledger  TEXT,
			row_num INTEGER,
			crm_id  TEXT,
			result  TEXT    NOT NULL,
			detail  TEXT,
			FOREIGN KEY (pass_id) REFERENCES passes(id)
		);

		CREATE INDEX IF NOT EXISTS idx_outcomes_pass  ON outcomes(pass_id);
		CREATE INDEX IF NOT EXISTS idx_outcomes_email ON outcomes(email);
		CREATE INDEX IF NOT EXISTS idx_passes_started ON passes(started_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends a finished pass and its outcomes. passErr is the error
// that aborted the pass, if any.
func (j *Journal) Record(ctx context.Context, res *sync.Result, passErr error) (err error) {
	if res == nil {
		return &errors.ValidationError{Field: "result", Message: "cannot be nil"}
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var errText any
	if passErr != nil {
		errText = passErr.Error()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO passes (id, started_at, ended_at, dry_run, created, duplicates, conflicts,
		                     pushed, pulled, cleared, failed, written, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.PassID,
		formatTime(res.StartTime),
		formatTime(res.EndTime),
		res.DryRun,
		res.Count(reconciler.ActionCreated),
		res.Count(reconciler.ActionDuplicate),
		res.Count(reconciler.ActionConflict),
		res.Count(reconciler.ActionPushed),
		res.Count(reconciler.ActionPulled),
		res.Count(reconciler.ActionCleared),
		res.Failed(),
		res.Written,
		errText,
	)
	if err != nil {
		return fmt.Errorf("journal: insert pass %s: %w", res.PassID, err)
	}

	for _, o := range res.Outcomes() {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO outcomes (pass_id, flow, email, ledger, row_num, crm_id, result, detail)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			res.PassID, string(o.Flow), o.Email, string(o.Ledger), o.Row, o.CRMID, string(o.Action), o.Detail,
		)
		if err != nil {
			return fmt.Errorf("journal: insert outcome: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns the most recent passes, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Pass, error) {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, started_at, ended_at, dry_run, created, duplicates, conflicts,
		        pushed, pulled, cleared, failed, written, error
		 FROM passes ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var passes []Pass
	for rows.Next() {
		var (
			p              Pass
			started, ended string
			errText        sql.NullString
		)
		if err := rows.Scan(&p.ID, &started, &ended, &p.DryRun, &p.Created, &p.Duplicates, &p.Conflicts,
			&p.Pushed, &p.Pulled, &p.Cleared, &p.Failed, &p.Written, &errText); err != nil {
			return nil, err
		}
		p.StartedAt = parseTime(started)
		p.EndedAt = parseTime(ended)
		p.Error = errText.String
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

// Outcomes returns the outcomes recorded by a pass in recording order.
func (j *Journal) Outcomes(ctx context.Context, passID string) ([]reconciler.Outcome, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT flow, email, ledger, row_num, crm_id, result, detail
		 FROM outcomes WHERE pass_id = ? ORDER BY id`, passID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var outcomes []reconciler.Outcome
	for rows.Next() {
		var (
			o                         reconciler.Outcome
			flow, kind, crmID, action string
			detail                    sql.NullString
		)
		if err := rows.Scan(&flow, &o.Email, &kind, &o.Row, &crmID, &action, &detail); err != nil {
			return nil, err
		}
		o.Flow = reconciler.Flow(flow)
		o.Ledger = ledger.Kind(kind)
		o.CRMID = crmID
		o.Action = reconciler.Action(action)
		o.Detail = detail.String
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
