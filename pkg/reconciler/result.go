package reconciler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agentstation/crmsync/pkg/ledger"
)

// Flow names a reconciliation flow.
type Flow string

// Flows.
const (
	FlowCreate Flow = "create"
	FlowFields Flow = "fields"
)

// Action is what happened to one identity or row.
type Action string

// Actions recorded in a Report.
const (
	ActionCreated     Action = "created"      // record created, identifier propagated
	ActionWouldCreate Action = "would_create" // dry run
	ActionDuplicate   Action = "duplicate"    // create rejected as duplicate, marked terminal
	ActionCopied      Action = "copied"       // primary identifier copied to secondary
	ActionConflict    Action = "conflict"     // both rows hold different identifiers
	ActionFailed      Action = "failed"       // per-identity failure, retried next pass
	ActionExcluded    Action = "excluded"     // duplicate-marked row skipped by field sync
	ActionPushed      Action = "pushed"       // ledger date sent to the CRM
	ActionPulled      Action = "pulled"       // CRM date written to the ledger
	ActionComments    Action = "comments"     // comment history mirrored
	ActionCleared     Action = "cleared"      // stale identifier removed
)

// Outcome records one action.
type Outcome struct {
	Flow   Flow        `json:"flow" yaml:"flow"`
	Email  string      `json:"email" yaml:"email"`
	Ledger ledger.Kind `json:"ledger,omitempty" yaml:"ledger,omitempty"`
	Row    int         `json:"row,omitempty" yaml:"row,omitempty"`
	CRMID  string      `json:"crm_id,omitempty" yaml:"crm_id,omitempty"`
	Action Action      `json:"action" yaml:"action"`
	Detail string      `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Report is the outcome of one flow.
type Report struct {
	Flow       Flow           `json:"flow" yaml:"flow"`
	DryRun     bool           `json:"dry_run" yaml:"dry_run"`
	Identities int            `json:"identities" yaml:"identities"`
	Outcomes   []Outcome      `json:"outcomes" yaml:"outcomes"`
	Counts     map[Action]int `json:"counts" yaml:"counts"`
	StartTime  time.Time      `json:"start_time" yaml:"start_time"`
	Duration   time.Duration  `json:"duration" yaml:"duration"`
}

func newReport(flow Flow, dryRun bool) *Report {
	return &Report{
		Flow:      flow,
		DryRun:    dryRun,
		Counts:    make(map[Action]int),
		StartTime: time.Now(),
	}
}

func (r *Report) add(o Outcome) {
	o.Flow = r.Flow
	r.Outcomes = append(r.Outcomes, o)
	r.Counts[o.Action]++
}

func (r *Report) finish() *Report {
	r.Duration = time.Since(r.StartTime)
	return r
}

// Count returns how many outcomes recorded action.
func (r *Report) Count(action Action) int {
	if r == nil {
		return 0
	}
	return r.Counts[action]
}

// Failed returns the number of per-identity failures.
func (r *Report) Failed() int {
	return r.Count(ActionFailed)
}

// Summary returns a one-line summary of the counts.
func (r *Report) Summary() string {
	if r == nil || len(r.Counts) == 0 {
		return fmt.Sprintf("%s: no changes", r.flowName())
	}
	actions := make([]string, 0, len(r.Counts))
	for a := range r.Counts {
		actions = append(actions, string(a))
	}
	sort.Strings(actions)

	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = fmt.Sprintf("%d %s", r.Counts[Action(a)], a)
	}
	return fmt.Sprintf("%s: %s", r.flowName(), strings.Join(parts, ", "))
}

func (r *Report) flowName() Flow {
	if r == nil {
		return ""
	}
	return r.Flow
}
