package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/crmsync/pkg/reconciler"
)

// Result represents the complete result of one pass.
type Result struct {
	PassID    string    `json:"pass_id" yaml:"pass_id"`
	DryRun    bool      `json:"dry_run" yaml:"dry_run"`
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	EndTime   time.Time `json:"end_time" yaml:"end_time"`

	// Per-flow reports, nil when the flow was skipped or never ran
	Create *reconciler.Report `json:"create,omitempty" yaml:"create,omitempty"`
	Fields *reconciler.Report `json:"fields,omitempty" yaml:"fields,omitempty"`

	// Ledger cells written across both flushes
	Written int `json:"written" yaml:"written"`
}

// NewResult creates an empty result for a pass.
func NewResult(passID string, dryRun bool, start time.Time) *Result {
	return &Result{
		PassID:    passID,
		DryRun:    dryRun,
		StartTime: start,
	}
}

// Outcomes returns the outcomes of both flows, creation first.
func (r *Result) Outcomes() []reconciler.Outcome {
	var out []reconciler.Outcome
	for _, rep := range r.Reports() {
		out = append(out, rep.Outcomes...)
	}
	return out
}

// Reports returns the reports of the flows that ran.
func (r *Result) Reports() []*reconciler.Report {
	var reports []*reconciler.Report
	if r.Create != nil {
		reports = append(reports, r.Create)
	}
	if r.Fields != nil {
		reports = append(reports, r.Fields)
	}
	return reports
}

// Count sums action across both flows.
func (r *Result) Count(action reconciler.Action) int {
	return r.Create.Count(action) + r.Fields.Count(action)
}

// Failed returns the number of per-identity failures.
func (r *Result) Failed() int {
	return r.Count(reconciler.ActionFailed)
}

// Duration returns the wall time of the pass.
func (r *Result) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Summary returns a human-readable summary of the pass.
func (r *Result) Summary() string {
	parts := make([]string, 0, 3)
	for _, rep := range r.Reports() {
		parts = append(parts, rep.Summary())
	}
	if len(parts) == 0 {
		parts = append(parts, "no flows ran")
	}

	summary := strings.Join(parts, "; ")
	if r.DryRun {
		return summary + " (dry run)"
	}
	return fmt.Sprintf("%s; %d cells written", summary, r.Written)
}
