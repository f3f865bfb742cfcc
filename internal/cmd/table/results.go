package table

import (
	"sort"
	"strconv"
	"time"

	"github.com/agentstation/crmsync/internal/journal"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/mapping"
	"github.com/agentstation/crmsync/pkg/reconciler"
	"github.com/agentstation/crmsync/pkg/sync"
)

// timeLayout renders pass timestamps.
const timeLayout = "2006-01-02 15:04:05"

// ResultToTableData converts a pass result into a summary table and, when
// anything happened, an outcome table.
func ResultToTableData(res *sync.Result, wide bool) []Data {
	mode := "live"
	if res.DryRun {
		mode = "dry run"
	}
	summary := Data{
		Title:   "Pass " + res.PassID + " (" + mode + ")",
		Headers: []string{"Flow", "Identities", "Action", "Count"},
		ColumnAlignment: []Align{
			AlignLeft, AlignRight, AlignLeft, AlignRight,
		},
	}
	for _, rep := range res.Reports() {
		actions := make([]string, 0, len(rep.Counts))
		for action := range rep.Counts {
			actions = append(actions, string(action))
		}
		sort.Strings(actions)
		if len(actions) == 0 {
			summary.Rows = append(summary.Rows, []string{
				string(rep.Flow), strconv.Itoa(rep.Identities), "-", "-",
			})
		}
		for i, action := range actions {
			flow, identities := "", ""
			if i == 0 {
				flow, identities = string(rep.Flow), strconv.Itoa(rep.Identities)
			}
			summary.Rows = append(summary.Rows, []string{
				flow, identities, Label(action),
				strconv.Itoa(rep.Counts[reconciler.Action(action)]),
			})
		}
	}
	summary.Rows = append(summary.Rows, []string{
		"ledger", "", "Cells Written", strconv.Itoa(res.Written),
	})

	tables := []Data{summary}
	if outcomes := res.Outcomes(); len(outcomes) > 0 {
		tables = append(tables, OutcomesToTableData(outcomes, wide))
	}
	return tables
}

// OutcomesToTableData converts per-identity outcomes to table format.
func OutcomesToTableData(outcomes []reconciler.Outcome, wide bool) Data {
	headers := []string{"Flow", "Email", "Action", "CRM ID", "Detail"}
	if wide {
		headers = []string{"Flow", "Email", "Ledger", "Row", "Action", "CRM ID", "Detail"}
	}

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		if wide {
			row := "-"
			if o.Row > 0 {
				row = strconv.Itoa(o.Row)
			}
			rows = append(rows, []string{
				string(o.Flow), o.Email, Dash(o.Ledger.String()), row,
				Label(string(o.Action)), Dash(o.CRMID), Dash(o.Detail),
			})
			continue
		}
		rows = append(rows, []string{
			string(o.Flow), o.Email, Label(string(o.Action)),
			Dash(o.CRMID), Dash(Truncate(o.Detail, false)),
		})
	}

	return Data{Headers: headers, Rows: rows}
}

// PassesToTableData converts journaled passes to table format.
func PassesToTableData(passes []journal.Pass, wide bool) Data {
	headers := []string{"Pass", "Started", "Duration", "Created", "Pushed", "Pulled", "Failed", "Status"}
	if wide {
		headers = []string{
			"Pass", "Started", "Duration", "Dry Run", "Created", "Duplicates",
			"Conflicts", "Pushed", "Pulled", "Cleared", "Failed", "Written", "Status",
		}
	}

	rows := make([][]string, 0, len(passes))
	for _, p := range passes {
		status := "ok"
		if p.Error != "" {
			status = Truncate(p.Error, wide)
		}
		started := p.StartedAt.Local().Format(timeLayout)
		duration := p.EndedAt.Sub(p.StartedAt).Round(time.Millisecond).String()
		if wide {
			rows = append(rows, []string{
				p.ID, started, duration, YesNo(p.DryRun),
				Number(p.Created), Number(p.Duplicates), Number(p.Conflicts),
				Number(p.Pushed), Number(p.Pulled), Number(p.Cleared),
				Number(p.Failed), Number(p.Written), status,
			})
			continue
		}
		rows = append(rows, []string{
			p.ID, started, duration,
			Number(p.Created), Number(p.Pushed), Number(p.Pulled),
			Number(p.Failed), status,
		})
	}

	return Data{Headers: headers, Rows: rows}
}

// MappingToTableData converts the field mapping to table format: ledger
// policies first, then the column to field mapping.
func MappingToTableData(cfg *mapping.Config) []Data {
	policies := Data{
		Title:   "Ledgers (module " + cfg.Module + ")",
		Headers: []string{"Ledger", "Sheet", "Date Column", "Opportunity", "Membership"},
	}
	for _, kind := range ledger.Kinds() {
		p := cfg.Policy(kind)
		policies.Rows = append(policies.Rows, []string{
			kind.String(), Dash(p.Sheet), Dash(p.DateColumn), Dash(p.Opportunity), Dash(p.Membership),
		})
	}
	policies.Rows = append(policies.Rows, []string{
		"both", "-", "-", cfg.Both.Opportunity, Dash(cfg.Both.Membership),
	})

	fields := Data{
		Title:   "Fields",
		Headers: []string{"Column", "CRM Field", "Date"},
	}
	for _, f := range cfg.Fields {
		date := ""
		if f.Date {
			date = "yes"
		}
		fields.Rows = append(fields.Rows, []string{f.Column, f.Field, Dash(date)})
	}

	static := Data{
		Title:   "Static Fields",
		Headers: []string{"CRM Field", "Value"},
	}
	keys := make([]string, 0, len(cfg.Static))
	for k := range cfg.Static {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		static.Rows = append(static.Rows, []string{k, cfg.Static[k]})
	}

	return []Data{policies, fields, static}
}
