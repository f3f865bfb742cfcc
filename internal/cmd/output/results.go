package output

import (
	"io"

	"github.com/agentstation/crmsync/internal/cmd/table"
	"github.com/agentstation/crmsync/internal/journal"
	"github.com/agentstation/crmsync/pkg/mapping"
	"github.com/agentstation/crmsync/pkg/reconciler"
	"github.com/agentstation/crmsync/pkg/sync"
)

// render writes tables for table formats and raw otherwise.
func render(w io.Writer, format Format, tables func(wide bool) any, raw any) error {
	formatter := NewFormatter(format)
	if format.IsTable() {
		return formatter.Format(w, tables(format == FormatWide))
	}
	return formatter.Format(w, raw)
}

// FormatResult writes a pass result.
func FormatResult(w io.Writer, format Format, res *sync.Result) error {
	return render(w, format, func(wide bool) any {
		return table.ResultToTableData(res, wide)
	}, res)
}

// FormatPasses writes journaled passes.
func FormatPasses(w io.Writer, format Format, passes []journal.Pass) error {
	return render(w, format, func(wide bool) any {
		return table.PassesToTableData(passes, wide)
	}, passes)
}

// FormatOutcomes writes the outcomes of one pass.
func FormatOutcomes(w io.Writer, format Format, outcomes []reconciler.Outcome) error {
	return render(w, format, func(wide bool) any {
		return table.OutcomesToTableData(outcomes, wide)
	}, outcomes)
}

// FormatMapping writes the field mapping.
func FormatMapping(w io.Writer, format Format, cfg *mapping.Config) error {
	return render(w, format, func(bool) any {
		return table.MappingToTableData(cfg)
	}, cfg)
}

// FormatProperties writes a two-column property table, or raw for
// structured formats.
func FormatProperties(w io.Writer, format Format, rows [][]string, raw any) error {
	return render(w, format, func(bool) any {
		return table.Data{Headers: []string{"Property", "Value"}, Rows: rows}
	}, raw)
}
