package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/crmsync/internal/cmd/table"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"wide", FormatWide, false},
		{"", "", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestIsTable(t *testing.T) {
	assert.True(t, FormatTable.IsTable())
	assert.True(t, FormatWide.IsTable())
	assert.True(t, Format("").IsTable())
	assert.False(t, FormatJSON.IsTable())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, map[string]int{"created": 2}))
	assert.JSONEq(t, `{"created": 2}`, buf.String())
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatYAML).Format(&buf, map[string][]string{"sheets": {"a", "b"}}))
	assert.Equal(t, "sheets:\n- a\n- b\n", buf.String())
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := []table.Data{
		{Title: "First", Headers: []string{"Email", "Action"}, Rows: [][]string{{"jane@example.com", "Created"}}},
		{Headers: []string{"Count"}, Rows: [][]string{{"7"}}, ColumnAlignment: []table.Align{table.AlignRight}},
	}
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, data))

	out := buf.String()
	assert.Contains(t, out, "First\n")
	assert.Contains(t, out, "jane@example.com")
	assert.Contains(t, out, "Created")
	assert.Contains(t, out, "7")
}

func TestTableFormatterFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, []int{1, 2}))
	assert.JSONEq(t, `[1, 2]`, buf.String())
}
