package history

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/crmsync/cmd/application"
	"github.com/agentstation/crmsync/internal/journal"
	"github.com/agentstation/crmsync/pkg/reconciler"
)

type fakeHistory struct {
	passes   []journal.Pass
	outcomes map[string][]reconciler.Outcome
	limit    int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]journal.Pass, error) {
	f.limit = limit
	if limit < len(f.passes) {
		return f.passes[:limit], nil
	}
	return f.passes, nil
}

func (f *fakeHistory) Outcomes(_ context.Context, passID string) ([]reconciler.Outcome, error) {
	return f.outcomes[passID], nil
}

func newApp(h application.History, format string) *application.Mock {
	return &application.Mock{
		HistoryFunc:      func() (application.History, error) { return h, nil },
		OutputFormatFunc: func() string { return format },
	}
}

func sampleHistory() *fakeHistory {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &fakeHistory{
		passes: []journal.Pass{
			{ID: "pass-2", StartedAt: start.Add(time.Hour), EndedAt: start.Add(time.Hour + time.Second), Pulled: 1},
			{ID: "pass-1", StartedAt: start, EndedAt: start.Add(time.Second), Created: 2},
		},
		outcomes: map[string][]reconciler.Outcome{
			"pass-1": {
				{Flow: reconciler.FlowCreate, Email: "jane@example.com", CRMID: "10x1", Action: reconciler.ActionCreated},
			},
		},
	}
}

func TestHistoryRecent(t *testing.T) {
	h := sampleHistory()
	var buf bytes.Buffer

	require.NoError(t, Run(context.Background(), newApp(h, "json"), &buf, "", 1))
	assert.Equal(t, 1, h.limit)

	var got []journal.Pass
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "pass-2", got[0].ID)
}

func TestHistoryOutcomes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), newApp(sampleHistory(), "table"), &buf, "pass-1", 0))
	assert.Contains(t, buf.String(), "jane@example.com")
	assert.Contains(t, buf.String(), "10x1")
}

func TestHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), newApp(&fakeHistory{}, "table"), &buf, "", 20))
	assert.Equal(t, "No passes recorded yet\n", buf.String())

	buf.Reset()
	require.NoError(t, Run(context.Background(), newApp(&fakeHistory{}, "table"), &buf, "unknown", 20))
	assert.Equal(t, "No outcomes recorded for pass unknown\n", buf.String())
}

func TestHistoryCommandLimitFlag(t *testing.T) {
	h := sampleHistory()
	cmd := NewCommand(newApp(h, "json"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"-n", "5"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, 5, h.limit)
}
