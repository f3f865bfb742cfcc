package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// Entry is one decoded log line.
type Entry map[string]any

// Message returns the entry's message.
func (e Entry) Message() string {
	s, _ := e[zerolog.MessageFieldName].(string)
	return s
}

// Level returns the entry's level.
func (e Entry) Level() string {
	s, _ := e[zerolog.LevelFieldName].(string)
	return s
}

// TestLogger records JSON log output for assertions in tests.
type TestLogger struct {
	*zerolog.Logger
	Buffer *bytes.Buffer
}

// NewTestLogger creates a trace-level logger writing JSON into a buffer.
func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()

	previous := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(previous) })

	buf := &bytes.Buffer{}
	logger := zerolog.New(buf).Level(zerolog.TraceLevel)
	return &TestLogger{Logger: &logger, Buffer: buf}
}

// Context returns ctx carrying the test logger, so code under test that
// logs through FromContext is captured.
func (tl *TestLogger) Context(ctx context.Context) context.Context {
	return WithLogger(ctx, tl.Logger)
}

// Entries decodes every captured line. Lines that are not JSON fail the test.
func (tl *TestLogger) Entries(t testing.TB) []Entry {
	t.Helper()

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(tl.Buffer.String()), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("log line is not JSON: %v\n%s", err, line)
		}
		entries = append(entries, e)
	}
	return entries
}

// Find returns the captured entries logged with message msg.
func (tl *TestLogger) Find(t testing.TB, msg string) []Entry {
	t.Helper()

	var found []Entry
	for _, e := range tl.Entries(t) {
		if e.Message() == msg {
			found = append(found, e)
		}
	}
	return found
}
