package crm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/crmsync/pkg/crm"
	pkgerrors "github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/logging"
)

func newClient(t *testing.T) (*fakeCRM, *crm.Client) {
	t.Helper()
	f, srv := newFakeCRM(t)
	tc := newTransport(srv)
	s := crm.NewSession(tc, crm.Credentials{Username: testUser, AccessKey: testAccessKey})
	return f, crm.NewClient(tc, s)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns new id", func(t *testing.T) {
		f, c := newClient(t)
		id, err := c.Create(ctx, map[string]string{"firstname": "Jane", "lastname": "Doe"})
		require.NoError(t, err)
		assert.Equal(t, "10x100", id)
		require.Len(t, f.created, 1)
		assert.Equal(t, "Jane", f.created[0]["firstname"])
	})

	t.Run("duplicate rejection is classified and not retried", func(t *testing.T) {
		f, c := newClient(t)
		f.createFailure = map[string]any{"code": "DUPLICATE_RECORD", "message": "Duplicate(s) detected"}

		_, err := c.Create(ctx, map[string]string{"firstname": "Jane"})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsDuplicate(err))
		assert.Equal(t, 1, f.count("create"))

		var rerr *pkgerrors.RemoteError
		require.ErrorAs(t, err, &rerr)
		assert.Contains(t, rerr.Response, "Duplicate(s) detected")
	})

	t.Run("duplicate detected from message only", func(t *testing.T) {
		f, c := newClient(t)
		f.createFailure = map[string]any{"code": "", "message": "Lead is a duplicate of an existing record"}
		_, err := c.Create(ctx, map[string]string{"firstname": "Jane"})
		assert.True(t, pkgerrors.IsDuplicate(err))
	})

	t.Run("other failure", func(t *testing.T) {
		f, c := newClient(t)
		f.createFailure = map[string]any{"code": "MANDATORY_FIELDS_MISSING", "message": "lastname does not have a value"}
		_, err := c.Create(ctx, map[string]string{"firstname": "Jane"})
		require.Error(t, err)
		assert.False(t, pkgerrors.IsDuplicate(err))
		assert.Equal(t, pkgerrors.KindOther, pkgerrors.KindOf(err))
	})

	t.Run("authentication failure", func(t *testing.T) {
		_, srv := newFakeCRM(t)
		tc := newTransport(srv)
		c := crm.NewClient(tc, crm.NewSession(tc, crm.Credentials{Username: testUser, AccessKey: "bad"}))
		_, err := c.Create(ctx, map[string]string{"firstname": "Jane"})
		assert.True(t, pkgerrors.IsAuthentication(err))
	})
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("retries once after server-side session expiry", func(t *testing.T) {
		f, c := newClient(t)
		f.records["10x1"] = map[string]any{"id": "10x1", "cf_1153": "2024-03-01"}

		_, err := c.Retrieve(ctx, "10x1")
		require.NoError(t, err)
		f.expireSessions()

		rec, err := c.Retrieve(ctx, "10x1")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-01", rec.String("cf_1153"))
		assert.Equal(t, 2, f.count("login"))
		assert.Equal(t, 3, f.count("retrieve"))
	})

	t.Run("stale identifier after retry", func(t *testing.T) {
		f, c := newClient(t)
		_, err := c.Retrieve(ctx, "10x404")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsStaleIdentifier(err))
		assert.Equal(t, 2, f.count("retrieve"), "exactly one retry")
		assert.Equal(t, 2, f.count("login"))
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f, c := newClient(t)
	f.records["10x1"] = map[string]any{"id": "10x1"}

	rec := crm.Record{"firstname": "Jane", "createdtime": "2024-01-01 10:00:00", "modifiedtime": "2024-01-02 10:00:00", "cf_1153": "2024-03-05"}
	require.NoError(t, c.Update(ctx, "10x1", rec))

	require.Len(t, f.updated, 1)
	sent := f.updated[0]
	assert.Equal(t, "10x1", sent["id"])
	assert.Equal(t, "2024-03-05", sent["cf_1153"])
	assert.NotContains(t, sent, "createdtime")
	assert.NotContains(t, sent, "modifiedtime")
	assert.Contains(t, rec, "createdtime", "caller record is not modified")

	err := c.Update(ctx, "10x9", crm.Record{})
	assert.True(t, pkgerrors.IsStaleIdentifier(err))
	assert.Equal(t, 2, f.count("update"), "update is not retried")
}

func TestListComments(t *testing.T) {
	ctx := context.Background()

	t.Run("newest first", func(t *testing.T) {
		f, c := newClient(t)
		f.comments["10x1"] = []crm.Comment{
			{Content: "first call", CreatedTime: "2024-03-01T09:00:00"},
			{Content: "  ", CreatedTime: "2024-03-02T09:00:00"},
			{Content: "sent deck", CreatedTime: "2024-03-03T09:00:00"},
		}

		text, err := c.ListComments(ctx, "10x1")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-03 09:00:00 : sent deck\n2024-03-01 09:00:00 : first call", text)
	})

	t.Run("no comments", func(t *testing.T) {
		_, c := newClient(t)
		text, err := c.ListComments(ctx, "10x2")
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("query failure yields empty text", func(t *testing.T) {
		f, c := newClient(t)
		f.queryFailure = map[string]any{"code": "QUERY_SYNTAX_ERROR", "message": "bad query"}
		tl := logging.NewTestLogger(t)
		text, err := c.ListComments(tl.Context(ctx), "10x1")
		require.NoError(t, err)
		assert.Empty(t, text)
		assert.Equal(t, 2, f.count("query"))

		warns := tl.Find(t, "Comment query failed, continuing without comments")
		require.Len(t, warns, 1)
		assert.Equal(t, "10x1", warns[0]["crm_id"])
	})

	t.Run("malformed id is not queried", func(t *testing.T) {
		f, c := newClient(t)
		tl := logging.NewTestLogger(t)
		text, err := c.ListComments(tl.Context(ctx), "10x1' or '1'='1")
		require.NoError(t, err)
		assert.Empty(t, text)
		assert.Zero(t, f.count("query"))
		assert.Len(t, tl.Find(t, "Refusing comment query for malformed id"), 1)
	})
}

func TestFormatComments(t *testing.T) {
	assert.Empty(t, crm.FormatComments(nil))
	got := crm.FormatComments([]crm.Comment{
		{Content: "b", CreatedTime: "2024-03-02 10:00:00"},
		{Content: "a", CreatedTime: "2024-03-01 10:00:00"},
	})
	assert.Equal(t, "2024-03-02 10:00:00 : b\n2024-03-01 10:00:00 : a", got)
}

func TestRecordString(t *testing.T) {
	rec := crm.Record{"s": "x", "n": float64(5), "f": 2.5, "b": true, "nil": nil}
	assert.Equal(t, "x", rec.String("s"))
	assert.Equal(t, "5", rec.String("n"))
	assert.Equal(t, "2.5", rec.String("f"))
	assert.Equal(t, "true", rec.String("b"))
	assert.Equal(t, "", rec.String("nil"))
	assert.Equal(t, "", rec.String("missing"))
}
