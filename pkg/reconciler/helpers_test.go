package reconciler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentstation/crmsync/pkg/crm"
	"github.com/agentstation/crmsync/pkg/identity"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/mapping"
	"github.com/agentstation/crmsync/pkg/reconciler"
)

// Column layout shared by both test ledgers: A Email, B First_Name,
// C activity date, D Comments, E CRM Lead ID, F CRM Update.
var (
	exhibitorHeader = []string{"Email", "First_Name", "Last Follow-Up Date", "Comments", "CRM Lead ID", "CRM Update"}
	speakerHeader   = []string{"Email", "First_Name", "Email Sent-Date", "Comments", "CRM Lead ID", "CRM Update"}
)

// row builds a ledger row: email, first name, date, comments, id, status.
func row(email, first, date, comments, id, status string) []string {
	return []string{email, first, date, comments, id, status}
}

type update struct {
	id     string
	record crm.Record
}

// fakeClient is an in-memory RecordClient.
type fakeClient struct {
	nextID      string
	createErr   error
	records     map[string]crm.Record
	comments    map[string]string
	retrieveErr map[string]error
	commentErr  error
	updateErr   error

	creates   []map[string]string
	retrieves []string
	updates   []update
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		nextID:      "123",
		records:     make(map[string]crm.Record),
		comments:    make(map[string]string),
		retrieveErr: make(map[string]error),
	}
}

func (f *fakeClient) Create(_ context.Context, payload map[string]string) (string, error) {
	f.creates = append(f.creates, payload)
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.nextID, nil
}

func (f *fakeClient) Retrieve(_ context.Context, id string) (crm.Record, error) {
	f.retrieves = append(f.retrieves, id)
	if err := f.retrieveErr[id]; err != nil {
		return nil, err
	}
	rec, ok := f.records[id]
	if !ok {
		rec = crm.Record{"id": id}
	}
	return rec.Clone(), nil
}

func (f *fakeClient) Update(_ context.Context, id string, record crm.Record) error {
	f.updates = append(f.updates, update{id: id, record: record})
	if f.updateErr != nil {
		return f.updateErr
	}
	f.records[id] = record
	return nil
}

func (f *fakeClient) ListComments(_ context.Context, id string) (string, error) {
	if f.commentErr != nil {
		return "", f.commentErr
	}
	return f.comments[id], nil
}

func (f *fakeClient) remoteCalls() int {
	return len(f.creates) + len(f.retrieves) + len(f.updates)
}

type fixture struct {
	t         *testing.T
	cfg       *mapping.Config
	client    *fakeClient
	exhibitor [][]string
	speaker   [][]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := mapping.Default()
	require.NoError(t, err)
	return &fixture{t: t, cfg: cfg, client: newFakeClient()}
}

func (fx *fixture) withExhibitor(rows ...[]string) *fixture {
	fx.exhibitor = rows
	return fx
}

func (fx *fixture) withSpeaker(rows ...[]string) *fixture {
	fx.speaker = rows
	return fx
}

func (fx *fixture) merge() *identity.Set {
	ex := ledger.NewSnapshot(ledger.Exhibitor, "exhibitors-1", append([][]string{exhibitorHeader}, fx.exhibitor...))
	sp := ledger.NewSnapshot(ledger.Speaker, "speakers-2", append([][]string{speakerHeader}, fx.speaker...))
	return identity.Merge(context.Background(), "Email", ex, sp)
}

func (fx *fixture) reconciler(opts ...reconciler.Option) reconciler.Reconciler {
	r, err := reconciler.New(fx.client, fx.cfg, opts...)
	require.NoError(fx.t, err)
	return r
}

func newBatch(cfg *mapping.Config) *ledger.Batcher {
	return ledger.NewBatcher(nil, cfg.Sheets())
}

// writes renders the queued writes of a ledger as "A1=value".
func writes(b *ledger.Batcher, kind ledger.Kind) []string {
	var out []string
	for _, c := range b.Pending(kind) {
		out = append(out, c.Range()+"="+c.Value)
	}
	return out
}

// apply writes queued changes back into the fixture's rows, as a flush and
// re-read would.
func (fx *fixture) apply(b *ledger.Batcher) {
	for _, kind := range ledger.Kinds() {
		rows := fx.exhibitor
		if kind == ledger.Speaker {
			rows = fx.speaker
		}
		for _, c := range b.Pending(kind) {
			r := rows[c.Row-2]
			for len(r) < c.Column {
				r = append(r, "")
			}
			r[c.Column-1] = c.Value
			rows[c.Row-2] = r
		}
	}
}
