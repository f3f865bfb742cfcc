package mapping_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/identity"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/mapping"
)

func TestDefault(t *testing.T) {
	cfg, err := mapping.Default()
	require.NoError(t, err)

	assert.Equal(t, "Leads", cfg.Module)
	assert.Equal(t, "Email", cfg.Columns.Email)
	assert.Equal(t, []string{"CRM Lead ID", "CRM Update"}, cfg.RequiredColumns())
	assert.Equal(t, "cf_1153", cfg.CRM.ActivityField)
	assert.Equal(t, "2006-01-02", cfg.CRM.DateFormat)
	assert.Len(t, cfg.Fields, 23)
	assert.Equal(t, "19x77", cfg.Static["assigned_user_id"])

	assert.Equal(t, map[ledger.Kind]string{
		ledger.Exhibitor: "exhibitors-1",
		ledger.Speaker:   "speakers-2",
	}, cfg.Sheets())
	assert.Equal(t, "Last Follow-Up Date", cfg.Policy(ledger.Exhibitor).DateColumn)
	assert.Equal(t, "Email Sent-Date", cfg.Policy(ledger.Speaker).DateColumn)
	assert.Equal(t, mapping.LedgerPolicy{}, cfg.Policy(ledger.Kind("other")))
}

func TestTagsFor(t *testing.T) {
	cfg, err := mapping.Default()
	require.NoError(t, err)

	assert.Equal(t, mapping.Tags{Opportunity: "Exhibitor_opportunity", Membership: "Exhibitor"}, cfg.TagsFor(identity.ExhibitorOnly))
	assert.Equal(t, mapping.Tags{Opportunity: "speaker_opportunity", Membership: "Speaker"}, cfg.TagsFor(identity.SpeakerOnly))
	assert.Equal(t, mapping.Tags{Opportunity: "Exhibitor/Speaker", Membership: "Exhibitor,Speaker"}, cfg.TagsFor(identity.Both))
	assert.Equal(t, mapping.Tags{}, cfg.TagsFor(identity.Presence(0)))
}

const customMapping = `
module: Contacts
columns:
  email: E-mail
  identifier: Lead
  status: Status
crm:
  activity_field: cf_10
  opportunity_field: cf_11
  firstname_field: firstname
  lastname_field: lastname
  date_format: "02-01-2006"
ledgers:
  exhibitor:
    sheet: vendors
    date_column: Touched
    opportunity: Vendor
  speaker:
    sheet: talks
    date_column: Sent
    opportunity: Talk
both:
  opportunity: Both
static:
  leadstatus: New
fields:
- column: Name
  field: firstname
- column: Follow
  field: cf_12
  date: true
`

func TestYAML(t *testing.T) {
	cfg, err := mapping.Default()
	require.NoError(t, err)
	data, err := cfg.YAML()
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "exhibitors-1")
	assert.Contains(t, out, "activity_field: cf_1153")
	assert.Contains(t, out, "column: WhatsApp msg count")
}

func TestKnownField(t *testing.T) {
	assert.True(t, mapping.KnownField("firstname"))
	assert.True(t, mapping.KnownField("cf_1"))
	assert.True(t, mapping.KnownField("cf_1153"))
	assert.False(t, mapping.KnownField("cf_"))
	assert.False(t, mapping.KnownField("cf_12a"))
	assert.False(t, mapping.KnownField("First_Name"))
	assert.False(t, mapping.KnownField(""))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*mapping.Config)
		wantErr string
	}{
		{
			name:    "unknown mapped field",
			mutate:  func(c *mapping.Config) { c.Fields[0].Field = "first_name" },
			wantErr: `unknown CRM field "first_name"`,
		},
		{
			name:    "duplicate target field",
			mutate:  func(c *mapping.Config) { c.Fields[1].Field = c.Fields[0].Field },
			wantErr: "already mapped",
		},
		{
			name:    "duplicate column",
			mutate:  func(c *mapping.Config) { c.Fields[1].Column = c.Fields[0].Column },
			wantErr: "mapped twice",
		},
		{
			name:    "missing speaker ledger",
			mutate:  func(c *mapping.Config) { c.Ledgers.Speaker = nil },
			wantErr: "ledgers.speaker",
		},
		{
			name:    "same sheet for both ledgers",
			mutate:  func(c *mapping.Config) { c.Ledgers.Speaker.Sheet = c.Ledgers.Exhibitor.Sheet },
			wantErr: "must differ from the exhibitor sheet",
		},
		{
			name:    "unknown static field",
			mutate:  func(c *mapping.Config) { c.Static["owner"] = "1" },
			wantErr: "static.owner",
		},
		{
			name:    "identifier equals status column",
			mutate:  func(c *mapping.Config) { c.Columns.Status = c.Columns.Identifier },
			wantErr: "columns.status",
		},
		{
			name:    "missing activity field",
			mutate:  func(c *mapping.Config) { c.CRM.ActivityField = "" },
			wantErr: "crm.activity_field",
		},
		{
			name:    "missing date format",
			mutate:  func(c *mapping.Config) { c.CRM.DateFormat = "" },
			wantErr: "crm.date_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := mapping.Default()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, pkgerrors.IsValidationError(err))
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := &mapping.Config{}
	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"module", "columns.email", "crm.activity_field", "ledgers.exhibitor", "ledgers.speaker", "fields"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses built-in mapping", func(t *testing.T) {
		cfg, err := mapping.Load("")
		require.NoError(t, err)
		assert.Equal(t, "Leads", cfg.Module)
	})

	t.Run("custom file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mapping.yaml")
		require.NoError(t, os.WriteFile(path, []byte(customMapping), 0o600))

		cfg, err := mapping.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Contacts", cfg.Module)
		assert.Equal(t, "02-01-2006", cfg.CRM.DateFormat)
		assert.Equal(t, "vendors", cfg.Policy(ledger.Exhibitor).Sheet)
		assert.Equal(t, "Vendor", cfg.Policy(ledger.Exhibitor).Opportunity)
		assert.Empty(t, cfg.Both.Membership)
		require.Len(t, cfg.Fields, 2)
		assert.True(t, cfg.Fields[1].Date)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := mapping.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		var ioErr *pkgerrors.IOError
		assert.ErrorAs(t, err, &ioErr)
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		_, err := mapping.Parse([]byte("module: Leads\nunknown_key: 1\n"), "bad.yaml")
		require.Error(t, err)
		var parseErr *pkgerrors.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "bad.yaml", parseErr.File)
	})

	t.Run("invalid document fails validation", func(t *testing.T) {
		_, err := mapping.Parse([]byte(strings.TrimSpace(`
module: Leads
columns:
  email: Email
`)), "partial.yaml")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidationError(err))
	})
}
