// Package mapping holds the field-mapping configuration: which ledger column
// feeds which CRM field, the static fields every new lead carries, and the
// per-ledger policy (sheet, activity date column, opportunity tags).
//
// The configuration is loaded once and validated against a closed set of
// CRM fields before a pass starts.
package mapping

import (
	_ "embed"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/identity"
	"github.com/agentstation/crmsync/pkg/ledger"
)

//go:embed mapping.yaml
var defaultMapping []byte

// Config is the complete field-mapping configuration.
type Config struct {
	Module  string            `yaml:"module"`
	Columns Columns           `yaml:"columns"`
	CRM     CRMFields         `yaml:"crm"`
	Ledgers Ledgers           `yaml:"ledgers"`
	Both    Tags              `yaml:"both"`
	Static  map[string]string `yaml:"static"`
	Fields  []Field           `yaml:"fields"`
}

// Columns names the ledger columns the engine reads and writes.
type Columns struct {
	Email      string `yaml:"email"`
	Identifier string `yaml:"identifier"`
	Status     string `yaml:"status"`
	Comments   string `yaml:"comments,omitempty"`
}

// CRMFields names the CRM fields with engine-defined semantics.
type CRMFields struct {
	ActivityField    string `yaml:"activity_field"`
	OpportunityField string `yaml:"opportunity_field"`
	MembershipField  string `yaml:"membership_field,omitempty"`
	FirstnameField   string `yaml:"firstname_field"`
	LastnameField    string `yaml:"lastname_field"`
	MobileField      string `yaml:"mobile_field,omitempty"`
	PhoneField       string `yaml:"phone_field,omitempty"`
	DateFormat       string `yaml:"date_format"`
}

// Tags are the opportunity and membership values for one presence.
type Tags struct {
	Opportunity string `yaml:"opportunity"`
	Membership  string `yaml:"membership,omitempty"`
}

// LedgerPolicy is the per-ledger configuration.
type LedgerPolicy struct {
	Sheet      string `yaml:"sheet"`
	DateColumn string `yaml:"date_column"`
	Tags       `yaml:",inline"`
}

// Ledgers holds the policy of both ledgers.
type Ledgers struct {
	Exhibitor *LedgerPolicy `yaml:"exhibitor"`
	Speaker   *LedgerPolicy `yaml:"speaker"`
}

// Field maps one ledger column to one CRM field.
type Field struct {
	Column string `yaml:"column"`
	Field  string `yaml:"field"`
	// Date marks values that are re-formatted with CRM.DateFormat.
	Date bool `yaml:"date,omitempty"`
}

// Default returns the built-in mapping.
func Default() (*Config, error) {
	return Parse(defaultMapping, "mapping.yaml")
}

// Load reads a mapping file, or the built-in mapping when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a mapping document. Unknown keys are rejected.
func Parse(data []byte, name string) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.WrapParse("yaml", name, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.MarshalWithOptions(c, yaml.Indent(2), yaml.IndentSequence(false))
}

// Policy returns the configuration of one ledger.
func (c *Config) Policy(kind ledger.Kind) LedgerPolicy {
	var p *LedgerPolicy
	switch kind {
	case ledger.Exhibitor:
		p = c.Ledgers.Exhibitor
	case ledger.Speaker:
		p = c.Ledgers.Speaker
	}
	if p == nil {
		return LedgerPolicy{}
	}
	return *p
}

// Sheets returns the sheet name of each ledger.
func (c *Config) Sheets() map[ledger.Kind]string {
	sheets := make(map[ledger.Kind]string, 2)
	for _, kind := range ledger.Kinds() {
		sheets[kind] = c.Policy(kind).Sheet
	}
	return sheets
}

// RequiredColumns returns the columns appended to a ledger when missing.
func (c *Config) RequiredColumns() []string {
	return []string{c.Columns.Identifier, c.Columns.Status}
}

// TagsFor returns the opportunity and membership tags for an identity's
// presence.
func (c *Config) TagsFor(p identity.Presence) Tags {
	switch p {
	case identity.Both:
		return c.Both
	case identity.ExhibitorOnly:
		return c.Policy(ledger.Exhibitor).Tags
	case identity.SpeakerOnly:
		return c.Policy(ledger.Speaker).Tags
	}
	return Tags{}
}
