package mapping

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/agentstation/crmsync/pkg/errors"
)

// customField matches CRM custom fields (cf_1153).
var customField = regexp.MustCompile(`^cf_[0-9]+$`)

// standardFields is the closed set of standard Leads fields.
var standardFields = map[string]bool{
	"salutationtype":   true,
	"firstname":        true,
	"lastname":         true,
	"company":          true,
	"designation":      true,
	"leadsource":       true,
	"industry":         true,
	"annualrevenue":    true,
	"noofemployees":    true,
	"leadstatus":       true,
	"rating":           true,
	"email":            true,
	"secondaryemail":   true,
	"phone":            true,
	"mobile":           true,
	"fax":              true,
	"website":          true,
	"emailoptout":      true,
	"assigned_user_id": true,
	"memberof":         true,
	"lane":             true,
	"city":             true,
	"state":            true,
	"code":             true,
	"country":          true,
	"pobox":            true,
	"description":      true,
}

// KnownField reports whether name is a valid CRM Leads field.
func KnownField(name string) bool {
	return standardFields[name] || customField.MatchString(name)
}

// Validate checks the configuration. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, errors.NewValidationError(field, nil, fmt.Sprintf(format, args...)))
	}
	crmField := func(key, name string, required bool) {
		switch {
		case name == "" && required:
			fail(key, "is required")
		case name != "" && !KnownField(name):
			fail(key, "unknown CRM field %q", name)
		}
	}

	if c.Module == "" {
		fail("module", "is required")
	}

	if c.Columns.Email == "" {
		fail("columns.email", "is required")
	}
	if c.Columns.Identifier == "" {
		fail("columns.identifier", "is required")
	}
	if c.Columns.Status == "" {
		fail("columns.status", "is required")
	}
	if c.Columns.Identifier != "" && c.Columns.Identifier == c.Columns.Status {
		fail("columns.status", "must differ from columns.identifier")
	}

	crmField("crm.activity_field", c.CRM.ActivityField, true)
	crmField("crm.opportunity_field", c.CRM.OpportunityField, true)
	crmField("crm.membership_field", c.CRM.MembershipField, false)
	crmField("crm.firstname_field", c.CRM.FirstnameField, true)
	crmField("crm.lastname_field", c.CRM.LastnameField, true)
	crmField("crm.mobile_field", c.CRM.MobileField, false)
	crmField("crm.phone_field", c.CRM.PhoneField, false)
	if c.CRM.DateFormat == "" {
		fail("crm.date_format", "is required")
	}

	for _, l := range []struct {
		key    string
		policy *LedgerPolicy
	}{{"exhibitor", c.Ledgers.Exhibitor}, {"speaker", c.Ledgers.Speaker}} {
		prefix, p := "ledgers."+l.key, l.policy
		if p == nil {
			fail(prefix, "is required")
			continue
		}
		if p.Sheet == "" {
			fail(prefix+".sheet", "is required")
		}
		if p.DateColumn == "" {
			fail(prefix+".date_column", "is required")
		}
		if p.Opportunity == "" {
			fail(prefix+".opportunity", "is required")
		}
	}
	if c.Ledgers.Exhibitor != nil && c.Ledgers.Speaker != nil &&
		c.Ledgers.Exhibitor.Sheet != "" && c.Ledgers.Exhibitor.Sheet == c.Ledgers.Speaker.Sheet {
		fail("ledgers.speaker.sheet", "must differ from the exhibitor sheet")
	}
	if c.Both.Opportunity == "" {
		fail("both.opportunity", "is required")
	}

	keys := make([]string, 0, len(c.Static))
	for k := range c.Static {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		crmField("static."+k, k, true)
	}

	if len(c.Fields) == 0 {
		fail("fields", "at least one field mapping is required")
	}
	columns := make(map[string]bool, len(c.Fields))
	targets := make(map[string]string, len(c.Fields))
	for i, f := range c.Fields {
		key := fmt.Sprintf("fields[%d]", i)
		if f.Column == "" {
			fail(key+".column", "is required")
		} else if columns[f.Column] {
			fail(key+".column", "column %q is mapped twice", f.Column)
		}
		columns[f.Column] = true

		crmField(key+".field", f.Field, true)
		if prev, ok := targets[f.Field]; ok && f.Field != "" {
			fail(key+".field", "CRM field %q is already mapped from %q", f.Field, prev)
		}
		targets[f.Field] = f.Column
	}

	return errors.Join(errs...)
}
