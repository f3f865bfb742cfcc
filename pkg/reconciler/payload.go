package reconciler

import (
	"github.com/agentstation/crmsync/pkg/dates"
	"github.com/agentstation/crmsync/pkg/identity"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/mapping"
)

// defaultLastname is sent when a row has neither surname nor first name; the
// CRM rejects leads without a surname.
const defaultLastname = "Unknown"

// BuildPayload builds the create payload for an identity from its primary
// row: static fields overlaid with the mapped, trimmed ledger values, then the
// derived fields (surname fallback, phone, activity date, tags).
func BuildPayload(cfg *mapping.Config, row *ledger.Row, presence identity.Presence) map[string]string {
	payload := make(map[string]string, len(cfg.Static)+len(cfg.Fields)+4)
	for field, value := range cfg.Static {
		payload[field] = value
	}

	for _, f := range cfg.Fields {
		value := row.Value(f.Column)
		if f.Date {
			if formatted, ok := dates.Reformat(value, cfg.CRM.DateFormat); ok {
				value = formatted
			}
		}
		payload[f.Field] = value
	}

	crmf := cfg.CRM
	if payload[crmf.LastnameField] == "" {
		if first := payload[crmf.FirstnameField]; first != "" {
			payload[crmf.LastnameField] = first
		} else {
			payload[crmf.LastnameField] = defaultLastname
		}
	}

	if crmf.MobileField != "" && crmf.PhoneField != "" {
		if mobile := payload[crmf.MobileField]; mobile != "" && payload[crmf.PhoneField] == "" {
			payload[crmf.PhoneField] = mobile
		}
	}

	policy := cfg.Policy(row.Ledger)
	if activity, ok := dates.Reformat(row.Value(policy.DateColumn), cfg.CRM.DateFormat); ok {
		payload[crmf.ActivityField] = activity
	}

	tags := cfg.TagsFor(presence)
	payload[crmf.OpportunityField] = tags.Opportunity
	if crmf.MembershipField != "" {
		payload[crmf.MembershipField] = tags.Membership
	}
	return payload
}
