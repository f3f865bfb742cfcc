package reconciler

import (
	"context"
	"strings"

	"github.com/agentstation/crmsync/pkg/constants"
	"github.com/agentstation/crmsync/pkg/crm"
	"github.com/agentstation/crmsync/pkg/dates"
	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/identity"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/logging"
)

// Fields runs the field flow.
func (r *reconciler) Fields(ctx context.Context, set *identity.Set, batch *ledger.Batcher) (*Report, error) {
	ctx = logging.WithFlow(ctx, string(FlowFields))
	report := newReport(FlowFields, r.dryRun)

	for _, id := range set.Identities() {
		if err := ctx.Err(); err != nil {
			return report.finish(), err
		}
		groups := r.eligible(id, report)
		if len(groups) == 0 {
			continue
		}
		report.Identities++

		// An identity's writes are queued together or not at all.
		ictx := logging.WithEmail(ctx, id.Email)
		var changes ledger.Changes
		for _, g := range groups {
			cs, ok, err := r.syncRecord(logging.WithField(ictx, "crm_id", g.id), id, g, report)
			if err != nil {
				return report.finish(), err
			}
			if !ok {
				changes = nil
				break
			}
			changes = append(changes, cs...)
		}
		batch.Queue(changes...)
	}

	logging.FromContext(ctx).Info().
		Int("identities", report.Identities).
		Int("pushed", report.Count(ActionPushed)).
		Int("pulled", report.Count(ActionPulled)).
		Int("cleared", report.Count(ActionCleared)).
		Int("failed", report.Count(ActionFailed)).
		Msg("Field flow complete")
	return report.finish(), nil
}

// recordGroup is the rows of one identity sharing a canonical identifier.
type recordGroup struct {
	id   string
	rows []*ledger.Row
}

// eligible groups an identity's rows by canonical identifier, leaving out
// rows without one and rows marked duplicate.
func (r *reconciler) eligible(id *identity.Identity, report *Report) []recordGroup {
	cols := r.mapping.Columns
	var groups []recordGroup
	for _, row := range id.Rows() {
		crmID := row.Value(cols.Identifier)
		if crmID == "" {
			continue
		}
		if crmID == constants.DuplicateID || strings.Contains(strings.ToUpper(row.Value(cols.Status)), constants.DuplicateID) {
			report.add(Outcome{Email: id.Email, Ledger: row.Ledger, Row: row.Number, CRMID: crmID, Action: ActionExcluded})
			continue
		}

		found := false
		for i := range groups {
			if groups[i].id == crmID {
				groups[i].rows = append(groups[i].rows, row)
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, recordGroup{id: crmID, rows: []*ledger.Row{row}})
		}
	}
	return groups
}

// syncRecord reconciles the rows pointing at one CRM record. ok is false
// when the record could not be read and the identity must be left untouched.
func (r *reconciler) syncRecord(ctx context.Context, id *identity.Identity, g recordGroup, report *Report) (ledger.Changes, bool, error) {
	logger := logging.FromContext(ctx)
	cols := r.mapping.Columns

	record, err := r.client.Retrieve(ctx, g.id)
	if err == nil {
		var comments string
		comments, err = r.client.ListComments(ctx, g.id)
		if err == nil {
			changes, err := r.syncRows(ctx, id, g, record, comments, report)
			return changes, true, err
		}
	}

	switch {
	case abort(err):
		return nil, false, err

	case errors.IsStaleIdentifier(err):
		var changes ledger.Changes
		for _, row := range g.rows {
			logger.Warn().Err(err).
				Str("ledger", row.Ledger.String()).
				Int("row", row.Number).
				Msg("Removing stale CRM id, creation flow will recreate it next pass")
			changes.Set(row, cols.Identifier, "")
			changes.Set(row, cols.Status, "")
			report.add(Outcome{Email: id.Email, Ledger: row.Ledger, Row: row.Number, CRMID: g.id, Action: ActionCleared, Detail: err.Error()})
		}
		return changes, true, nil

	default:
		for _, row := range g.rows {
			logger.Error().Err(err).
				Str("ledger", row.Ledger.String()).
				Int("row", row.Number).
				Msg("Failed to sync CRM record, skipping")
			report.add(Outcome{Email: id.Email, Ledger: row.Ledger, Row: row.Number, CRMID: g.id, Action: ActionFailed, Detail: err.Error()})
		}
		return nil, false, nil
	}
}

// syncRows resolves the activity date of each row against the record and
// mirrors comments. A pushed date updates the in-memory record so the next
// row compares against what the CRM now holds.
func (r *reconciler) syncRows(ctx context.Context, id *identity.Identity, g recordGroup, record crm.Record, comments string, report *Report) (ledger.Changes, error) {
	cols := r.mapping.Columns
	activity := r.mapping.CRM.ActivityField
	var changes ledger.Changes

	for _, row := range g.rows {
		rctx := logging.WithLedger(ctx, row.Ledger.String(), row.Number)
		logger := logging.FromContext(rctx)
		add := func(action Action, detail string) {
			report.add(Outcome{Email: id.Email, Ledger: row.Ledger, Row: row.Number, CRMID: g.id, Action: action, Detail: detail})
		}

		dateColumn := r.mapping.Policy(row.Ledger).DateColumn
		ledgerRaw := row.Value(dateColumn)
		crmRaw := strings.TrimSpace(record.String(activity))
		lt, lok := dates.Parse(ledgerRaw)
		ct, cok := dates.Parse(crmRaw)

		switch dates.Newer(dates.Day(lt), lok, dates.Day(ct), cok) {
		case 1:
			pushed := dates.Format(lt, r.mapping.CRM.DateFormat)
			updated := record.Clone()
			updated[activity] = pushed
			if r.dryRun {
				logger.Info().Str("value", pushed).Msg("Dry run: would update CRM activity date")
				add(ActionPushed, "dry run: "+pushed)
				break
			}
			if err := r.client.Update(rctx, g.id, updated); err != nil {
				if abort(err) {
					return nil, err
				}
				logger.Warn().Err(err).Str("value", pushed).Msg("CRM update rejected")
				add(ActionFailed, err.Error())
				break
			}
			logger.Info().Str("value", pushed).Msg("Pushed ledger date to CRM")
			record = updated
			add(ActionPushed, pushed)

		case -1:
			if !row.Has(dateColumn) {
				break
			}
			changes.Set(row, dateColumn, crmRaw)
			logger.Info().Str("value", crmRaw).Msg("Pulled CRM date into ledger")
			add(ActionPulled, crmRaw)
		}

		if comments != "" && cols.Comments != "" && row.Has(cols.Comments) && row.Get(cols.Comments) != comments {
			changes.Set(row, cols.Comments, comments)
			add(ActionComments, "")
		}
	}
	return changes, nil
}
