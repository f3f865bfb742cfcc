package reconciler

import (
	"context"

	"github.com/agentstation/crmsync/pkg/constants"
	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/identity"
	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/logging"
)

// Create runs the creation flow.
func (r *reconciler) Create(ctx context.Context, set *identity.Set, batch *ledger.Batcher) (*Report, error) {
	ctx = logging.WithFlow(ctx, string(FlowCreate))
	report := newReport(FlowCreate, r.dryRun)
	report.Identities = set.Len()

	for _, id := range set.Identities() {
		if err := ctx.Err(); err != nil {
			return report.finish(), err
		}
		changes, err := r.createIdentity(logging.WithEmail(ctx, id.Email), id, report)
		if err != nil {
			return report.finish(), err
		}
		batch.Queue(changes...)
	}

	logging.FromContext(ctx).Info().
		Int("identities", report.Identities).
		Int("created", report.Count(ActionCreated)).
		Int("copied", report.Count(ActionCopied)).
		Int("duplicates", report.Count(ActionDuplicate)).
		Int("failed", report.Count(ActionFailed)).
		Msg("Creation flow complete")
	return report.finish(), nil
}

// createIdentity resolves one identity. The returned changes are queued by
// the caller; an error is returned only when the pass must abort.
func (r *reconciler) createIdentity(ctx context.Context, id *identity.Identity, report *Report) (ledger.Changes, error) {
	logger := logging.FromContext(ctx)
	cols := r.mapping.Columns
	sel := identity.Select(id, cols.Identifier)
	primary, secondary := sel.Primary, sel.Secondary

	outcome := func(row *ledger.Row, crmID string, action Action, detail string) {
		report.add(Outcome{
			Email:  id.Email,
			Ledger: row.Ledger,
			Row:    row.Number,
			CRMID:  crmID,
			Action: action,
			Detail: detail,
		})
	}

	var changes ledger.Changes
	mark := func(row *ledger.Row, crmID, status string) {
		if row == nil {
			return
		}
		changes.Set(row, cols.Identifier, crmID)
		changes.Set(row, cols.Status, status)
	}

	if sel.PrimaryID != "" {
		switch {
		case sel.Conflict():
			logger.Warn().
				Str("crm_id", sel.PrimaryID).
				Str("other_crm_id", sel.SecondaryID).
				Msg("Ledgers hold different CRM ids for the same email, leaving both")
			outcome(secondary, sel.SecondaryID, ActionConflict, "primary holds "+sel.PrimaryID)
		case secondary != nil && sel.SecondaryID == "":
			mark(secondary, sel.PrimaryID, constants.StatusCopied)
			outcome(secondary, sel.PrimaryID, ActionCopied, "")
		}
		return changes, nil
	}

	payload := BuildPayload(r.mapping, primary, id.Presence())
	if r.dryRun {
		logger.Info().
			Str("ledger", primary.Ledger.String()).
			Int("row", primary.Number).
			Str("opportunity", payload[r.mapping.CRM.OpportunityField]).
			Msg("Dry run: would create CRM lead")
		outcome(primary, "", ActionWouldCreate, "")
		return nil, nil
	}

	logger.Info().Msg("Creating CRM lead")
	newID, err := r.client.Create(ctx, payload)
	switch {
	case err == nil:
		logger.Info().Str("crm_id", newID).Msg("Created CRM lead")
		mark(primary, newID, constants.StatusAdded)
		mark(secondary, newID, constants.StatusAdded)
		outcome(primary, newID, ActionCreated, "")

	case abort(err):
		return nil, err

	case errors.IsDuplicate(err):
		logger.Warn().Err(err).
			Str("ledger", primary.Ledger.String()).
			Int("row", primary.Number).
			Msg("CRM rejected lead as duplicate, marking ledgers")
		mark(primary, constants.DuplicateID, constants.StatusDuplicate)
		mark(secondary, constants.DuplicateID, constants.StatusDuplicate)
		outcome(primary, constants.DuplicateID, ActionDuplicate, "")

	default:
		logger.Error().Err(err).
			Str("ledger", primary.Ledger.String()).
			Int("row", primary.Number).
			Msg("Failed to create CRM lead")
		outcome(primary, "", ActionFailed, err.Error())
	}
	return changes, nil
}
