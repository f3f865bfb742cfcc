package identity

import (
	"context"

	"github.com/agentstation/crmsync/pkg/ledger"
	"github.com/agentstation/crmsync/pkg/logging"
)

// Merge groups rows from any number of ledger snapshots into identities keyed
// by normalized email. Rows with an empty email are dropped. When one ledger
// holds several rows with the same email, the last one wins.
func Merge(ctx context.Context, emailColumn string, snapshots ...*ledger.Snapshot) *Set {
	logger := logging.FromContext(ctx)
	norm := NewNormalizer()
	set := &Set{byEmail: make(map[string]*Identity)}

	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		dropped := 0
		for _, row := range snap.Rows {
			email := norm.Normalize(row.Get(emailColumn))
			if email == "" {
				dropped++
				continue
			}

			id, ok := set.byEmail[email]
			if !ok {
				id = &Identity{Email: email}
				set.byEmail[email] = id
				set.order = append(set.order, email)
			}

			if prev := id.Row(row.Ledger); prev != nil {
				logger.Warn().
					Str("email", email).
					Str("ledger", row.Ledger.String()).
					Int("row", row.Number).
					Int("previous_row", prev.Number).
					Msg("Email repeated within ledger, using later row")
			}

			switch row.Ledger {
			case ledger.Exhibitor:
				id.Exhibitor = row
			case ledger.Speaker:
				id.Speaker = row
			}
		}
		if dropped > 0 {
			logger.Debug().
				Str("ledger", snap.Ledger.String()).
				Int("rows", dropped).
				Msg("Skipped rows without email")
		}
	}
	return set
}
