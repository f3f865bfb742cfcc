package identity

import (
	"github.com/agentstation/crmsync/pkg/ledger"
)

// Selection is the outcome of primary selection for one identity.
type Selection struct {
	Primary     *ledger.Row
	Secondary   *ledger.Row // nil when the identity has a single row
	PrimaryID   string
	SecondaryID string
}

// Conflict reports whether both rows carry different non-empty identifiers.
func (s Selection) Conflict() bool {
	return s.PrimaryID != "" && s.SecondaryID != "" && s.PrimaryID != s.SecondaryID
}

// Select picks the authoritative row of an identity, reading canonical
// identifiers from idColumn:
//
//  1. a row holding an identifier is primary when the other does not;
//  2. when both hold one, the exhibitor row is primary;
//  3. when neither does, the exhibitor row is primary if present.
func Select(id *Identity, idColumn string) Selection {
	ex, sp := id.Exhibitor, id.Speaker
	switch {
	case ex != nil && sp != nil:
		exID, spID := ex.Value(idColumn), sp.Value(idColumn)
		if exID == "" && spID != "" {
			return Selection{Primary: sp, Secondary: ex, PrimaryID: spID}
		}
		return Selection{Primary: ex, Secondary: sp, PrimaryID: exID, SecondaryID: spID}
	case ex != nil:
		return Selection{Primary: ex, PrimaryID: ex.Value(idColumn)}
	case sp != nil:
		return Selection{Primary: sp, PrimaryID: sp.Value(idColumn)}
	}
	return Selection{}
}
