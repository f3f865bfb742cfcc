// Package identity groups ledger rows into one identity per normalized email
// and selects which row of an identity is authoritative.
package identity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/crmsync/pkg/ledger"
)

// Presence describes which ledgers contributed rows to an identity.
type Presence int

// Presence values.
const (
	ExhibitorOnly Presence = iota + 1
	SpeakerOnly
	Both
)

// String returns the presence name.
func (p Presence) String() string {
	switch p {
	case ExhibitorOnly:
		return "exhibitor"
	case SpeakerOnly:
		return "speaker"
	case Both:
		return "both"
	default:
		return "none"
	}
}

// Identity is one real-world contact: at most one row per ledger sharing a
// normalized email.
type Identity struct {
	Email     string
	Exhibitor *ledger.Row
	Speaker   *ledger.Row
}

// Row returns the identity's row in the given ledger, or nil.
func (id *Identity) Row(kind ledger.Kind) *ledger.Row {
	switch kind {
	case ledger.Exhibitor:
		return id.Exhibitor
	case ledger.Speaker:
		return id.Speaker
	}
	return nil
}

// Rows returns the contributing rows, exhibitor first.
func (id *Identity) Rows() []*ledger.Row {
	rows := make([]*ledger.Row, 0, 2)
	if id.Exhibitor != nil {
		rows = append(rows, id.Exhibitor)
	}
	if id.Speaker != nil {
		rows = append(rows, id.Speaker)
	}
	return rows
}

// Presence reports which ledgers the identity appears in.
func (id *Identity) Presence() Presence {
	switch {
	case id.Exhibitor != nil && id.Speaker != nil:
		return Both
	case id.Exhibitor != nil:
		return ExhibitorOnly
	case id.Speaker != nil:
		return SpeakerOnly
	}
	return 0
}

// Set is the result of a merge. Identities keep the order in which their
// email was first seen.
type Set struct {
	order   []string
	byEmail map[string]*Identity
}

// Get returns the identity for a normalized email.
func (s *Set) Get(email string) (*Identity, bool) {
	id, ok := s.byEmail[email]
	return id, ok
}

// Len returns the number of identities.
func (s *Set) Len() int {
	return len(s.order)
}

// Identities returns all identities in first-seen order.
func (s *Set) Identities() []*Identity {
	out := make([]*Identity, len(s.order))
	for i, email := range s.order {
		out[i] = s.byEmail[email]
	}
	return out
}

// Normalizer lower-cases and trims emails. A Normalizer is not safe for
// concurrent use.
type Normalizer struct {
	caser cases.Caser
}

// NewNormalizer creates an email normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{caser: cases.Lower(language.Und)}
}

// Normalize returns the identity key for a raw email cell.
func (n *Normalizer) Normalize(raw string) string {
	return n.caser.String(strings.TrimSpace(raw))
}

// NormalizeEmail is a convenience wrapper around a fresh Normalizer.
func NormalizeEmail(raw string) string {
	return NewNormalizer().Normalize(raw)
}
