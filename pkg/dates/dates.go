// Package dates parses the free-form dates humans type into ledger cells and
// formats them for the CRM.
//
// Parsing is lenient and day-first: "05/03/2024", "5-3-2024" and "05.03.2024"
// are all the 5th of March. Empty or
// unparsable values are reported as absent rather than as errors, because a
// malformed cell must never block reconciliation of the rest of the row.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// CRMLayout is the layout the CRM stores date fields in.
const CRMLayout = "2006-01-02"

// dayFirst matches numeric dates separated by dashes or dots, "5-3-2024" or
// "05.03.2024", with an optional time of day.
var dayFirst = regexp.MustCompile(`^(\d{1,2})[-.](\d{1,2})[-.](\d{4}|\d{2})(\s.*)?$`)

// Parse parses a ledger or CRM date value. The boolean is false when the
// value is empty or cannot be understood.
func Parse(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(normalize(value), time.UTC, dateparse.PreferMonthFirst(false), dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// normalize rewrites dashed and dotted numeric dates to the zero-padded
// slash form, which dateparse reads day-first.
func normalize(value string) string {
	m := dayFirst.FindStringSubmatch(value)
	if m == nil {
		return value
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	return fmt.Sprintf("%02d/%02d/%s%s", day, month, m[3], m[4])
}

// Format renders t with layout, returning "" for the zero time.
func Format(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	if layout == "" {
		layout = CRMLayout
	}
	return t.Format(layout)
}

// Reformat parses value and renders it with layout. Unparsable input yields
// "" and false.
func Reformat(value, layout string) (string, bool) {
	t, ok := Parse(value)
	if !ok {
		return "", false
	}
	return Format(t, layout), true
}

// Newer reports how two optional dates compare: 1 when a is newer (or b is
// absent), -1 when b is newer (or a is absent), 0 when equal or both absent.
func Newer(a time.Time, aok bool, b time.Time, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case aok && !bok:
		return 1
	case !aok && bok:
		return -1
	case a.After(b):
		return 1
	case b.After(a):
		return -1
	default:
		return 0
	}
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
