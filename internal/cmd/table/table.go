// Package table provides common table formatting utilities for CLI commands.
package table

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Title           string
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// maxDetail bounds free-text cells outside wide mode.
const maxDetail = 60

// Truncate shortens s to maxDetail runes unless wide is set.
func Truncate(s string, wide bool) string {
	if wide {
		return s
	}
	r := []rune(s)
	if len(r) <= maxDetail {
		return s
	}
	return string(r[:maxDetail-3]) + "..."
}

// Label turns a snake_case identifier into a title-cased label.
func Label(s string) string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(s, "_", " "))
}

// Dash returns "-" for empty cells.
func Dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Number formats a count, "-" for zero.
func Number(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

// YesNo formats a flag.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
