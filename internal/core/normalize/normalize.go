// Package normalize canonicalises free-text ingredient and unit names into lookup keys.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// collapse trims s and folds every run of whitespace into one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Name returns the lookup key for an ingredient, category or meal category name.
func Name(s string) string {
	return lower.String(collapse(norm.NFC.String(s)))
}

// UnitCode returns the canonical unit code.
func UnitCode(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Singular derives a naive English singular used as a secondary lookup key.
// Input is expected to be a normalized name.
func Singular(s string) string {
	n := utf8.RuneCountInString(s)
	switch {
	case n > 3 && strings.HasSuffix(s, "ies"):
		return strings.TrimSuffix(s, "ies") + "y"
	case n > 3 && strings.HasSuffix(s, "es"):
		return strings.TrimSuffix(s, "es")
	case n > 2 && strings.HasSuffix(s, "s"):
		return strings.TrimSuffix(s, "s")
	}
	return s
}

// Display tidies a name for storage: whitespace collapsed, first letter upper-cased.
func Display(s string) string {
	s = collapse(norm.NFC.String(s))
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// IsBlank reports whether s has no visible content.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
