// Package normalize provides utilities for normalizing and sanitizing data.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folder strips diacritics and case-folds, so "Émile" and "emile" compare
// equal when used as lookup or sort keys.
//
//nolint:gochecknoglobals // Static transformer chain, safe for concurrent use via Fold
var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sanitize removes null bytes and trims surrounding whitespace. Null bytes
// can slip in from CSV imports and break SQLite text storage.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == 0 { // null byte
			return -1 // drop it
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Fold returns a case-folded, diacritic-free form of s suitable for
// case-insensitive matching and sorting.
func Fold(s string) string {
	s = Sanitize(s)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		// Transform only fails on malformed UTF-8; fall back to the input.
		folded = s
	}
	return cases.Fold().String(folded)
}

// leading articles ignored when sorting titles
//
//nolint:gochecknoglobals // Static lookup table
var sortArticles = []string{"the ", "a ", "an "}

// TitleSortKey returns the key used to order titles alphabetically.
// "The Great Gatsby" sorts under G, not T.
func TitleSortKey(title string) string {
	key := Fold(title)
	for _, article := range sortArticles {
		if strings.HasPrefix(key, article) {
			return strings.TrimSpace(key[len(article):])
		}
	}
	return key
}

// AuthorSortKey returns the key used to order authors alphabetically.
// "Ursula K. Le Guin" becomes "le guin, ursula k." so authors group by
// surname the way a shelf would.
func AuthorSortKey(author string) string {
	key := Fold(author)
	fields := strings.Fields(key)
	if len(fields) < 2 {
		return key
	}
	last := fields[len(fields)-1]
	return last + ", " + strings.Join(fields[:len(fields)-1], " ")
}

// GenreSlug normalizes a genre label to a URL-safe slug.
// "Science Fiction" -> "science-fiction", "Sci-Fi " -> "sci-fi".
func GenreSlug(genre string) string {
	key := Fold(genre)
	var b strings.Builder
	b.Grow(len(key))
	lastDash := true // suppress leading dash
	for _, r := range key {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Email canonicalizes an email address for storage and lookup.
// Addresses are compared case-insensitively throughout the application.
func Email(email string) string {
	return strings.ToLower(Sanitize(email))
}
