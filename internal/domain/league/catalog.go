package league

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// League is one division published by the standings source.
type League struct {
	Slug   string
	Name   string
	Nested bool
}

var catalog = []League{
	{Slug: "mens-premier-division", Name: "Men's Premier Division"},
	{Slug: "womens-premier-division", Name: "Women's Premier Division"},
	{Slug: "mens-division-1", Name: "Men's Division 1"},
	{Slug: "womens-division-1", Name: "Women's Division 1"},
	{Slug: "division-2-men", Name: "Men's Division 2", Nested: true},
	{Slug: "division-3-men", Name: "Men's Division 3", Nested: true},
	{Slug: "wo-division-2-women", Name: "Women's Division 2", Nested: true},
	{Slug: "wo-division-3-women", Name: "Women's Division 3", Nested: true},
}

var (
	bySlug = make(map[string]League, len(catalog))
	byName = make(map[string]League, len(catalog))
)

func init() {
	for _, l := range catalog {
		bySlug[l.Slug] = l
		byName[foldKey(l.Name)] = l
	}
}

// Leagues returns the catalog in display order.
func Leagues() []League {
	return append([]League(nil), catalog...)
}

// CanonicalLeagueName maps a source file stem to the league's display name.
// Unknown stems are returned unchanged.
func CanonicalLeagueName(stem string) string {
	if l, ok := bySlug[strings.TrimSpace(stem)]; ok {
		return l.Name
	}
	return stem
}

// IsNestedLeague reports whether the league is split into sub-leagues.
func IsNestedLeague(name string) bool {
	l, ok := byName[foldKey(name)]
	return ok && l.Nested
}

func IsKnownLeague(name string) bool {
	_, ok := byName[foldKey(name)]
	return ok
}

// SlugFor returns the source stem for a canonical name, or "" when unknown.
func SlugFor(name string) string {
	if l, ok := byName[foldKey(name)]; ok {
		return l.Slug
	}
	return ""
}

// ResolveLeague accepts either a slug or a display name, case-insensitively.
func ResolveLeague(input string) (League, bool) {
	trimmed := strings.TrimSpace(input)
	if l, ok := bySlug[strings.ToLower(trimmed)]; ok {
		return l, true
	}
	l, ok := byName[foldKey(trimmed)]
	return l, ok
}

// MaxSubLeagueKeyLen is the width of the subleague_key column in runes.
const MaxSubLeagueKeyLen = 50

// SubLeagueKey is the comparison form of a sub-league label: NFC, case
// folded, whitespace collapsed. Stored next to the display value so that
// "D2M-A", "d2m-a " and "D2M-a" land on the same row key. Folding can grow
// a label ("ß" becomes "ss"), so the key is clipped to MaxSubLeagueKeyLen.
func SubLeagueKey(subLeague string) string {
	key := foldKey(subLeague)
	if utf8.RuneCountInString(key) <= MaxSubLeagueKeyLen {
		return key
	}
	return strings.TrimSpace(string([]rune(key)[:MaxSubLeagueKeyLen]))
}

// CleanLabel trims and collapses inner whitespace without changing case.
func CleanLabel(v string) string {
	return strings.Join(strings.Fields(norm.NFC.String(v)), " ")
}

func foldKey(v string) string {
	cleaned := CleanLabel(v)
	if cleaned == "" {
		return ""
	}
	return cases.Fold().String(cleaned)
}
