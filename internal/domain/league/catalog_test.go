package league

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCanonicalLeagueName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stem string
		want string
	}{
		{stem: "mens-premier-division", want: "Men's Premier Division"},
		{stem: "womens-premier-division", want: "Women's Premier Division"},
		{stem: "mens-division-1", want: "Men's Division 1"},
		{stem: "womens-division-1", want: "Women's Division 1"},
		{stem: "division-2-men", want: "Men's Division 2"},
		{stem: "division-3-men", want: "Men's Division 3"},
		{stem: "wo-division-2-women", want: "Women's Division 2"},
		{stem: "wo-division-3-women", want: "Women's Division 3"},
		{stem: "beach-league", want: "beach-league"},
	}

	for _, tt := range tests {
		t.Run(tt.stem, func(t *testing.T) {
			if got := CanonicalLeagueName(tt.stem); got != tt.want {
				t.Fatalf("CanonicalLeagueName(%q)=%q want=%q", tt.stem, got, tt.want)
			}
		})
	}
}

func TestIsNestedLeague(t *testing.T) {
	t.Parallel()

	nested := []string{"Men's Division 2", "Men's Division 3", "Women's Division 2", "Women's Division 3", "men's division 2"}
	for _, name := range nested {
		if !IsNestedLeague(name) {
			t.Fatalf("expected %q to be nested", name)
		}
	}

	flat := []string{"Men's Premier Division", "Women's Division 1", "division-2-men", ""}
	for _, name := range flat {
		if IsNestedLeague(name) {
			t.Fatalf("expected %q to be flat", name)
		}
	}
}

func TestResolveLeague(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"division-2-men", "Men's Division 2", "  MEN'S DIVISION 2 "} {
		got, ok := ResolveLeague(in)
		if !ok {
			t.Fatalf("expected %q to resolve", in)
		}
		if got.Slug != "division-2-men" || !got.Nested {
			t.Fatalf("unexpected league for %q: %+v", in, got)
		}
	}

	if _, ok := ResolveLeague("unknown"); ok {
		t.Fatalf("did not expect unknown league to resolve")
	}
	if SlugFor("Women's Division 3") != "wo-division-3-women" {
		t.Fatalf("unexpected slug for Women's Division 3")
	}
	if len(Leagues()) != 8 {
		t.Fatalf("expected 8 catalog leagues, got %d", len(Leagues()))
	}
}

func TestSubLeagueKey(t *testing.T) {
	t.Parallel()

	if SubLeagueKey("D2M-A") != SubLeagueKey(" d2m-a ") {
		t.Fatalf("expected case and whitespace insensitive keys")
	}
	if SubLeagueKey("Pool  A") != SubLeagueKey("pool a") {
		t.Fatalf("expected inner whitespace to collapse")
	}
	if SubLeagueKey("") != "" {
		t.Fatalf("expected empty key for empty sub-league")
	}
	if CleanLabel("  D2M   B ") != "D2M B" {
		t.Fatalf("unexpected cleaned label: %q", CleanLabel("  D2M   B "))
	}
}

func TestSubLeagueKey_FitsColumnAfterFolding(t *testing.T) {
	t.Parallel()

	label := strings.Repeat("ß", 50)
	key := SubLeagueKey(label)
	if n := utf8.RuneCountInString(key); n > MaxSubLeagueKeyLen {
		t.Fatalf("key has %d runes, want at most %d", n, MaxSubLeagueKeyLen)
	}
	if key != strings.Repeat("s", MaxSubLeagueKeyLen) {
		t.Fatalf("unexpected folded key: %q", key)
	}
	if SubLeagueKey(strings.Repeat("SS", 50)) != key {
		t.Fatalf("expected clipped keys to stay case insensitive")
	}
}
