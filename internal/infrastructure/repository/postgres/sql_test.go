package postgres

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
)

func TestIsNotFound(t *testing.T) {
	t.Run("matches wrapped no rows", func(t *testing.T) {
		if !isNotFound(fmt.Errorf("get row: %w", sql.ErrNoRows)) {
			t.Fatalf("expected true for wrapped sql.ErrNoRows")
		}
	})

	t.Run("ignores unrelated error", func(t *testing.T) {
		if isNotFound(fakeErr("pq: relation volleyball_teams does not exist")) {
			t.Fatalf("expected false for unrelated error")
		}
	})
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})) {
		t.Fatalf("expected true for unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Fatalf("expected false for foreign key violation")
	}
}

func TestNullableString(t *testing.T) {
	if got := nullableString("  "); got != nil {
		t.Fatalf("expected nil for blank string, got %q", *got)
	}
	got := nullableString(" D2M-A ")
	if got == nil || *got != "D2M-A" {
		t.Fatalf("unexpected nullable string: %v", got)
	}
}

func TestDateHelpers(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	day := time.Date(2024, time.January, 8, 0, 0, 0, 0, loc)

	if got := dateParam(day); got != "2024-01-08" {
		t.Fatalf("unexpected date param: %s", got)
	}
	want := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	if got := dayFromColumn(day); !got.Equal(want) {
		t.Fatalf("unexpected day: got=%s want=%s", got, want)
	}
	if got := nullTimeToTimePtr(sql.NullTime{}); got != nil {
		t.Fatalf("expected nil for null time")
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
