package querybuilder

import (
	"testing"
	"time"
)

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "team_name").
		From("volleyball_teams").
		Where(Eq("league", "Men's Division 2"), Eq("subleague_key", "d2m-a")).
		OrderBy("position ASC", "team_name ASC").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, team_name FROM volleyball_teams WHERE league = $1 AND subleague_key = $2 ORDER BY position ASC, team_name ASC LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "Men's Division 2" || args[1] != "d2m-a" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_Comparisons(t *testing.T) {
	day := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	query, args, err := Select("subleague").
		From("volleyball_teams").
		Where(Gte("import_day", day), Lt("import_day", day.AddDate(0, 0, 7))).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT subleague FROM volleyball_teams WHERE import_day >= $1 AND import_day < $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_GroupByWithExpr(t *testing.T) {
	query, args, err := Select("import_day", "AVG(position) AS value").
		From("volleyball_teams").
		Where(Eq("league", "Men's Premier Division"), Expr("import_day >= ?", "2024-01-01")).
		GroupBy("import_day").
		OrderBy("import_day ASC").
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT import_day, AVG(position) AS value FROM volleyball_teams WHERE league = $1 AND import_day >= $2 GROUP BY import_day ORDER BY import_day ASC"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("volleyball_teams").
		Columns("team_id", "team_name").
		Values("t-1", "Aces").
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO volleyball_teams (team_id, team_name) VALUES ($1, $2) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "t-1" || args[1] != "Aces" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("import_runs").
		Set("status", "succeeded").
		SetExpr("updated_at", "NOW()").
		Where(Eq("run_id", "r-1"), EqLiteral("message", "it's"), IsNull("finished_at")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE import_runs SET status = $1, updated_at = NOW() WHERE run_id = $2 AND message = 'it''s' AND finished_at IS NULL"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "succeeded" || args[1] != "r-1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel(t *testing.T) {
	type model struct {
		TeamID   string `db:"team_id"`
		Position int    `db:"position"`
		Skipped  string `db:"-"`
		internal string
	}

	query, args, err := InsertModel("volleyball_teams", model{TeamID: "t-9", Position: 3, internal: "x"}, "ON CONFLICT DO NOTHING")
	if err != nil {
		t.Fatalf("build insert model query: %v", err)
	}
	wantQuery := "INSERT INTO volleyball_teams (team_id, position) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "t-9" || args[1] != 3 {
		t.Fatalf("unexpected args: %+v", args)
	}
}
