package querybuilder

import (
	"testing"
	"time"
)

func TestSelectBuilder_KickoffRange(t *testing.T) {
	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC)

	query, args, err := Select("external_id", "status").
		From("matches").
		Where(Gte("kickoff_at", from), Lte("kickoff_at", to)).
		OrderBy("kickoff_at", "external_id").
		Limit(100).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT external_id, status FROM matches WHERE kickoff_at >= $1 AND kickoff_at <= $2 ORDER BY kickoff_at, external_id LIMIT 100"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != from || args[1] != to {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_ConflictSuffix(t *testing.T) {
	query, args, err := InsertInto("matches").
		Columns("external_id", "status").
		Values(int64(101), "SCHEDULED").
		Values(int64(102), "FINISHED").
		Suffix("ON CONFLICT (external_id) DO UPDATE SET status = EXCLUDED.status").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO matches (external_id, status) VALUES ($1, $2), ($3, $4) ON CONFLICT (external_id) DO UPDATE SET status = EXCLUDED.status"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	query, args, err := DeleteFrom("matches").
		Where(Eq("status", "FINISHED"), Lt("kickoff_at", cutoff)).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM matches WHERE status = $1 AND kickoff_at < $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModels(t *testing.T) {
	type row struct {
		ID   int64  `db:"external_id"`
		Name string `db:"home_team"`
		skip string `db:"-"`
	}

	query, args, err := InsertModels("matches", []row{
		{ID: 1, Name: "Arsenal FC"},
		{ID: 2, Name: "Chelsea FC"},
	}, "ON CONFLICT (external_id) DO NOTHING")
	if err != nil {
		t.Fatalf("build insert models query: %v", err)
	}

	wantQuery := "INSERT INTO matches (external_id, home_team) VALUES ($1, $2), ($3, $4) ON CONFLICT (external_id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[0] != int64(1) || args[3] != "Chelsea FC" {
		t.Fatalf("unexpected args: %+v", args)
	}
}
