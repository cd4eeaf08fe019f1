package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

// recordingDB captures writes so tests can check the statements a
// method runs without a live database.
type recordingDB struct {
	execs []execCall
}

func (r *recordingDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.execs = append(r.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, nil
}

func (r *recordingDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, nil
}

func (r *recordingDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestAssignProfessorReplacesAndStampsRelation(t *testing.T) {
	db := &recordingDB{}
	store := &Store{db: db}
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	if err := store.AssignProfessor(context.Background(), "group-1", "prof-1", now); err != nil {
		t.Fatalf("assign professor: %v", err)
	}
	if len(db.execs) != 2 {
		t.Fatalf("expected delete then insert, got %d statements", len(db.execs))
	}
	if !strings.Contains(db.execs[0].sql, "DELETE FROM group_professors") {
		t.Fatalf("expected prior relation delete, got %q", db.execs[0].sql)
	}

	insert := db.execs[1]
	// group_professors.created_at is NOT NULL with no default, so the
	// insert must supply it explicitly.
	if !strings.Contains(insert.sql, "created_at") {
		t.Fatalf("insert omits created_at: %q", insert.sql)
	}
	if len(insert.args) != 3 {
		t.Fatalf("expected 3 insert args, got %d", len(insert.args))
	}
	if insert.args[0] != "group-1" || insert.args[1] != "prof-1" {
		t.Fatalf("unexpected insert args: %v", insert.args)
	}
	if stamped, ok := insert.args[2].(time.Time); !ok || !stamped.Equal(now) {
		t.Fatalf("expected created_at %v, got %v", now, insert.args[2])
	}
}
