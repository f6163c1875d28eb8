package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE update_log (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id         TEXT NOT NULL,
		episode        INTEGER NOT NULL,
		decision       TEXT NOT NULL,
		reason         TEXT,
		passes         INTEGER NOT NULL,
		update_time_ms INTEGER NOT NULL,
		created_at     TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-update-tests
func TestLogUpdate_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := UpdateEntry{
		RunID:        "run-1",
		Episode:      100,
		Decision:     "update",
		Reason:       "episode 100 is a multiple of 100",
		Passes:       50,
		UpdateTimeMs: 12,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogUpdate(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var episode, passes int
	var decision, created string
	err := db.QueryRow("SELECT episode, decision, passes, created_at FROM update_log").Scan(&episode, &decision, &passes, &created)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if episode != 100 || decision != "update" || passes != 50 {
		t.Errorf("unexpected row: episode=%d decision=%s passes=%d", episode, decision, passes)
	}
	if created != "2026-01-01T00:00:00Z" {
		t.Errorf("unexpected created_at %s", created)
	}
}

func TestLogUpdate_EmptyReasonStoredAsNull(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogUpdate(db, UpdateEntry{RunID: "run-1", Episode: 200, Decision: "update"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var reason sql.NullString
	var created string
	db.QueryRow("SELECT reason, created_at FROM update_log").Scan(&reason, &created)
	if reason.Valid {
		t.Errorf("expected NULL reason, got %q", reason.String)
	}
	if created == "" {
		t.Error("expected created_at to default to now")
	}
}

func TestLogUpdate_RequiresRunID(t *testing.T) {
	db := setupDB(t)
	defer db.Close()
	if err := LogUpdate(db, UpdateEntry{Decision: "update"}); err == nil {
		t.Fatal("expected error without run id")
	}
}

func TestLogUpdate_ClosedDB(t *testing.T) {
	db := setupDB(t)
	db.Close()
	if err := LogUpdate(db, UpdateEntry{RunID: "r", Decision: "update"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-update-tests
