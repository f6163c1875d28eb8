package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-update
// LogUpdate writes an update cycle entry to the update_log table.
func LogUpdate(db *sql.DB, entry UpdateEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("log update: empty run id")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO update_log (run_id, episode, decision, reason, passes, update_time_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Episode,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.Passes,
		entry.UpdateTimeMs,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log update: %w", err)
	}
	return nil
}

// #endregion log-update

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
