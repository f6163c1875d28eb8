package logging

import "time"

// #region update-entry
// UpdateEntry is a single row in the update_log table.
type UpdateEntry struct {
	RunID        string
	Episode      int
	Decision     string // "update" | "skip"
	Reason       string
	Passes       int
	UpdateTimeMs int64
	CreatedAt    time.Time
}

// #endregion update-entry
