package store

import "time"

// #region run
// Run is one training invocation.
type Run struct {
	RunID           string
	CreatedAt       time.Time
	ConfigJSON      string
	Scenario        string
	NumAgents       int
	Episodes        int // training episodes completed
	TotalCollisions int
	MeanEvalReturn  float64
	HasEval         bool
	Status          string // "running" | "persisted" | "complete"
}

// #endregion run

// #region episode-row
// EpisodeRow is one training episode of a run.
type EpisodeRow struct {
	Episode              int
	Reward               float64
	Collisions           int
	CumulativeCollisions int
	Steps                int
	Interventions        int
	Infeasible           bool
}

// #endregion episode-row

// #region update-row
// UpdateRow is one update_log entry as read back for inspection.
type UpdateRow struct {
	RunID        string
	Episode      int
	Decision     string
	Reason       string
	Passes       int
	UpdateTimeMs int64
	CreatedAt    time.Time
}

// #endregion update-row
