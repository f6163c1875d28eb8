package update

// #region decision
// Decision records whether an update cycle ran after an episode.
type Decision struct {
	Action string // "update" | "skip"
	Reason string
}

// #endregion decision

// #region metrics
// Metrics captures telemetry from an update cycle.
type Metrics struct {
	Passes       int // update calls that returned without error
	UpdateTimeMs int64
}

// #endregion metrics

// #region config
// Config holds the update cadence.
type Config struct {
	Rate   int `yaml:"agent_update_rate"` // episodes between update cycles
	Passes int `yaml:"updates_per_cycle"` // update calls per cycle
}

// DefaultConfig returns the reference cadence: 50 passes every 100 episodes.
func DefaultConfig() Config {
	return Config{Rate: 100, Passes: 50}
}

// #endregion config

// #region cycle
// Cycle bundles everything returned by Run.
type Cycle struct {
	Episode  int
	Decision Decision
	Metrics  Metrics
}

// #endregion cycle
