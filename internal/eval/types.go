package eval

import (
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
)

// #region eval-config
// EvalConfig holds the evaluation protocol parameters.
type EvalConfig struct {
	EpisodeLength int     // step budget per evaluation episode
	RecordThrough int     // episodes 0..RecordThrough inclusive are recorded; the recorder closes after it
	Sentinel      float64 // constraint value before the environment reports one
	MinMeanReturn float64 // informational threshold for the mean_return metric
}

// DefaultEvalConfig returns the reference protocol.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		EpisodeLength: 300,
		RecordThrough: 10,
		Sentinel:      5,
		MinMeanReturn: -150,
	}
}

// #endregion eval-config

// #region policy
// Policy is the read-only view of an agent used during evaluation. It has no
// way to update or store experience.
type Policy interface {
	Act(state marl.State, constraint marl.Constraint) (marl.Action, []float64, error)
	ResetMetrics()
	Infeasible() bool
}

// #endregion policy

// #region eval-metric
// EvalMetric captures a single summary value of an evaluation run.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of an evaluation run.
type EvalResult struct {
	Returns        []float64
	Mean           float64
	Collisions     int
	InfeasibleEps  int
	RecordedEps    int
	RecorderClosed bool // closed by the loop at RecordThrough
	Metrics        []EvalMetric
}

// #endregion eval-result
