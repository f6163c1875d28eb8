package agent

import "github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"

// #region memory
// Memory is the experience buffer the orchestration loop appends to.
// It never reads buffer contents back.
type Memory interface {
	Store(state marl.State, action marl.Action, reward []float64, nextState marl.State) error
}

// #endregion memory

// #region agent
// Agent is a safety-aware multi-agent policy. Act returns the safe action per
// agent together with each agent's non-negative intervention metric.
type Agent interface {
	Act(state marl.State, constraint marl.Constraint) (marl.Action, []float64, error)
	// Update performs one gradient step on an internally sampled batch.
	Update() error
	Memory() Memory
	// ResetMetrics clears the per-episode intervention and infeasibility counters.
	ResetMetrics()
	Infeasible() bool
	Interventions() int
	SaveParams(dir string) error
}

// #endregion agent
