package trainer

import (
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/agent"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/noise"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/record"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/store"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/telemetry"
)

// #region phase
// Phase is a state of the run state machine.
type Phase string

const (
	PhaseInit    Phase = "INIT"
	PhaseTrain   Phase = "TRAIN_EPISODE"
	PhasePersist Phase = "PERSIST"
	PhaseEval    Phase = "EVAL_EPISODE"
	PhaseReport  Phase = "REPORT"
	PhaseClose   Phase = "CLOSE"
)

// #endregion phase

// #region deps
// Deps are the collaborators a Trainer drives. Build assembles them from a
// config; tests pass fakes to New directly.
type Deps struct {
	Env      env.Environment
	Agent    agent.Agent
	Noise    noise.Perturber
	Collide  env.CollisionFunc
	Recorder record.Recorder // nil: a GIF of the environment when it renders, else discarded
	Store    *store.Store    // nil: no run history
	Metrics  *telemetry.Collector
	Scenario string
}

// #endregion deps

// #region report
// Report summarises a finished run.
type Report struct {
	RunID           string
	Episodes        int
	TotalCollisions int
	UpdateCycles    int
	EvalReturns     []float64
	MeanReturn      float64
	Phases          []Phase // every phase entered, in order, collapsed
}

// #endregion report
