package safety

// #region model
// Model linearises an agent's constraints around its current observation:
// row k is the change in constraint k per unit of action.
type Model interface {
	Sensitivity(obs []float64) ([][]float64, error)
}

// #endregion model

// #region config
// Config holds the projection thresholds.
type Config struct {
	Margin    float64 `yaml:"margin"`     // predicted constraint values must stay at or above this
	MaxPasses int     `yaml:"max_passes"` // correction sweeps over the active set
	ActLow    float64 `yaml:"act_low"`
	ActHigh   float64 `yaml:"act_high"`
	Tolerance float64 `yaml:"tolerance"` // residual violation still counted as feasible
}

// DefaultConfig returns the reference soft-projection settings.
func DefaultConfig() Config {
	return Config{
		Margin:    0,
		MaxPasses: 5,
		ActLow:    -1,
		ActHigh:   1,
		Tolerance: 1e-6,
	}
}

// #endregion config

// #region decision
// Decision is the outcome of projecting one agent's action.
type Decision struct {
	Action   []float64
	Metric   float64 // L2 distance between requested and safe action, never negative
	Feasible bool
	Active   int // constraints that needed correction
}

// #endregion decision

// #region unconstrained
// Blind is the model used when the environment reports constraints but no
// sensitivity: every row is zero, so the layer never corrects and only reports
// feasibility.
type Blind struct {
	Constraints int
	ActDim      int
}

// Sensitivity returns Constraints zero rows of width ActDim.
func (b Blind) Sensitivity([]float64) ([][]float64, error) {
	rows := make([][]float64, b.Constraints)
	for k := range rows {
		rows[k] = make([]float64, b.ActDim)
	}
	return rows, nil
}

// #endregion unconstrained
