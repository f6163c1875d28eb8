package particle

import (
	"fmt"
	"math"
)

// #region model
// ConstraintModel linearises each agent's slack to the others with respect to its
// own action, read directly off the agent's observation.
type ConstraintModel struct {
	numAgents int
	gain      float64
}

// ConstraintModel returns the sensitivity model matching this world's dynamics.
func (w *World) ConstraintModel() ConstraintModel {
	return ConstraintModel{
		numAgents: w.cfg.NumAgents,
		gain:      w.cfg.Sensitivity * w.cfg.Dt * w.cfg.Dt,
	}
}

// Sensitivity returns one row per constraint: the change in slack per unit action.
// Pushing toward another agent shrinks the slack to it.
func (m ConstraintModel) Sensitivity(obs []float64) ([][]float64, error) {
	if len(obs) != stateDim(m.numAgents) {
		return nil, fmt.Errorf("observation width %d, want %d", len(obs), stateDim(m.numAgents))
	}
	rows := make([][]float64, m.numAgents-1)
	for k := range rows {
		rx, ry := obs[othersOffset+2*k], obs[othersOffset+2*k+1]
		d := math.Hypot(rx, ry)
		if d == 0 {
			rows[k] = []float64{0, 0}
			continue
		}
		rows[k] = []float64{-m.gain * rx / d, -m.gain * ry / d}
	}
	return rows, nil
}

// #endregion model
