package safety

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// #region layer
// Layer shrinks actions that would push a linearised constraint below the margin.
type Layer struct {
	config Config
	model  Model
}

// NewLayer creates a safety layer over the given constraint model.
func NewLayer(config Config, model Model) *Layer {
	if config.MaxPasses <= 0 {
		config.MaxPasses = 1
	}
	return &Layer{config: config, model: model}
}

// Project corrects action so that c_k + g_k·a >= margin for every constraint k.
// Each pass applies the closed-form correction a += λ_k g_k with
// λ_k = max(0, (margin - c_k - g_k·a) / |g_k|²) to the most violated constraint,
// then the result is clipped to the action range.
func (l *Layer) Project(obs, constraint, action []float64) (Decision, error) {
	g, err := l.model.Sensitivity(obs)
	if err != nil {
		return Decision{}, fmt.Errorf("constraint sensitivity: %w", err)
	}
	if len(g) != len(constraint) {
		return Decision{}, fmt.Errorf("model has %d constraints, got %d values", len(g), len(constraint))
	}
	for k, row := range g {
		if len(row) != len(action) {
			return Decision{}, fmt.Errorf("sensitivity row %d has width %d, action has %d", k, len(row), len(action))
		}
	}

	safe := make([]float64, len(action))
	copy(safe, action)
	active := make(map[int]bool)

	for pass := 0; pass < l.config.MaxPasses; pass++ {
		worst, lambda := -1, 0.0
		for k, row := range g {
			norm := floats.Dot(row, row)
			if norm == 0 {
				continue
			}
			viol := l.config.Margin - constraint[k] - floats.Dot(row, safe)
			if viol <= 0 {
				continue
			}
			if lam := viol / norm; lam > lambda {
				worst, lambda = k, lam
			}
		}
		if worst < 0 {
			break
		}
		active[worst] = true
		floats.AddScaled(safe, lambda, g[worst])
	}

	for i := range safe {
		safe[i] = math.Max(l.config.ActLow, math.Min(l.config.ActHigh, safe[i]))
	}

	feasible := true
	for k, row := range g {
		if constraint[k]+floats.Dot(row, safe) < l.config.Margin-l.config.Tolerance {
			feasible = false
			break
		}
	}

	return Decision{
		Action:   safe,
		Metric:   floats.Distance(safe, action, 2),
		Feasible: feasible,
		Active:   len(active),
	}, nil
}

// #endregion layer
