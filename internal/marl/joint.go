package marl

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// #region sentinel
// SentinelConstraint returns n constraint rows of width dim, every entry set to value.
// It stands for "unconstrained" before the environment has reported real bounds.
func SentinelConstraint(n, dim int, value float64) Constraint {
	c := make(Constraint, n)
	for i := range c {
		row := make([]float64, dim)
		for j := range row {
			row[j] = value
		}
		c[i] = row
	}
	return c
}

// #endregion sentinel

// #region flatten-split
// Flatten concatenates the per-agent action rows into one joint vector.
func Flatten(a Action) []float64 {
	n := 0
	for _, row := range a {
		n += len(row)
	}
	flat := make([]float64, 0, n)
	for _, row := range a {
		flat = append(flat, row...)
	}
	return flat
}

// Split cuts a joint vector back into n equal per-agent rows.
func Split(flat []float64, n int) (Action, error) {
	if n <= 0 || len(flat)%n != 0 {
		return nil, fmt.Errorf("split %d values into %d agents: %w", len(flat), n, ErrShapeMismatch)
	}
	width := len(flat) / n
	out := make(Action, n)
	for i := range out {
		row := make([]float64, width)
		copy(row, flat[i*width:(i+1)*width])
		out[i] = row
	}
	return out, nil
}

// #endregion flatten-split

// #region copy
// CopyAction returns an independent deep copy of a.
func CopyAction(a Action) (Action, error) {
	var dst Action
	if err := deepcopy.Copy(&dst, a); err != nil {
		return nil, fmt.Errorf("copy action: %w", err)
	}
	return dst, nil
}

// CopyState returns an independent deep copy of s.
func CopyState(s State) (State, error) {
	var dst State
	if err := deepcopy.Copy(&dst, s); err != nil {
		return nil, fmt.Errorf("copy state: %w", err)
	}
	return dst, nil
}

// #endregion copy

// #region rewards
// ShapedReward subtracts each agent's intervention metric from its raw reward.
func ShapedReward(raw, intervention []float64) ([]float64, error) {
	if len(raw) != len(intervention) {
		return nil, fmt.Errorf("reward %d vs intervention %d: %w", len(raw), len(intervention), ErrShapeMismatch)
	}
	shaped := make([]float64, len(raw))
	floats.SubTo(shaped, raw, intervention)
	return shaped, nil
}

// MeanReward averages a per-agent reward so episode totals do not scale with agent count.
func MeanReward(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	return stat.Mean(r, nil)
}

// #endregion rewards

// #region shape
// CheckRows verifies that rows has n entries of the given width.
func CheckRows(name string, rows [][]float64, n, width int) error {
	if len(rows) != n {
		return fmt.Errorf("%s has %d rows, want %d: %w", name, len(rows), n, ErrShapeMismatch)
	}
	for i, row := range rows {
		if len(row) != width {
			return fmt.Errorf("%s row %d has width %d, want %d: %w", name, i, len(row), width, ErrShapeMismatch)
		}
	}
	return nil
}

// CheckShape verifies state, action and constraint against p. Nil arguments are skipped.
func CheckShape(p Params, s State, a Action, c Constraint) error {
	if s != nil {
		if err := CheckRows("state", s, p.NumAgents, p.StateDim); err != nil {
			return err
		}
	}
	if a != nil {
		if err := CheckRows("action", a, p.NumAgents, p.ActDim); err != nil {
			return err
		}
	}
	if c != nil {
		if err := CheckRows("constraint", c, p.NumAgents, p.ConstraintDim); err != nil {
			return err
		}
	}
	return nil
}

// #endregion shape
