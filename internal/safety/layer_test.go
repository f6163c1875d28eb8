package safety

import (
	"errors"
	"math"
	"testing"
)

// #region fixtures
// fixedModel returns the same sensitivity rows for every observation.
type fixedModel struct {
	rows [][]float64
	err  error
}

func (m fixedModel) Sensitivity([]float64) ([][]float64, error) {
	return m.rows, m.err
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// #endregion fixtures

func TestProjectLeavesSafeActionAlone(t *testing.T) {
	l := NewLayer(DefaultConfig(), fixedModel{rows: [][]float64{{1, 0}}})
	d, err := l.Project(nil, []float64{5}, []float64{0.3, -0.2})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if d.Metric != 0 {
		t.Fatalf("expected zero intervention, got %f", d.Metric)
	}
	if !d.Feasible || d.Active != 0 {
		t.Fatalf("expected feasible with no active constraints, got %+v", d)
	}
	if d.Action[0] != 0.3 || d.Action[1] != -0.2 {
		t.Fatalf("safe action changed: %v", d.Action)
	}
}

func TestProjectCorrectsViolation(t *testing.T) {
	// c + a_x >= 0 with c = -0.5 forces a_x >= 0.5.
	l := NewLayer(DefaultConfig(), fixedModel{rows: [][]float64{{1, 0}}})
	action := []float64{0.1, 0.4}
	d, err := l.Project(nil, []float64{-0.5}, action)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !approx(d.Action[0], 0.5) || !approx(d.Action[1], 0.4) {
		t.Fatalf("expected (0.5, 0.4), got %v", d.Action)
	}
	if !approx(d.Metric, 0.4) {
		t.Fatalf("expected intervention 0.4, got %f", d.Metric)
	}
	if !d.Feasible || d.Active != 1 {
		t.Fatalf("expected feasible single correction, got %+v", d)
	}
	if action[0] != 0.1 {
		t.Fatal("requested action must not be modified")
	}
}

func TestProjectInfeasibleAfterClip(t *testing.T) {
	// Needs a_x >= 3, but actions are clipped to 1.
	l := NewLayer(DefaultConfig(), fixedModel{rows: [][]float64{{1, 0}}})
	d, err := l.Project(nil, []float64{-3}, []float64{0, 0})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if d.Feasible {
		t.Fatal("expected infeasible when the correction exceeds the action range")
	}
	if d.Action[0] != 1 {
		t.Fatalf("expected clipped action 1, got %f", d.Action[0])
	}
	if d.Metric < 0 {
		t.Fatalf("intervention metric must be non-negative, got %f", d.Metric)
	}
}

func TestProjectHandlesTwoConstraints(t *testing.T) {
	l := NewLayer(DefaultConfig(), fixedModel{rows: [][]float64{{1, 0}, {0, 1}}})
	d, err := l.Project(nil, []float64{-0.2, -0.3}, []float64{0, 0})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !approx(d.Action[0], 0.2) || !approx(d.Action[1], 0.3) {
		t.Fatalf("expected (0.2, 0.3), got %v", d.Action)
	}
	if d.Active != 2 || !d.Feasible {
		t.Fatalf("expected two active feasible corrections, got %+v", d)
	}
}

func TestProjectSkipsZeroSensitivity(t *testing.T) {
	l := NewLayer(DefaultConfig(), fixedModel{rows: [][]float64{{0, 0}}})
	d, err := l.Project(nil, []float64{-1}, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if d.Metric != 0 {
		t.Fatal("an uncontrollable constraint cannot be corrected")
	}
	if d.Feasible {
		t.Fatal("an uncontrollable violated constraint is infeasible")
	}
}

func TestProjectErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := NewLayer(DefaultConfig(), fixedModel{err: boom}).Project(nil, nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected model error to propagate, got %v", err)
	}
	l := NewLayer(DefaultConfig(), fixedModel{rows: [][]float64{{1, 0}}})
	if _, err := l.Project(nil, []float64{1, 2}, []float64{0, 0}); err == nil {
		t.Fatal("expected error on constraint count mismatch")
	}
	if _, err := l.Project(nil, []float64{1}, []float64{0}); err == nil {
		t.Fatal("expected error on action width mismatch")
	}
}
