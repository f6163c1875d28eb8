package safeddpg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/safety"
	"gonum.org/v1/gonum/mat"
)

// #region fixtures
var testParams = marl.Params{StateDim: 3, ActDim: 2, ConstraintDim: 1, NumAgents: 2}

// pushX requires c + a_x >= 0.
type pushX struct{}

func (pushX) Sensitivity([]float64) ([][]float64, error) {
	return [][]float64{{1, 0}}, nil
}

func newAgent(t *testing.T, model safety.Model, mutate func(*Config)) *Agent {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BufferSize = 64
	cfg.BatchSize = 4
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(testParams, model, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func testState() marl.State {
	return marl.State{{0.1, 0.1, 0.1}, {-0.1, 0.2, 0}}
}

func blind() safety.Model {
	return safety.Blind{Constraints: testParams.ConstraintDim, ActDim: testParams.ActDim}
}

// #endregion fixtures

func TestActAppliesSafetyLayer(t *testing.T) {
	a := newAgent(t, pushX{}, nil)
	action, metric, err := a.Act(testState(), marl.Constraint{{-0.5}, {-0.5}})
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if err := marl.CheckShape(testParams, nil, action, nil); err != nil {
		t.Fatalf("action shape: %v", err)
	}
	for i := range action {
		if action[i][0] < 0.5-1e-9 {
			t.Fatalf("agent %d: expected a_x >= 0.5, got %f", i, action[i][0])
		}
		if metric[i] <= 0 {
			t.Fatalf("agent %d: expected positive intervention, got %f", i, metric[i])
		}
	}
	if a.Interventions() != 2 {
		t.Fatalf("expected 2 interventions, got %d", a.Interventions())
	}
	if a.Infeasible() {
		t.Fatal("corrections within range must stay feasible")
	}

	a.ResetMetrics()
	if a.Interventions() != 0 || a.Infeasible() {
		t.Fatal("ResetMetrics must clear counters")
	}
}

func TestActSentinelIsUnconstrained(t *testing.T) {
	a := newAgent(t, pushX{}, nil)
	_, metric, err := a.Act(testState(), marl.SentinelConstraint(2, 1, 5))
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	for i, m := range metric {
		if m != 0 {
			t.Fatalf("agent %d: sentinel constraint should not intervene, got %f", i, m)
		}
	}
}

func TestInfeasibleIsSticky(t *testing.T) {
	a := newAgent(t, pushX{}, nil)
	if _, _, err := a.Act(testState(), marl.Constraint{{-3}, {5}}); err != nil {
		t.Fatalf("Act: %v", err)
	}
	if !a.Infeasible() {
		t.Fatal("expected infeasible after an out-of-range correction")
	}
	if _, _, err := a.Act(testState(), marl.SentinelConstraint(2, 1, 5)); err != nil {
		t.Fatalf("Act: %v", err)
	}
	if !a.Infeasible() {
		t.Fatal("infeasibility must persist until ResetMetrics")
	}
}

func TestActRejectsWrongShape(t *testing.T) {
	a := newAgent(t, blind(), nil)
	_, _, err := a.Act(marl.State{{0, 0, 0}}, marl.SentinelConstraint(1, 1, 5))
	if !errors.Is(err, marl.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestUpdateNeedsFullBatch(t *testing.T) {
	a := newAgent(t, blind(), nil)
	s := testState()
	act := marl.Action{{0, 0}, {0, 0}}
	for i := 0; i < 3; i++ {
		if err := a.Memory().Store(s, act, []float64{1, 1}, s); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	if err := a.Update(); err == nil {
		t.Fatal("expected error with fewer transitions than batch size")
	}
	if err := a.Memory().Store(s, act, []float64{1, 1}, s); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := a.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestUpdateLearnsPositiveValue(t *testing.T) {
	a := newAgent(t, blind(), func(c *Config) { c.CriticLR = 0.05 })
	s := testState()
	act := marl.Action{{0.2, 0.1}, {0.1, -0.2}}
	for i := 0; i < 8; i++ {
		if err := a.Memory().Store(s, act, []float64{1, 1}, s); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	for i := 0; i < 20; i++ {
		if err := a.Update(); err != nil {
			t.Fatalf("Update %d: %v", i, err)
		}
	}
	phi := features(s, act)
	for i := range a.critics {
		if q := mat.Dot(a.critics[i].theta, phi); q <= 0 {
			t.Fatalf("critic %d: expected positive Q for rewarded transition, got %f", i, q)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := newAgent(t, blind(), nil)
	if err := src.SaveParams(dir); err != nil {
		t.Fatalf("SaveParams: %v", err)
	}
	for _, name := range []string{"actor_0.npy", "actor_bias_1.npy", "critic_1.npy"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	dst := newAgent(t, blind(), func(c *Config) { c.Seed = 99 })
	if err := dst.LoadParams(dir); err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	sentinel := marl.SentinelConstraint(2, 1, 5)
	want, _, _ := src.Act(testState(), sentinel)
	got, _, _ := dst.Act(testState(), sentinel)
	for i := range want {
		for k := range want[i] {
			if want[i][k] != got[i][k] {
				t.Fatalf("agent %d dim %d: loaded policy differs (%f vs %f)", i, k, got[i][k], want[i][k])
			}
		}
	}
}
