package rollout

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/agent"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
)

// #region fakes
var threeAgents = marl.Params{StateDim: 1, ActDim: 1, ConstraintDim: 1, NumAgents: 3}

// scriptEnv counts steps, reports constraint 10+k after step k, and scribbles
// over the action it receives.
type scriptEnv struct {
	params  marl.Params
	doneAt  int // all agents done after this many steps; 0 never
	stepErr error
	steps   int
	badRows bool
}

func (e *scriptEnv) Reset(context.Context) (marl.State, error) {
	e.steps = 0
	if e.badRows {
		return marl.State{{0}, {0}}, nil
	}
	return rows(e.params.NumAgents, 0), nil
}

func (e *scriptEnv) Step(_ context.Context, a marl.Action) (env.StepResult, error) {
	if e.stepErr != nil {
		return env.StepResult{}, e.stepErr
	}
	e.steps++
	for i := range a {
		a[i][0] = 999
	}
	done := make([]bool, e.params.NumAgents)
	for i := range done {
		done[i] = e.doneAt > 0 && e.steps >= e.doneAt
	}
	return env.StepResult{
		NextState:  rows(e.params.NumAgents, float64(e.steps)),
		Reward:     []float64{1, 2, 3},
		Done:       done,
		Constraint: rows(e.params.NumAgents, float64(10+e.steps-1)),
	}, nil
}

func (e *scriptEnv) Params() marl.Params { return e.params }

// Agents 0 and 1 overlap, agent 2 is far away.
func (e *scriptEnv) Agents() []env.Entity {
	return []env.Entity{
		{Name: "agent 0", Pos: []float64{0, 0}, Size: 0.2, Collide: true},
		{Name: "agent 1", Pos: []float64{0.1, 0}, Size: 0.2, Collide: true},
		{Name: "agent 2", Pos: []float64{5, 5}, Size: 0.2, Collide: true},
	}
}

func (e *scriptEnv) Close() error { return nil }

func rows(n int, v float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{v}
	}
	return out
}

func overlap(a, b env.Entity) bool {
	return math.Hypot(a.Pos[0]-b.Pos[0], a.Pos[1]-b.Pos[1]) < a.Size+b.Size
}

type memory struct {
	stored []marl.Transition
}

func (m *memory) Store(s marl.State, a marl.Action, r []float64, ns marl.State) error {
	m.stored = append(m.stored, marl.Transition{State: s, Action: a, Reward: r, NextState: ns})
	return nil
}

type fakeAgent struct {
	mem         memory
	constraints []marl.Constraint
	resets      int
	acts        int
}

func (f *fakeAgent) Act(_ marl.State, c marl.Constraint) (marl.Action, []float64, error) {
	f.constraints = append(f.constraints, c)
	f.acts++
	return marl.Action{{0.1}, {0.2}, {0.3}}, []float64{0.5, 0, 0.25}, nil
}
func (f *fakeAgent) Update() error               { return nil }
func (f *fakeAgent) Memory() agent.Memory        { return &f.mem }
func (f *fakeAgent) ResetMetrics()               { f.resets++ }
func (f *fakeAgent) Infeasible() bool            { return true }
func (f *fakeAgent) Interventions() int          { return f.acts * 2 }
func (f *fakeAgent) SaveParams(dir string) error { return nil }

type shift struct {
	calls [][2]int
}

func (s *shift) Perturb(flat []float64, step, episode int) []float64 {
	s.calls = append(s.calls, [2]int{step, episode})
	out := make([]float64, len(flat))
	for i, v := range flat {
		out[i] = v + 0.01
	}
	return out
}

func newRunner(e *scriptEnv, a *fakeAgent, steps int) *Runner {
	return NewRunner(e, a, nil, overlap, steps, 5)
}

// #endregion fakes

func TestShapedRewardStored(t *testing.T) {
	a := &fakeAgent{}
	if _, err := newRunner(&scriptEnv{params: threeAgents}, a, 1).RunEpisode(context.Background(), 0); err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	want := []float64{0.5, 2, 2.75}
	got := a.mem.stored[0].Reward
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("agent %d: shaped reward %f, want %f", i, got[i], want[i])
		}
	}
}

func TestEpisodeRunsFullBudget(t *testing.T) {
	a := &fakeAgent{}
	res, err := newRunner(&scriptEnv{params: threeAgents}, a, 5).RunEpisode(context.Background(), 3)
	if err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	if len(a.mem.stored) != 5 || res.Steps != 5 {
		t.Fatalf("expected 5 stored transitions, got %d (steps %d)", len(a.mem.stored), res.Steps)
	}
	// The last step's reward is not accumulated.
	if want := 4 * (5.25 / 3); math.Abs(res.Reward-want) > 1e-9 {
		t.Fatalf("expected reward %f, got %f", want, res.Reward)
	}
	if a.resets != 1 {
		t.Fatalf("expected one ResetMetrics call, got %d", a.resets)
	}
	if res.Interventions != 10 || !res.Infeasible {
		t.Fatalf("expected agent counters copied into result, got %+v", res)
	}
}

func TestDoneOnFirstStepStillStores(t *testing.T) {
	a := &fakeAgent{}
	res, err := newRunner(&scriptEnv{params: threeAgents, doneAt: 1}, a, 300).RunEpisode(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	if len(a.mem.stored) != 1 {
		t.Fatalf("expected the terminating transition to be stored, got %d", len(a.mem.stored))
	}
	if res.Reward != 0 {
		t.Fatalf("expected zero reward when done on first step, got %f", res.Reward)
	}
}

func TestConstraintPropagation(t *testing.T) {
	a := &fakeAgent{}
	if _, err := newRunner(&scriptEnv{params: threeAgents}, a, 4).RunEpisode(context.Background(), 0); err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	for k, c := range a.constraints {
		want := 5.0
		if k > 0 {
			want = float64(10 + k - 1)
		}
		for i := range c {
			if c[i][0] != want {
				t.Fatalf("step %d agent %d: constraint %f, want %f", k, i, c[i][0], want)
			}
		}
	}
}

func TestCollisionsCountedPerStep(t *testing.T) {
	a := &fakeAgent{}
	r := newRunner(&scriptEnv{params: threeAgents}, a, 5)
	var perStep []int
	r.Observer = func(ev StepEvent) { perStep = append(perStep, ev.Collisions) }
	res, err := r.RunEpisode(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	for k, c := range perStep {
		if c != 1 {
			t.Fatalf("step %d: expected exactly 1 collision, got %d", k, c)
		}
	}
	if res.Collisions != 5 {
		t.Fatalf("expected 5 collisions, got %d", res.Collisions)
	}
}

func TestStoredActionSurvivesEnvMutation(t *testing.T) {
	a := &fakeAgent{}
	if _, err := newRunner(&scriptEnv{params: threeAgents}, a, 2).RunEpisode(context.Background(), 0); err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	for _, tr := range a.mem.stored {
		if tr.Action[0][0] != 0.1 {
			t.Fatalf("environment mutation leaked into stored action: %v", tr.Action)
		}
	}
}

func TestNoiseAppliedOncePerStep(t *testing.T) {
	a := &fakeAgent{}
	n := &shift{}
	r := newRunner(&scriptEnv{params: threeAgents}, a, 3)
	r.Noise = n
	if _, err := r.RunEpisode(context.Background(), 7); err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	if len(n.calls) != 3 {
		t.Fatalf("expected 3 perturb calls, got %d", len(n.calls))
	}
	for k, call := range n.calls {
		if call != [2]int{k, 7} {
			t.Fatalf("call %d keyed by %v, want step %d episode 7", k, call, k)
		}
	}
	if got := a.mem.stored[0].Action[2][0]; math.Abs(got-0.31) > 1e-12 {
		t.Fatalf("expected perturbed action stored, got %f", got)
	}
}

func TestEnvStepErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	_, err := newRunner(&scriptEnv{params: threeAgents, stepErr: boom}, &fakeAgent{}, 3).RunEpisode(context.Background(), 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected step error to propagate, got %v", err)
	}
}

func TestShapeMismatchBeforeAct(t *testing.T) {
	a := &fakeAgent{}
	_, err := newRunner(&scriptEnv{params: threeAgents, badRows: true}, a, 3).RunEpisode(context.Background(), 0)
	if !errors.Is(err, marl.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if a.acts != 0 {
		t.Fatal("agent must not be queried with a mismatched state")
	}
}
