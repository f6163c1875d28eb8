package rollout

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/agent"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/noise"
)

// #region types
// EpisodeResult summarises one training episode.
type EpisodeResult struct {
	Episode       int
	Reward        float64 // sum over steps of the mean shaped reward
	Collisions    int
	Steps         int
	Interventions int
	Infeasible    bool
}

// StepEvent is passed to the Observer after each stored transition.
type StepEvent struct {
	Episode      int
	Step         int
	State        marl.State
	Constraint   marl.Constraint // the constraint the agent acted on
	Action       marl.Action     // post-noise action sent to the environment
	Intervention []float64
	Result       env.StepResult
	Shaped       []float64
	Collisions   int
}

// Runner drives single episodes of training data collection.
type Runner struct {
	Env             env.Environment
	Agent           agent.Agent
	Noise           noise.Perturber
	Collide         env.CollisionFunc
	StepsPerEpisode int
	Sentinel        float64
	Observer        func(StepEvent)
}

// NewRunner wraps e so every action it receives is an owned copy.
func NewRunner(e env.Environment, a agent.Agent, n noise.Perturber, collide env.CollisionFunc, steps int, sentinel float64) *Runner {
	return &Runner{
		Env:             env.Owned(e),
		Agent:           a,
		Noise:           n,
		Collide:         collide,
		StepsPerEpisode: steps,
		Sentinel:        sentinel,
	}
}

// #endregion types

// #region run
// RunEpisode resets the environment and the agent's episode counters, then
// steps until every agent is done or the step budget is spent. Exactly one
// transition is stored per step, including the terminating one.
func (r *Runner) RunEpisode(ctx context.Context, episode int) (EpisodeResult, error) {
	res := EpisodeResult{Episode: episode}
	if r.StepsPerEpisode <= 0 {
		return res, fmt.Errorf("steps per episode must be positive, got %d", r.StepsPerEpisode)
	}
	p := r.Env.Params()

	state, err := r.Env.Reset(ctx)
	if err != nil {
		return res, fmt.Errorf("env reset: %w", err)
	}
	r.Agent.ResetMetrics()
	constraint := marl.SentinelConstraint(p.NumAgents, p.ConstraintDim, r.Sentinel)

	for step := 0; step < r.StepsPerEpisode; step++ {
		if err := marl.CheckShape(p, state, nil, constraint); err != nil {
			return res, fmt.Errorf("step %d: %w", step, err)
		}

		action, metric, err := r.Agent.Act(state, constraint)
		if err != nil {
			return res, fmt.Errorf("agent act at step %d: %w", step, err)
		}
		if err := marl.CheckShape(p, nil, action, nil); err != nil {
			return res, fmt.Errorf("step %d: %w", step, err)
		}

		// Noise is applied to the joint action so all agents share one decay coefficient.
		if r.Noise != nil {
			action, err = marl.Split(r.Noise.Perturb(marl.Flatten(action), step, episode), p.NumAgents)
			if err != nil {
				return res, fmt.Errorf("step %d: %w", step, err)
			}
		}

		out, err := r.Env.Step(ctx, action)
		if err != nil {
			return res, fmt.Errorf("env step %d: %w", step, err)
		}
		shaped, err := marl.ShapedReward(out.Reward, metric)
		if err != nil {
			return res, fmt.Errorf("step %d: %w", step, err)
		}
		if err := r.Agent.Memory().Store(state, action, shaped, out.NextState); err != nil {
			return res, fmt.Errorf("store step %d: %w", step, err)
		}

		collisions := env.CountCollisions(r.Env.Agents(), r.Collide)
		res.Collisions += collisions
		res.Steps++

		if r.Observer != nil {
			r.Observer(StepEvent{
				Episode:      episode,
				Step:         step,
				State:        state,
				Constraint:   constraint,
				Action:       action,
				Intervention: metric,
				Result:       out,
				Shaped:       shaped,
				Collisions:   collisions,
			})
		}

		if out.AllDone() || step == r.StepsPerEpisode-1 {
			break
		}
		state = out.NextState
		res.Reward += marl.MeanReward(shaped)
		constraint = out.Constraint
	}

	res.Interventions = r.Agent.Interventions()
	res.Infeasible = r.Agent.Infeasible()
	return res, nil
}

// #endregion run
