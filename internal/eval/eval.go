package eval

import (
	"context"
	"fmt"
	"log"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/record"
	"gonum.org/v1/gonum/stat"
)

// #region eval-loop
// Loop runs noise-free evaluation episodes with a frozen policy.
type Loop struct {
	config   EvalConfig
	env      env.Environment
	policy   Policy
	recorder record.Recorder
	collide  env.CollisionFunc
}

// NewLoop wraps e so the policy's actions are never aliased by the environment.
// recorder may be nil, which disables recording.
func NewLoop(config EvalConfig, e env.Environment, p Policy, rec record.Recorder, collide env.CollisionFunc) *Loop {
	return &Loop{config: config, env: env.Owned(e), policy: p, recorder: rec, collide: collide}
}

// Run evaluates nEval episodes. Frames are captured through the environment's
// render hook when it has one, otherwise explicitly once per step; the choice
// is made once per run.
func (l *Loop) Run(ctx context.Context, nEval int) (EvalResult, error) {
	var res EvalResult
	if l.config.EpisodeLength <= 0 {
		return res, fmt.Errorf("episode length must be positive, got %d", l.config.EpisodeLength)
	}
	p := l.env.Params()
	hook, hasHook := env.HookOf(l.env)
	closed := l.recorder == nil
	log.Printf("[EVAL] evaluating agent over %d episodes", nEval)

	for i := 0; i < nEval; i++ {
		recording := !closed && i <= l.config.RecordThrough
		if recording {
			res.RecordedEps++
		}
		if hasHook {
			if recording {
				hook.SetRenderHook(l.capture)
			} else {
				hook.SetRenderHook(nil)
			}
		}

		ret, collisions, err := l.episode(ctx, p, recording && !hasHook)
		if err != nil {
			return res, fmt.Errorf("eval episode %d: %w", i, err)
		}
		res.Returns = append(res.Returns, ret)
		res.Collisions += collisions
		if l.policy.Infeasible() {
			res.InfeasibleEps++
		}
		log.Printf("[EVAL] episode %d/%d return=%.2f", i+1, nEval, ret)

		if !closed && i == l.config.RecordThrough {
			if hasHook {
				hook.SetRenderHook(nil)
			}
			closed = true
			res.RecorderClosed = true
			if err := l.recorder.Close(); err != nil {
				return res, fmt.Errorf("close recorder: %w", err)
			}
			log.Printf("[EVAL] saved video of %d episodes", res.RecordedEps)
		}
	}
	if hasHook {
		hook.SetRenderHook(nil)
	}

	if len(res.Returns) > 0 {
		res.Mean = stat.Mean(res.Returns, nil)
	}
	res.Metrics = []EvalMetric{
		{Name: "mean_return", Value: res.Mean, Pass: res.Mean >= l.config.MinMeanReturn},
		{Name: "collisions", Value: float64(res.Collisions), Pass: res.Collisions == 0},
		{Name: "infeasible_episodes", Value: float64(res.InfeasibleEps), Pass: res.InfeasibleEps == 0},
	}
	return res, nil
}

// episode runs one evaluation episode and returns the summed mean reward over
// every step, including the terminating one.
func (l *Loop) episode(ctx context.Context, p marl.Params, explicitCapture bool) (float64, int, error) {
	state, err := l.env.Reset(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("env reset: %w", err)
	}
	l.policy.ResetMetrics()
	constraint := marl.SentinelConstraint(p.NumAgents, p.ConstraintDim, l.config.Sentinel)

	var ret float64
	var collisions int
	for step := 0; step < l.config.EpisodeLength; step++ {
		if explicitCapture {
			l.capture()
		}
		if err := marl.CheckShape(p, state, nil, constraint); err != nil {
			return ret, collisions, fmt.Errorf("step %d: %w", step, err)
		}
		action, _, err := l.policy.Act(state, constraint)
		if err != nil {
			return ret, collisions, fmt.Errorf("policy act at step %d: %w", step, err)
		}
		out, err := l.env.Step(ctx, action)
		if err != nil {
			return ret, collisions, fmt.Errorf("env step %d: %w", step, err)
		}
		ret += marl.MeanReward(out.Reward)
		collisions += env.CountCollisions(l.env.Agents(), l.collide)
		if out.AllDone() {
			break
		}
		state = out.NextState
		constraint = out.Constraint
	}
	return ret, collisions, nil
}

// capture records one frame. A failed capture is logged and never stops evaluation.
func (l *Loop) capture() error {
	if err := l.recorder.CaptureFrame(); err != nil {
		log.Printf("[EVAL] capture frame: %v", err)
	}
	return nil
}

// #endregion eval-loop
