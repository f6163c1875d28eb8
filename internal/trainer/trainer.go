package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/config"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/eval"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/logging"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/metrics"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/record"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/rollout"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/store"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/telemetry"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/update"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ErrClosed is returned when Run is called on a trainer that already ran.
var ErrClosed = errors.New("trainer already closed")

// #region trainer
// Trainer runs one training-and-evaluation cycle:
// INIT -> TRAIN_EPISODE* -> PERSIST -> EVAL_EPISODE* -> REPORT -> CLOSE.
type Trainer struct {
	cfg  *config.Config
	deps Deps

	runID    string
	agg      metrics.Aggregator
	sched    *update.Scheduler
	updates  []logging.UpdateEntry
	recorder record.Recorder
	recDone  bool
	report   Report
	closed   bool
}

// New validates the update cadence and wires the collaborators.
func New(cfg *config.Config, deps Deps) (*Trainer, error) {
	if deps.Env == nil || deps.Agent == nil {
		return nil, fmt.Errorf("trainer needs an environment and an agent")
	}
	sched, err := update.NewScheduler(update.Config{Rate: cfg.AgentUpdateRate, Passes: cfg.UpdatesPerCycle})
	if err != nil {
		return nil, fmt.Errorf("new trainer: %w", err)
	}
	if deps.Scenario == "" {
		deps.Scenario = cfg.Env.Scenario
	}
	return &Trainer{cfg: cfg, deps: deps, sched: sched}, nil
}

func (t *Trainer) enter(p Phase) {
	if n := len(t.report.Phases); n > 0 && t.report.Phases[n-1] == p {
		return
	}
	t.report.Phases = append(t.report.Phases, p)
}

// #endregion trainer

// #region run
// Run executes the whole state machine. A fatal error aborts the run; the
// environment and store are still released on a best-effort basis.
func (t *Trainer) Run(ctx context.Context) (Report, error) {
	if t.closed {
		return t.report, ErrClosed
	}
	ctx, span := telemetry.Tracer().Start(ctx, "run")
	defer span.End()

	if err := t.runPhases(ctx); err != nil {
		span.RecordError(err)
		t.release()
		return t.report, err
	}
	span.SetAttributes(attribute.String("run_id", t.runID))
	return t.report, nil
}

func (t *Trainer) runPhases(ctx context.Context) error {
	if err := t.init(ctx); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := t.train(ctx); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := t.persist(); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	res, err := t.evaluate(ctx)
	if err != nil {
		return fmt.Errorf("eval: %w", err)
	}
	if err := t.reportEval(res); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return t.close()
}

// #endregion run

// #region init
func (t *Trainer) init(ctx context.Context) error {
	t.enter(PhaseInit)
	p := t.deps.Env.Params()
	log.Printf("[TRAIN] env params: state_dim=%d act_dim=%d constraint_dim=%d num_agents=%d",
		p.StateDim, p.ActDim, p.ConstraintDim, p.NumAgents)
	if err := env.ValidateParams(p); err != nil {
		return err
	}
	state, err := t.deps.Env.Reset(ctx)
	if err != nil {
		return fmt.Errorf("env reset: %w", err)
	}
	if err := marl.CheckShape(p, state, nil, nil); err != nil {
		return err
	}
	if err := os.MkdirAll(t.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	t.runID = uuid.New().String()
	if t.deps.Store != nil {
		cfgJSON, err := json.Marshal(t.cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		run, err := t.deps.Store.CreateRun(store.Run{
			RunID:      t.runID,
			ConfigJSON: string(cfgJSON),
			Scenario:   t.deps.Scenario,
			NumAgents:  p.NumAgents,
		})
		if err != nil {
			return err
		}
		t.runID = run.RunID
	}
	t.report.RunID = t.runID
	log.Printf("[TRAIN] run %s: %d episodes x %d steps, update every %d episodes",
		t.runID, t.cfg.Episodes, t.cfg.StepsPerEpisode, t.cfg.AgentUpdateRate)
	return nil
}

// #endregion init

// #region train
func (t *Trainer) train(ctx context.Context) error {
	runner := rollout.NewRunner(t.deps.Env, t.deps.Agent, t.deps.Noise, t.deps.Collide,
		t.cfg.StepsPerEpisode, t.cfg.ConstraintSentinel)
	tracer := telemetry.Tracer()

	for episode := 0; episode < t.cfg.Episodes; episode++ {
		t.enter(PhaseTrain)
		epCtx, span := tracer.Start(ctx, "episode")
		span.SetAttributes(attribute.Int("episode", episode))

		res, err := runner.RunEpisode(epCtx, episode)
		if err != nil {
			span.RecordError(err)
			span.End()
			return fmt.Errorf("episode %d: %w", episode, err)
		}
		log.Printf("[TRAIN] episode %d/%d reward=%.3f collisions=%d",
			episode+1, t.cfg.Episodes, res.Reward, res.Collisions)

		cycle, err := t.sched.Run(epCtx, episode, t.deps.Agent)
		if err != nil {
			span.RecordError(err)
			span.End()
			return err
		}
		if cycle.Decision.Action == "update" {
			t.report.UpdateCycles++
			t.updates = append(t.updates, logging.UpdateEntry{
				RunID:        t.runID,
				Episode:      episode,
				Decision:     cycle.Decision.Action,
				Reason:       cycle.Decision.Reason,
				Passes:       cycle.Metrics.Passes,
				UpdateTimeMs: cycle.Metrics.UpdateTimeMs,
			})
		}

		t.agg.Record(res)
		if t.deps.Metrics != nil {
			t.deps.Metrics.ObserveEpisode(res)
			t.deps.Metrics.ObserveUpdate(cycle)
		}
		log.Printf("[TRAIN] interventions=%d infeasible=%v", res.Interventions, res.Infeasible)

		span.SetAttributes(
			attribute.Float64("reward", res.Reward),
			attribute.Int("collisions", res.Collisions),
			attribute.String("update", cycle.Decision.Action),
		)
		span.End()
	}
	t.report.Episodes = t.agg.Len()
	t.report.TotalCollisions = t.agg.TotalCollisions()
	return nil
}

// #endregion train

// #region persist
func (t *Trainer) persist() error {
	t.enter(PhasePersist)
	dir := t.cfg.OutputDir
	if err := t.deps.Agent.SaveParams(dir); err != nil {
		return fmt.Errorf("save agent params: %w", err)
	}
	if err := t.agg.Persist(dir); err != nil {
		return err
	}

	if t.deps.Store != nil {
		rows := make([]store.EpisodeRow, 0, t.agg.Len())
		cumulative := t.agg.Collisions()
		for i, ep := range t.agg.Episodes() {
			rows = append(rows, store.EpisodeRow{
				Episode:              ep.Episode,
				Reward:               ep.Reward,
				Collisions:           ep.Collisions,
				CumulativeCollisions: int(cumulative[i]),
				Steps:                ep.Steps,
				Interventions:        ep.Interventions,
				Infeasible:           ep.Infeasible,
			})
		}
		if err := t.deps.Store.SaveEpisodes(t.runID, rows); err != nil {
			return err
		}
		for _, u := range t.updates {
			if err := logging.LogUpdate(t.deps.Store.DB(), u); err != nil {
				return err
			}
		}
	}
	log.Printf("[PERSIST] wrote %d episodes to %s", t.agg.Len(), dir)
	return nil
}

// #endregion persist

// #region eval
func (t *Trainer) evaluate(ctx context.Context) (eval.EvalResult, error) {
	t.enter(PhaseEval)
	t.recorder = t.deps.Recorder
	if t.recorder == nil {
		if r, ok := env.RendererOf(t.deps.Env); ok {
			t.recorder = record.NewGIFRecorder(r, filepath.Join(t.cfg.OutputDir, t.cfg.VideoFile), 5)
		} else {
			log.Printf("[EVAL] environment cannot render, frames are discarded")
			t.recorder = &record.Discard{}
		}
	}

	cfg := eval.DefaultEvalConfig()
	cfg.EpisodeLength = t.cfg.EpisodeLength
	cfg.RecordThrough = t.cfg.RecordEpisodes
	cfg.Sentinel = t.cfg.ConstraintSentinel

	loop := eval.NewLoop(cfg, t.deps.Env, t.deps.Agent, t.recorder, t.deps.Collide)
	ctx, span := telemetry.Tracer().Start(ctx, "evaluate")
	defer span.End()
	res, err := loop.Run(ctx, t.cfg.NEval)
	t.recDone = res.RecorderClosed
	return res, err
}

// #endregion eval

// #region report
func (t *Trainer) reportEval(res eval.EvalResult) error {
	t.enter(PhaseReport)
	t.report.EvalReturns = res.Returns
	t.report.MeanReturn = res.Mean
	log.Printf("[EVAL] average return: %.2f", res.Mean)
	for _, m := range res.Metrics {
		log.Printf("[EVAL] %s=%.3f pass=%v", m.Name, m.Value, m.Pass)
	}

	if err := metrics.WriteEvalReturns(t.cfg.OutputDir, res.Returns); err != nil {
		return err
	}
	if t.deps.Store != nil {
		if err := t.deps.Store.SaveEval(t.runID, res.Returns, res.Mean); err != nil {
			return err
		}
	}
	if t.deps.Metrics != nil {
		t.deps.Metrics.ObserveEval(res.Returns, res.Mean)
		if err := t.deps.Metrics.WriteTextfile(filepath.Join(t.cfg.OutputDir, t.cfg.Telemetry.MetricsFile)); err != nil {
			return err
		}
	}
	return nil
}

// #endregion report

// #region close
// close finalises the recorder if evaluation ended before the record-through
// episode, then releases the environment and store.
func (t *Trainer) close() error {
	t.enter(PhaseClose)
	t.closed = true
	var errs []error
	if t.recorder != nil && !t.recDone {
		t.recDone = true
		if err := t.recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close recorder: %w", err))
		}
	}
	if err := t.deps.Env.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close env: %w", err))
	}
	if t.deps.Store != nil {
		if err := t.deps.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Printf("[TRAIN] run %s closed", t.runID)
	return nil
}

// release is the abort path: the recorder is left unfinished.
func (t *Trainer) release() {
	if t.closed {
		return
	}
	t.closed = true
	if err := t.deps.Env.Close(); err != nil {
		log.Printf("[TRAIN] close env after failure: %v", err)
	}
	if t.deps.Store != nil {
		if err := t.deps.Store.Close(); err != nil {
			log.Printf("[TRAIN] close store after failure: %v", err)
		}
	}
}

// #endregion close
