package trainer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/agent/safeddpg"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/config"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env/particle"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/eval"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/metrics"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/record"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/telemetry"
)

// #region replay
// Replay evaluates parameters saved by a previous run without training. The
// recording and eval returns are written to cfg.OutputDir; nothing is stored
// in the run database.
func Replay(ctx context.Context, cfg *config.Config, paramsDir string) (eval.EvalResult, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return eval.EvalResult{}, fmt.Errorf("create output dir: %w", err)
	}
	e, model, err := buildEnv(ctx, cfg)
	if err != nil {
		return eval.EvalResult{}, err
	}
	defer e.Close()

	p := e.Params()
	if err := env.ValidateParams(p); err != nil {
		return eval.EvalResult{}, err
	}
	a, err := safeddpg.New(p, model, cfg.Agent)
	if err != nil {
		return eval.EvalResult{}, err
	}
	if err := a.LoadParams(paramsDir); err != nil {
		return eval.EvalResult{}, fmt.Errorf("load params from %s: %w", paramsDir, err)
	}
	log.Printf("[REPLAY] loaded %d-agent policy from %s", p.NumAgents, paramsDir)

	var rec record.Recorder = &record.Discard{}
	if r, ok := env.RendererOf(e); ok {
		rec = record.NewGIFRecorder(r, filepath.Join(cfg.OutputDir, cfg.VideoFile), 5)
	}

	ecfg := eval.DefaultEvalConfig()
	ecfg.EpisodeLength = cfg.EpisodeLength
	ecfg.RecordThrough = cfg.RecordEpisodes
	ecfg.Sentinel = cfg.ConstraintSentinel

	ctx, span := telemetry.Tracer().Start(ctx, "replay")
	defer span.End()
	res, err := eval.NewLoop(ecfg, e, a, rec, particle.IsCollision).Run(ctx, cfg.NEval)
	if !res.RecorderClosed {
		if cerr := rec.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close recorder: %w", cerr)
		}
	}
	if err != nil {
		return res, err
	}

	if err := metrics.WriteEvalReturns(cfg.OutputDir, res.Returns); err != nil {
		return res, err
	}
	log.Printf("[REPLAY] average return: %.2f over %d episodes", res.Mean, len(res.Returns))
	return res, nil
}

// #endregion replay
