package trainer

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/agent/safeddpg"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/config"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env/particle"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env/remote"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/noise"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/safety"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/store"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/telemetry"
)

// #region build
// Build assembles a Trainer from configuration: the environment, the safe
// MADDPG agent, the exploration schedule, the run store and the collector.
func Build(ctx context.Context, cfg *config.Config) (*Trainer, error) {
	e, model, err := buildEnv(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p := e.Params()
	if err := env.ValidateParams(p); err != nil {
		e.Close()
		return nil, err
	}

	a, err := safeddpg.New(p, model, cfg.Agent)
	if err != nil {
		e.Close()
		return nil, err
	}
	n, err := noise.NewOU(p.JointActDim(), cfg.Noise)
	if err != nil {
		e.Close()
		return nil, err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		e.Close()
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	st, err := store.NewStore(cfg.DBFile())
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open run store: %w", err)
	}

	t, err := New(cfg, Deps{
		Env:      e,
		Agent:    a,
		Noise:    n,
		Collide:  particle.IsCollision,
		Store:    st,
		Metrics:  telemetry.NewCollector(cfg.Telemetry.Namespace),
		Scenario: cfg.Env.Scenario,
	})
	if err != nil {
		e.Close()
		st.Close()
		return nil, err
	}
	return t, nil
}

// buildEnv returns the environment and the constraint model its agents use.
// Remote environments report no sensitivity, so their safety layer only flags
// infeasibility.
func buildEnv(ctx context.Context, cfg *config.Config) (env.Environment, safety.Model, error) {
	switch cfg.Env.Kind {
	case "particle":
		w, err := particle.New(cfg.Env.Particle)
		if err != nil {
			return nil, nil, fmt.Errorf("particle env: %w", err)
		}
		return w, w.ConstraintModel(), nil
	case "remote":
		c, err := remote.Dial(ctx, cfg.Env.Address, cfg.Env.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("remote env: %w", err)
		}
		p := c.Params()
		log.Printf("[ENV] connected to %s", cfg.Env.Address)
		return c, safety.Blind{Constraints: p.ConstraintDim, ActDim: p.ActDim}, nil
	default:
		return nil, nil, fmt.Errorf("unknown env kind %q", cfg.Env.Kind)
	}
}

// #endregion build
