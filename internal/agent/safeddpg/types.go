package safeddpg

import (
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/safety"
	"gonum.org/v1/gonum/mat"
)

// #region config
// Config holds learning parameters for the linear safe MADDPG agent.
type Config struct {
	Gamma       float64       `yaml:"gamma"`
	Tau         float64       `yaml:"tau"` // Polyak factor for target copies
	ActorLR     float64       `yaml:"actor_lr"`
	CriticLR    float64       `yaml:"critic_lr"`
	MaxGradNorm float64       `yaml:"max_grad_norm"` // 0 disables clipping
	BufferSize  int           `yaml:"buffer_size"`
	BatchSize   int           `yaml:"batch_size"`
	InitScale   float64       `yaml:"init_scale"` // actor weights start uniform in ±InitScale
	Seed        uint64        `yaml:"seed"`
	Safety      safety.Config `yaml:"safety"`
}

// DefaultConfig returns the reference learning parameters.
func DefaultConfig() Config {
	return Config{
		Gamma:       0.95,
		Tau:         0.01,
		ActorLR:     1e-3,
		CriticLR:    1e-3,
		MaxGradNorm: 10,
		BufferSize:  100_000,
		BatchSize:   128,
		InitScale:   0.1,
		Seed:        3,
		Safety:      safety.DefaultConfig(),
	}
}

// #endregion config

// #region networks
// actor is a tanh-linear deterministic policy for one agent: a = tanh(W s + b).
type actor struct {
	w *mat.Dense    // act_dim x state_dim
	b *mat.VecDense // act_dim
}

// critic is a linear Q estimate for one agent over the joint state and action,
// with a trailing bias feature.
type critic struct {
	theta *mat.VecDense // N*(state_dim+act_dim) + 1
}

// #endregion networks
