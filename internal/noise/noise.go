package noise

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// #region config
// Config parameterises the Ornstein-Uhlenbeck exploration process.
type Config struct {
	Mu          float64 `yaml:"mu"`
	Theta       float64 `yaml:"theta"`
	MaxSigma    float64 `yaml:"max_sigma"`
	MinSigma    float64 `yaml:"min_sigma"`
	ActLow      float64 `yaml:"act_low"`
	ActHigh     float64 `yaml:"act_high"`
	DecayPeriod int     `yaml:"decay_period"` // episodes; set to the training episode count
	Seed        uint64  `yaml:"seed"`
}

// DefaultConfig returns the reference schedule for a [-1, 1] action range.
func DefaultConfig(decayPeriod int) Config {
	return Config{
		Mu:          0,
		Theta:       0.15,
		MaxSigma:    0.3,
		MinSigma:    0.0,
		ActLow:      -1,
		ActHigh:     1,
		DecayPeriod: decayPeriod,
		Seed:        7,
	}
}

// #endregion config

// #region perturber
// Perturber perturbs a flattened joint action. step and episode locate the call in the run.
type Perturber interface {
	Perturb(flat []float64, step, episode int) []float64
}

// #endregion perturber

// #region ou
// OU is a time-decaying Ornstein-Uhlenbeck process over the flattened joint action.
type OU struct {
	cfg    Config
	state  []float64
	normal distuv.Normal
}

// NewOU builds a process of the given joint width (act_dim * num_agents).
func NewOU(width int, cfg Config) (*OU, error) {
	if width <= 0 {
		return nil, fmt.Errorf("ou noise width must be positive, got %d", width)
	}
	if cfg.ActLow >= cfg.ActHigh {
		return nil, fmt.Errorf("ou noise action range [%f, %f] is empty", cfg.ActLow, cfg.ActHigh)
	}
	if cfg.DecayPeriod <= 0 {
		return nil, fmt.Errorf("ou noise decay period must be positive, got %d", cfg.DecayPeriod)
	}
	o := &OU{
		cfg:   cfg,
		state: make([]float64, width),
		normal: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewPCG(cfg.Seed, cfg.Seed^0x2545f4914f6cdd1d),
		},
	}
	o.Reset()
	return o, nil
}

// Reset returns the process to its mean.
func (o *OU) Reset() {
	for i := range o.state {
		o.state[i] = o.cfg.Mu
	}
}

// Sigma is the noise scale used for episode. It falls linearly from MaxSigma to
// MinSigma over DecayPeriod episodes and stays there.
func (o *OU) Sigma(episode int) float64 {
	frac := math.Min(1, float64(episode)/float64(o.cfg.DecayPeriod))
	return o.cfg.MaxSigma - (o.cfg.MaxSigma-o.cfg.MinSigma)*frac
}

// Perturb advances the process one tick and returns flat plus noise, clipped to the
// action range. flat is not modified. All entries share the episode's sigma.
func (o *OU) Perturb(flat []float64, _ int, episode int) []float64 {
	sigma := o.Sigma(episode)
	out := make([]float64, len(flat))
	for i := range flat {
		k := i % len(o.state)
		o.state[k] += o.cfg.Theta*(o.cfg.Mu-o.state[k]) + sigma*o.normal.Rand()
		out[i] = math.Max(o.cfg.ActLow, math.Min(o.cfg.ActHigh, flat[i]+o.state[k]))
	}
	return out
}

// #endregion ou
