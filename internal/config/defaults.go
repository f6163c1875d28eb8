package config

import (
	"path/filepath"
	"time"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/agent/safeddpg"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env/particle"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/noise"
)

// Default values for the training protocol.
const (
	DefaultBatchSize          = 128
	DefaultEpisodes           = 5000
	DefaultStepsPerEpisode    = 300
	DefaultAgentUpdateRate    = 100
	DefaultUpdatesPerCycle    = 50
	DefaultNEval              = 10
	DefaultRecordEpisodes     = 10
	DefaultConstraintSentinel = 5.0
	DefaultOutputDir          = "output"
	DefaultVideoFile          = "policy.gif"
	DefaultScenario           = "decentralized_safe"
)

// DefaultConfig returns the reference configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Episodes == 0 {
		cfg.Episodes = DefaultEpisodes
	}
	if cfg.StepsPerEpisode == 0 {
		cfg.StepsPerEpisode = DefaultStepsPerEpisode
	}
	if cfg.AgentUpdateRate == 0 {
		cfg.AgentUpdateRate = DefaultAgentUpdateRate
	}
	if cfg.UpdatesPerCycle == 0 {
		cfg.UpdatesPerCycle = DefaultUpdatesPerCycle
	}
	if cfg.NEval == 0 {
		cfg.NEval = DefaultNEval
	}
	if cfg.EpisodeLength == 0 {
		cfg.EpisodeLength = cfg.StepsPerEpisode
	}
	if cfg.RecordEpisodes == 0 {
		cfg.RecordEpisodes = DefaultRecordEpisodes
	}
	if cfg.ConstraintSentinel == 0 {
		cfg.ConstraintSentinel = DefaultConstraintSentinel
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.VideoFile == "" {
		cfg.VideoFile = DefaultVideoFile
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}

	applyEnvDefaults(&cfg.Env, cfg.Seed)
	applyAgentDefaults(&cfg.Agent, cfg.BatchSize, cfg.Seed)
	applyNoiseDefaults(&cfg.Noise, cfg.Episodes, cfg.Seed)

	if cfg.Telemetry.Namespace == "" {
		cfg.Telemetry.Namespace = "safemarl"
	}
	if cfg.Telemetry.MetricsFile == "" {
		cfg.Telemetry.MetricsFile = "metrics.prom"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "safemarl"
	}
}

func applyEnvDefaults(e *EnvConfig, seed uint64) {
	if e.Kind == "" {
		e.Kind = "particle"
	}
	if e.Scenario == "" {
		e.Scenario = DefaultScenario
	}
	if e.Timeout == 0 {
		e.Timeout = 10 * time.Second
	}
	d := particle.DefaultConfig()
	p := &e.Particle
	if p.NumAgents == 0 {
		p.NumAgents = d.NumAgents
	}
	if p.AgentSize == 0 {
		p.AgentSize = d.AgentSize
	}
	if p.LandmarkSize == 0 {
		p.LandmarkSize = d.LandmarkSize
	}
	if p.SafeDistance == 0 {
		p.SafeDistance = d.SafeDistance
	}
	if p.GoalRadius == 0 {
		p.GoalRadius = d.GoalRadius
	}
	if p.Dt == 0 {
		p.Dt = d.Dt
	}
	if p.Damping == 0 {
		p.Damping = d.Damping
	}
	if p.Sensitivity == 0 {
		p.Sensitivity = d.Sensitivity
	}
	if p.MaxSpeed == 0 {
		p.MaxSpeed = d.MaxSpeed
	}
	if p.FrameSize == 0 {
		p.FrameSize = d.FrameSize
	}
	if p.Seed == 0 {
		p.Seed = seed
	}
}

// applyAgentDefaults takes the batch size from the top-level option.
func applyAgentDefaults(a *safeddpg.Config, batch int, seed uint64) {
	d := safeddpg.DefaultConfig()
	if a.Gamma == 0 {
		a.Gamma = d.Gamma
	}
	if a.Tau == 0 {
		a.Tau = d.Tau
	}
	if a.ActorLR == 0 {
		a.ActorLR = d.ActorLR
	}
	if a.CriticLR == 0 {
		a.CriticLR = d.CriticLR
	}
	if a.MaxGradNorm == 0 {
		a.MaxGradNorm = d.MaxGradNorm
	}
	if a.BufferSize == 0 {
		a.BufferSize = d.BufferSize
	}
	a.BatchSize = batch
	if a.InitScale == 0 {
		a.InitScale = d.InitScale
	}
	if a.Seed == 0 {
		a.Seed = seed + 2
	}
	if a.Safety.MaxPasses == 0 {
		a.Safety.MaxPasses = d.Safety.MaxPasses
	}
	if a.Safety.ActLow == 0 && a.Safety.ActHigh == 0 {
		a.Safety.ActLow, a.Safety.ActHigh = d.Safety.ActLow, d.Safety.ActHigh
	}
	if a.Safety.Tolerance == 0 {
		a.Safety.Tolerance = d.Safety.Tolerance
	}
}

// applyNoiseDefaults ties the decay period to the training episode count.
func applyNoiseDefaults(n *noise.Config, episodes int, seed uint64) {
	d := noise.DefaultConfig(episodes)
	if n.Theta == 0 {
		n.Theta = d.Theta
	}
	if n.MaxSigma == 0 {
		n.MaxSigma = d.MaxSigma
	}
	if n.ActLow == 0 && n.ActHigh == 0 {
		n.ActLow, n.ActHigh = d.ActLow, d.ActHigh
	}
	if n.DecayPeriod == 0 {
		n.DecayPeriod = episodes
	}
	if n.Seed == 0 {
		n.Seed = seed + 6
	}
}

// DBFile is the run store path; it defaults to runs.db inside the output directory.
func (c *Config) DBFile() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.OutputDir, "runs.db")
}
