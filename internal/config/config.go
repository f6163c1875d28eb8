package config

import (
	"time"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/agent/safeddpg"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env/particle"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/noise"
)

// Config is the full training run configuration.
type Config struct {
	BatchSize          int     `yaml:"batch_size"`
	Episodes           int     `yaml:"episodes"`
	StepsPerEpisode    int     `yaml:"steps_per_episode"`
	AgentUpdateRate    int     `yaml:"agent_update_rate"`
	UpdatesPerCycle    int     `yaml:"updates_per_cycle"`
	NEval              int     `yaml:"n_eval"`
	EpisodeLength      int     `yaml:"episode_length"`
	RecordEpisodes     int     `yaml:"record_episodes"` // last recorded evaluation episode index
	ConstraintSentinel float64 `yaml:"constraint_sentinel"`

	OutputDir string `yaml:"output_dir"`
	DBPath    string `yaml:"db_path"` // empty means <output_dir>/runs.db
	VideoFile string `yaml:"video_file"`
	Seed      uint64 `yaml:"seed"`

	Env       EnvConfig       `yaml:"env"`
	Agent     safeddpg.Config `yaml:"agent"`
	Noise     noise.Config    `yaml:"noise"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EnvConfig selects and configures the environment.
type EnvConfig struct {
	Kind     string          `yaml:"kind"` // "particle" | "remote"
	Scenario string          `yaml:"scenario"`
	Address  string          `yaml:"address"` // remote only
	Timeout  time.Duration   `yaml:"timeout"` // remote only, per call
	Particle particle.Config `yaml:"particle"`
}

// TelemetryConfig controls the metrics textfile and tracing.
type TelemetryConfig struct {
	Namespace   string `yaml:"namespace"`
	MetricsFile string `yaml:"metrics_file"` // relative to output_dir
	Tracing     bool   `yaml:"tracing"`
	TraceFile   string `yaml:"trace_file"` // relative to output_dir; empty means stdout
	ServiceName string `yaml:"service_name"`
}
