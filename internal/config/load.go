package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// SAFEMARL_* environment variable overrides, which always win over the file.
// Overrides are applied before defaults so derived fields (episode_length,
// noise decay period, per-component seeds) follow the overridden values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func readConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	intVars := map[string]*int{
		"SAFEMARL_BATCH_SIZE":        &cfg.BatchSize,
		"SAFEMARL_EPISODES":          &cfg.Episodes,
		"SAFEMARL_STEPS_PER_EPISODE": &cfg.StepsPerEpisode,
		"SAFEMARL_AGENT_UPDATE_RATE": &cfg.AgentUpdateRate,
		"SAFEMARL_UPDATES_PER_CYCLE": &cfg.UpdatesPerCycle,
		"SAFEMARL_N_EVAL":            &cfg.NEval,
		"SAFEMARL_EPISODE_LENGTH":    &cfg.EpisodeLength,
		"SAFEMARL_ENV_NUM_AGENTS":    &cfg.Env.Particle.NumAgents,
	}
	for name, dst := range intVars {
		if val := os.Getenv(name); val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				*dst = i
			}
		}
	}

	if val := os.Getenv("SAFEMARL_OUTPUT_DIR"); val != "" {
		cfg.OutputDir = val
	}
	if val := os.Getenv("SAFEMARL_DB_PATH"); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv("SAFEMARL_ENV_KIND"); val != "" {
		cfg.Env.Kind = val
	}
	if val := os.Getenv("SAFEMARL_ENV_ADDRESS"); val != "" {
		cfg.Env.Address = val
	}
	if val := os.Getenv("SAFEMARL_ENV_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Env.Timeout = d
		}
	}
	if val := os.Getenv("SAFEMARL_SEED"); val != "" {
		if s, err := strconv.ParseUint(val, 10, 64); err == nil {
			cfg.Seed = s
		}
	}
	if val := os.Getenv("SAFEMARL_TELEMETRY_TRACING"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing = b
		}
	}
}
