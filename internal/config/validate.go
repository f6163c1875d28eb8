package config

import (
	"fmt"
	"strings"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	Field   string // dotted path, e.g. "env.address"
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate returns a ValidationError listing every invalid field, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError
	positive := []struct {
		field string
		value int
	}{
		{"batch_size", cfg.BatchSize},
		{"episodes", cfg.Episodes},
		{"steps_per_episode", cfg.StepsPerEpisode},
		{"agent_update_rate", cfg.AgentUpdateRate},
		{"updates_per_cycle", cfg.UpdatesPerCycle},
		{"n_eval", cfg.NEval},
		{"episode_length", cfg.EpisodeLength},
		{"agent.buffer_size", cfg.Agent.BufferSize},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, FieldError{Field: p.field, Message: fmt.Sprintf("must be positive, got %d", p.value)})
		}
	}
	if cfg.RecordEpisodes < 0 {
		errs = append(errs, FieldError{Field: "record_episodes", Message: "must not be negative"})
	}
	// The first update cycle runs after episode agent_update_rate, so the buffer
	// then holds at most (rate+1)*steps_per_episode transitions.
	if cfg.AgentUpdateRate > 0 && cfg.StepsPerEpisode > 0 && cfg.Episodes > cfg.AgentUpdateRate &&
		(cfg.AgentUpdateRate+1)*cfg.StepsPerEpisode < cfg.BatchSize {
		errs = append(errs, FieldError{Field: "batch_size", Message: fmt.Sprintf(
			"%d exceeds the %d transitions collected before the first update",
			cfg.BatchSize, (cfg.AgentUpdateRate+1)*cfg.StepsPerEpisode)})
	}
	if cfg.Agent.BufferSize > 0 && cfg.BatchSize > cfg.Agent.BufferSize {
		errs = append(errs, FieldError{Field: "batch_size", Message: "exceeds agent.buffer_size"})
	}
	if cfg.Agent.Gamma < 0 || cfg.Agent.Gamma > 1 {
		errs = append(errs, FieldError{Field: "agent.gamma", Message: "must be in [0, 1]"})
	}
	if cfg.Agent.Tau <= 0 || cfg.Agent.Tau > 1 {
		errs = append(errs, FieldError{Field: "agent.tau", Message: "must be in (0, 1]"})
	}
	if cfg.Noise.ActLow >= cfg.Noise.ActHigh {
		errs = append(errs, FieldError{Field: "noise.act_low", Message: "must be below noise.act_high"})
	}
	if cfg.Noise.MinSigma > cfg.Noise.MaxSigma {
		errs = append(errs, FieldError{Field: "noise.min_sigma", Message: "must not exceed noise.max_sigma"})
	}

	switch cfg.Env.Kind {
	case "particle":
		if cfg.Env.Particle.NumAgents < 2 {
			errs = append(errs, FieldError{Field: "env.particle.num_agents", Message: "needs at least 2 agents"})
		}
	case "remote":
		if cfg.Env.Address == "" {
			errs = append(errs, FieldError{Field: "env.address", Message: "required for a remote environment"})
		}
	default:
		errs = append(errs, FieldError{Field: "env.kind", Message: fmt.Sprintf("unknown kind %q", cfg.Env.Kind)})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
