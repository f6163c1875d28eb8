package update

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Updater performs one gradient step against its own replay buffer.
type Updater interface {
	Update() error
}

// #region scheduler
// Scheduler decides after each completed episode whether the agent learns.
type Scheduler struct {
	config Config
}

// NewScheduler validates the cadence.
func NewScheduler(config Config) (*Scheduler, error) {
	if config.Rate <= 0 {
		return nil, fmt.Errorf("agent update rate must be positive, got %d", config.Rate)
	}
	if config.Passes <= 0 {
		return nil, fmt.Errorf("updates per cycle must be positive, got %d", config.Passes)
	}
	return &Scheduler{config: config}, nil
}

// ShouldUpdate fires on every multiple of the rate except episode 0, which
// never has enough data in the buffer.
func (s *Scheduler) ShouldUpdate(episode int) Decision {
	if episode <= 0 {
		return Decision{Action: "skip", Reason: "first episode"}
	}
	if episode%s.config.Rate != 0 {
		return Decision{Action: "skip", Reason: fmt.Sprintf("episode %d not a multiple of %d", episode, s.config.Rate)}
	}
	return Decision{Action: "update", Reason: fmt.Sprintf("episode %d is a multiple of %d", episode, s.config.Rate)}
}

// #endregion scheduler

// #region run
// Run performs the update cycle for episode when one is due. The first failing
// update aborts the cycle; the error is returned with the passes completed so far.
func (s *Scheduler) Run(ctx context.Context, episode int, u Updater) (Cycle, error) {
	cycle := Cycle{Episode: episode, Decision: s.ShouldUpdate(episode)}
	if cycle.Decision.Action != "update" {
		return cycle, nil
	}

	start := time.Now()
	log.Printf("[UPDATE] updating agent at episode %d", episode)
	for pass := 0; pass < s.config.Passes; pass++ {
		if err := ctx.Err(); err != nil {
			return cycle, fmt.Errorf("update pass %d at episode %d: %w", pass, episode, err)
		}
		if err := u.Update(); err != nil {
			cycle.Metrics.UpdateTimeMs = time.Since(start).Milliseconds()
			return cycle, fmt.Errorf("update pass %d at episode %d: %w", pass, episode, err)
		}
		cycle.Metrics.Passes++
	}
	cycle.Metrics.UpdateTimeMs = time.Since(start).Milliseconds()
	log.Printf("[UPDATE] done: %d passes in %dms", cycle.Metrics.Passes, cycle.Metrics.UpdateTimeMs)
	return cycle, nil
}

// #endregion run
