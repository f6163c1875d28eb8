package update

import (
	"context"
	"errors"
	"testing"
)

type countingUpdater struct {
	calls  int
	failAt int // 1-based call that fails; 0 never
}

func (c *countingUpdater) Update() error {
	c.calls++
	if c.failAt > 0 && c.calls == c.failAt {
		return errors.New("nan in critic")
	}
	return nil
}

func TestScheduleOverThreeHundredEpisodes(t *testing.T) {
	s, err := NewScheduler(DefaultConfig())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	u := &countingUpdater{}
	var fired []int
	for episode := 0; episode < 300; episode++ {
		before := u.calls
		cycle, err := s.Run(context.Background(), episode, u)
		if err != nil {
			t.Fatalf("Run(%d): %v", episode, err)
		}
		if cycle.Decision.Action == "update" {
			fired = append(fired, episode)
			if got := u.calls - before; got != 50 {
				t.Fatalf("episode %d: expected 50 update calls, got %d", episode, got)
			}
			if cycle.Metrics.Passes != 50 {
				t.Fatalf("episode %d: expected 50 passes recorded, got %d", episode, cycle.Metrics.Passes)
			}
		}
	}
	if len(fired) != 2 || fired[0] != 100 || fired[1] != 200 {
		t.Fatalf("expected updates at 100 and 200, got %v", fired)
	}
	if u.calls != 100 {
		t.Fatalf("expected 100 update calls in total, got %d", u.calls)
	}
}

func TestEpisodeZeroNeverUpdates(t *testing.T) {
	s, _ := NewScheduler(Config{Rate: 1, Passes: 1})
	if d := s.ShouldUpdate(0); d.Action != "skip" {
		t.Fatalf("expected skip at episode 0, got %s", d.Action)
	}
	if d := s.ShouldUpdate(1); d.Action != "update" {
		t.Fatalf("expected update at episode 1 with rate 1, got %s", d.Action)
	}
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	s, _ := NewScheduler(DefaultConfig())
	u := &countingUpdater{failAt: 3}
	cycle, err := s.Run(context.Background(), 100, u)
	if err == nil {
		t.Fatal("expected update failure to propagate")
	}
	if u.calls != 3 {
		t.Fatalf("expected no calls after the failure, got %d", u.calls)
	}
	if cycle.Metrics.Passes != 2 {
		t.Fatalf("expected 2 successful passes, got %d", cycle.Metrics.Passes)
	}
}

func TestNewSchedulerRejectsBadConfig(t *testing.T) {
	if _, err := NewScheduler(Config{Rate: 0, Passes: 50}); err == nil {
		t.Fatal("expected error for zero rate")
	}
	if _, err := NewScheduler(Config{Rate: 100, Passes: 0}); err == nil {
		t.Fatal("expected error for zero passes")
	}
}
