package env

import (
	"context"
	"image"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
)

// #region step-result
// StepResult is everything the environment reports after one joint action.
type StepResult struct {
	NextState  marl.State
	Reward     []float64
	Done       []bool
	Info       map[string]any
	Constraint marl.Constraint
}

// AllDone reports whether every agent's done flag is set.
func (r StepResult) AllDone() bool {
	if len(r.Done) == 0 {
		return false
	}
	for _, d := range r.Done {
		if !d {
			return false
		}
	}
	return true
}

// #endregion step-result

// #region entity
// Entity is an agent body as seen by collision checks.
type Entity struct {
	Name    string
	Pos     []float64
	Size    float64
	Collide bool
}

// CollisionFunc is the scenario's pairwise collision predicate.
type CollisionFunc func(a, b Entity) bool

// #endregion entity

// #region environment
// Environment is a multi-agent world driven one joint action at a time.
type Environment interface {
	Reset(ctx context.Context) (marl.State, error)
	Step(ctx context.Context, action marl.Action) (StepResult, error)
	Params() marl.Params
	// Agents returns the agent bodies in agent order after the last Reset or Step.
	Agents() []Entity
	Close() error
}

// #endregion environment

// #region capabilities
// Renderer is implemented by environments that can draw their current frame.
type Renderer interface {
	Render() (image.Image, error)
}

// RenderHooker is implemented by environments that invoke a rendering callback
// themselves after every step. A nil hook disables the callback.
type RenderHooker interface {
	SetRenderHook(hook func() error)
}

// #endregion capabilities
