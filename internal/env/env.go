package env

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
)

// #region owned
// OwnedEnv guarantees value semantics on Step: the wrapped environment always
// receives an independent copy of the caller's action, so any in-place mutation
// it performs is invisible to the caller.
type OwnedEnv struct {
	inner Environment
}

// Owned wraps e. Wrapping an already owned environment returns it unchanged.
func Owned(e Environment) *OwnedEnv {
	if o, ok := e.(*OwnedEnv); ok {
		return o
	}
	return &OwnedEnv{inner: e}
}

// Unwrap returns the wrapped environment.
func (o *OwnedEnv) Unwrap() Environment { return o.inner }

func (o *OwnedEnv) Reset(ctx context.Context) (marl.State, error) {
	return o.inner.Reset(ctx)
}

func (o *OwnedEnv) Step(ctx context.Context, action marl.Action) (StepResult, error) {
	cp, err := marl.CopyAction(action)
	if err != nil {
		return StepResult{}, err
	}
	return o.inner.Step(ctx, cp)
}

func (o *OwnedEnv) Params() marl.Params { return o.inner.Params() }
func (o *OwnedEnv) Agents() []Entity    { return o.inner.Agents() }
func (o *OwnedEnv) Close() error        { return o.inner.Close() }

// HookOf returns e's render hook slot, looking through Owned wrappers.
func HookOf(e Environment) (RenderHooker, bool) {
	if o, ok := e.(*OwnedEnv); ok {
		e = o.inner
	}
	h, ok := e.(RenderHooker)
	return h, ok
}

// RendererOf returns e as a Renderer, looking through Owned wrappers.
func RendererOf(e Environment) (Renderer, bool) {
	if o, ok := e.(*OwnedEnv); ok {
		e = o.inner
	}
	r, ok := e.(Renderer)
	return r, ok
}

// #endregion owned

// #region collisions
// CountCollisions tests every unordered pair (i, j), i < j, and returns how many collide.
// Quadratic in the number of agents.
func CountCollisions(agents []Entity, collide CollisionFunc) int {
	if collide == nil {
		return 0
	}
	n := 0
	for i := 0; i < len(agents); i++ {
		for j := i + 1; j < len(agents); j++ {
			if collide(agents[i], agents[j]) {
				n++
			}
		}
	}
	return n
}

// #endregion collisions

// #region validate
// ValidateParams rejects environments whose reported dimensions cannot drive a rollout.
func ValidateParams(p marl.Params) error {
	if p.NumAgents <= 0 || p.StateDim <= 0 || p.ActDim <= 0 || p.ConstraintDim <= 0 {
		return fmt.Errorf("invalid env params %+v: %w", p, marl.ErrShapeMismatch)
	}
	return nil
}

// #endregion validate
