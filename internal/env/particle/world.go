package particle

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
)

// #region world
// World is the decentralized safe-navigation scenario: every agent steers a point
// mass toward its own landmark while keeping SafeDistance from the others.
type World struct {
	cfg       Config
	rng       *rand.Rand
	agents    []body
	landmarks []body
	hook      func() error
}

// New builds a world from cfg. Call Reset before the first Step.
func New(cfg Config) (*World, error) {
	if cfg.NumAgents < 2 {
		return nil, fmt.Errorf("particle world needs at least 2 agents, got %d", cfg.NumAgents)
	}
	if cfg.Dt <= 0 || cfg.Sensitivity <= 0 {
		return nil, fmt.Errorf("particle world needs positive dt and sensitivity")
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = DefaultConfig().FrameSize
	}
	w := &World{
		cfg:       cfg,
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		agents:    make([]body, cfg.NumAgents),
		landmarks: make([]body, cfg.NumAgents),
	}
	return w, nil
}

// #endregion world

// #region params
func (w *World) Params() marl.Params {
	return marl.Params{
		StateDim:      stateDim(w.cfg.NumAgents),
		ActDim:        actDim,
		ConstraintDim: w.cfg.NumAgents - 1,
		NumAgents:     w.cfg.NumAgents,
	}
}

// #endregion params

// #region reset
// Reset scatters agents and landmarks uniformly and zeroes velocities.
func (w *World) Reset(_ context.Context) (marl.State, error) {
	for i := range w.agents {
		w.agents[i] = body{
			pos:  [2]float64{w.uniform(-1, 1), w.uniform(-1, 1)},
			size: w.cfg.AgentSize,
		}
		w.landmarks[i] = body{
			pos:  [2]float64{w.uniform(-0.9, 0.9), w.uniform(-0.9, 0.9)},
			size: w.cfg.LandmarkSize,
		}
	}
	return w.observe(), nil
}

func (w *World) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*w.rng.Float64()
}

// #endregion reset

// #region step
// Step integrates one tick of damped point-mass dynamics. Actions are clipped to [-1, 1].
func (w *World) Step(_ context.Context, action marl.Action) (env.StepResult, error) {
	if err := marl.CheckRows("action", action, w.cfg.NumAgents, actDim); err != nil {
		return env.StepResult{}, err
	}

	for i := range w.agents {
		a := &w.agents[i]
		for d := 0; d < 2; d++ {
			force := clip(action[i][d], -1, 1) * w.cfg.Sensitivity
			a.vel[d] = a.vel[d]*(1-w.cfg.Damping) + force*w.cfg.Dt
		}
		if speed := math.Hypot(a.vel[0], a.vel[1]); w.cfg.MaxSpeed > 0 && speed > w.cfg.MaxSpeed {
			a.vel[0] *= w.cfg.MaxSpeed / speed
			a.vel[1] *= w.cfg.MaxSpeed / speed
		}
		a.pos[0] += a.vel[0] * w.cfg.Dt
		a.pos[1] += a.vel[1] * w.cfg.Dt
	}

	n := w.cfg.NumAgents
	res := env.StepResult{
		NextState:  w.observe(),
		Reward:     make([]float64, n),
		Done:       make([]bool, n),
		Info:       map[string]any{},
		Constraint: w.constraints(),
	}
	entities := w.Agents()
	for i := 0; i < n; i++ {
		goal := distance(w.agents[i].pos, w.landmarks[i].pos)
		res.Reward[i] = -goal
		res.Done[i] = goal < w.cfg.GoalRadius
		for j := 0; j < n; j++ {
			if j != i && IsCollision(entities[i], entities[j]) {
				res.Reward[i]--
			}
		}
	}

	if w.hook != nil {
		if err := w.hook(); err != nil {
			return env.StepResult{}, fmt.Errorf("render hook: %w", err)
		}
	}
	return res, nil
}

// #endregion step

// #region observe
func (w *World) observe() marl.State {
	n := w.cfg.NumAgents
	s := make(marl.State, n)
	for i := 0; i < n; i++ {
		a := w.agents[i]
		obs := make([]float64, stateDim(n))
		obs[velOffset], obs[velOffset+1] = a.vel[0], a.vel[1]
		obs[posOffset], obs[posOffset+1] = a.pos[0], a.pos[1]
		obs[landmarkOffset] = w.landmarks[i].pos[0] - a.pos[0]
		obs[landmarkOffset+1] = w.landmarks[i].pos[1] - a.pos[1]
		k := othersOffset
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			obs[k] = w.agents[j].pos[0] - a.pos[0]
			obs[k+1] = w.agents[j].pos[1] - a.pos[1]
			k += 2
		}
		s[i] = obs
	}
	return s
}

// constraints returns, per agent, the slack to every other agent in index order.
func (w *World) constraints() marl.Constraint {
	n := w.cfg.NumAgents
	c := make(marl.Constraint, n)
	for i := 0; i < n; i++ {
		row := make([]float64, 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			row = append(row, distance(w.agents[i].pos, w.agents[j].pos)-w.cfg.SafeDistance)
		}
		c[i] = row
	}
	return c
}

// #endregion observe

// #region agents
func (w *World) Agents() []env.Entity {
	out := make([]env.Entity, len(w.agents))
	for i, a := range w.agents {
		out[i] = env.Entity{
			Name:    fmt.Sprintf("agent %d", i),
			Pos:     []float64{a.pos[0], a.pos[1]},
			Size:    a.size,
			Collide: true,
		}
	}
	return out
}

// IsCollision reports whether two bodies overlap.
func IsCollision(a, b env.Entity) bool {
	if !a.Collide || !b.Collide || len(a.Pos) < 2 || len(b.Pos) < 2 {
		return false
	}
	d := math.Hypot(a.Pos[0]-b.Pos[0], a.Pos[1]-b.Pos[1])
	return d < a.Size+b.Size
}

// #endregion agents

// #region render
func (w *World) SetRenderHook(hook func() error) { w.hook = hook }

// Render draws landmarks and agents on a white square covering [-1.5, 1.5]².
func (w *World) Render() (image.Image, error) {
	size := w.cfg.FrameSize
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	for _, l := range w.landmarks {
		w.fillCircle(img, l.pos, l.size, color.RGBA{0x40, 0x40, 0x40, 0xff})
	}
	for i, a := range w.agents {
		w.fillCircle(img, a.pos, a.size, palette[i%len(palette)])
	}
	return img, nil
}

var palette = []color.RGBA{
	{0x35, 0x6a, 0xd9, 0xff},
	{0xd9, 0x4a, 0x35, 0xff},
	{0x2f, 0xa8, 0x5a, 0xff},
	{0xc9, 0x9a, 0x1e, 0xff},
	{0x8e, 0x44, 0xad, 0xff},
}

func (w *World) fillCircle(img *image.RGBA, center [2]float64, radius float64, c color.RGBA) {
	size := float64(w.cfg.FrameSize)
	scale := size / 3.0
	cx := (center[0] + 1.5) * scale
	cy := (1.5 - center[1]) * scale
	r := radius * scale
	for y := int(cy - r); y <= int(cy+r); y++ {
		for x := int(cx - r); x <= int(cx+r); x++ {
			if !(image.Point{x, y}).In(img.Rect) {
				continue
			}
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// #endregion render

// #region close
func (w *World) Close() error {
	w.hook = nil
	return nil
}

// #endregion close

// #region helpers
func distance(a, b [2]float64) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// #endregion helpers
