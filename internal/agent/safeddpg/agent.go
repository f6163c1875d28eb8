package safeddpg

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/agent"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/replay"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/safety"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var _ agent.Agent = (*Agent)(nil)

// #region agent
// Agent is a multi-agent DDPG learner with decentralised actors and one
// centralised critic per agent. Every action passes through the safety layer.
type Agent struct {
	params marl.Params
	config Config

	actors        []actor
	targetActors  []actor
	critics       []critic
	targetCritics []critic

	buffer *replay.Buffer
	layer  *safety.Layer
	rng    *rand.Rand

	interventions int
	infeasible    bool
}

// New builds an agent for the given dimensions. model linearises each agent's
// constraints around its own observation.
func New(params marl.Params, model safety.Model, config Config) (*Agent, error) {
	if params.NumAgents <= 0 || params.StateDim <= 0 || params.ActDim <= 0 {
		return nil, fmt.Errorf("agent dims %+v: %w", params, marl.ErrShapeMismatch)
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", config.BatchSize)
	}
	buffer, err := replay.NewBuffer(config.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("new agent: %w", err)
	}

	a := &Agent{
		params: params,
		config: config,
		buffer: buffer,
		layer:  safety.NewLayer(config.Safety, model),
		rng:    rand.New(rand.NewPCG(config.Seed, config.Seed^0x5afe)),
	}

	features := a.featureDim()
	for i := 0; i < params.NumAgents; i++ {
		w := mat.NewDense(params.ActDim, params.StateDim, nil)
		for r := 0; r < params.ActDim; r++ {
			for c := 0; c < params.StateDim; c++ {
				w.Set(r, c, (2*a.rng.Float64()-1)*config.InitScale)
			}
		}
		act := actor{w: w, b: mat.NewVecDense(params.ActDim, nil)}
		crit := critic{theta: mat.NewVecDense(features, nil)}

		a.actors = append(a.actors, act)
		a.targetActors = append(a.targetActors, act.clone())
		a.critics = append(a.critics, crit)
		a.targetCritics = append(a.targetCritics, crit.clone())
	}
	return a, nil
}

// featureDim is the critic input width: joint state, joint action, bias.
func (a *Agent) featureDim() int {
	return a.params.NumAgents*(a.params.StateDim+a.params.ActDim) + 1
}

// #endregion agent

// #region act
// Act returns the safe action for every agent and the intervention metric the
// safety layer reported for it.
func (a *Agent) Act(state marl.State, constraint marl.Constraint) (marl.Action, []float64, error) {
	if err := marl.CheckShape(a.params, state, nil, constraint); err != nil {
		return nil, nil, fmt.Errorf("act: %w", err)
	}

	action := make(marl.Action, a.params.NumAgents)
	metric := make([]float64, a.params.NumAgents)
	for i := range action {
		raw := a.actors[i].act(state[i])
		d, err := a.layer.Project(state[i], constraint[i], raw)
		if err != nil {
			return nil, nil, fmt.Errorf("project agent %d: %w", i, err)
		}
		action[i] = d.Action
		metric[i] = d.Metric
		if d.Metric > 0 {
			a.interventions++
		}
		if !d.Feasible {
			a.infeasible = true
		}
	}
	return action, metric, nil
}

func (a *Agent) targetPolicy(state marl.State) marl.Action {
	out := make(marl.Action, len(state))
	for i, obs := range state {
		out[i] = a.targetActors[i].act(obs)
	}
	return out
}

// #endregion act

// #region update
// Update performs one critic and one actor step per agent on a sampled batch,
// then moves the target copies toward the learned parameters.
func (a *Agent) Update() error {
	if a.buffer.Len() < a.config.BatchSize {
		return fmt.Errorf("replay holds %d transitions, batch needs %d", a.buffer.Len(), a.config.BatchSize)
	}
	batch, err := a.buffer.Sample(a.config.BatchSize, a.rng)
	if err != nil {
		return fmt.Errorf("sample batch: %w", err)
	}

	n, sd, ad := a.params.NumAgents, a.params.StateDim, a.params.ActDim
	scale := 1 / float64(len(batch))

	phis := make([]*mat.VecDense, len(batch))
	nextPhis := make([]*mat.VecDense, len(batch))
	for t, tr := range batch {
		if len(tr.Reward) != n {
			return fmt.Errorf("transition %d has %d rewards: %w", t, len(tr.Reward), marl.ErrShapeMismatch)
		}
		phis[t] = features(tr.State, tr.Action)
		nextPhis[t] = features(tr.NextState, a.targetPolicy(tr.NextState))
	}

	for i := 0; i < n; i++ {
		// Critic: TD(0) regression toward r + γ Q'(s', μ'(s')).
		gradTheta := mat.NewVecDense(a.featureDim(), nil)
		for t, tr := range batch {
			y := tr.Reward[i] + a.config.Gamma*mat.Dot(a.targetCritics[i].theta, nextPhis[t])
			delta := y - mat.Dot(a.critics[i].theta, phis[t])
			gradTheta.AddScaledVec(gradTheta, delta*scale, phis[t])
		}
		clipNorm(gradTheta.RawVector().Data, a.config.MaxGradNorm)
		a.critics[i].theta.AddScaledVec(a.critics[i].theta, a.config.CriticLR, gradTheta)

		// Actor: dQ_i/da_i is the critic's action slice for agent i.
		off := n*sd + i*ad
		dq := a.critics[i].theta.SliceVec(off, off+ad)
		gradW := mat.NewDense(ad, sd, nil)
		gradB := mat.NewVecDense(ad, nil)
		for _, tr := range batch {
			obs := tr.State[i]
			mu := a.actors[i].act(obs)
			dpre := mat.NewVecDense(ad, nil)
			for k := 0; k < ad; k++ {
				dpre.SetVec(k, dq.AtVec(k)*(1-mu[k]*mu[k])*scale)
			}
			gradW.RankOne(gradW, 1, dpre, mat.NewVecDense(sd, obs))
			gradB.AddVec(gradB, dpre)
		}
		clipNorm(gradW.RawMatrix().Data, a.config.MaxGradNorm)
		clipNorm(gradB.RawVector().Data, a.config.MaxGradNorm)
		gradW.Scale(a.config.ActorLR, gradW)
		a.actors[i].w.Add(a.actors[i].w, gradW)
		a.actors[i].b.AddScaledVec(a.actors[i].b, a.config.ActorLR, gradB)
	}

	for i := 0; i < n; i++ {
		a.targetActors[i].track(a.actors[i], a.config.Tau)
		a.targetCritics[i].track(a.critics[i], a.config.Tau)
	}
	return nil
}

func features(s marl.State, act marl.Action) *mat.VecDense {
	f := make([]float64, 0)
	for _, row := range s {
		f = append(f, row...)
	}
	for _, row := range act {
		f = append(f, row...)
	}
	f = append(f, 1)
	return mat.NewVecDense(len(f), f)
}

func clipNorm(g []float64, limit float64) {
	if limit <= 0 {
		return
	}
	if norm := floats.Norm(g, 2); norm > limit {
		floats.Scale(limit/norm, g)
	}
}

// #endregion update

// #region metrics
// Memory exposes the replay buffer for storing transitions.
func (a *Agent) Memory() agent.Memory { return a.buffer }

// ResetMetrics clears the per-episode counters.
func (a *Agent) ResetMetrics() {
	a.interventions = 0
	a.infeasible = false
}

// Infeasible reports whether any projection this episode left a constraint violated.
func (a *Agent) Infeasible() bool { return a.infeasible }

// Interventions counts per-agent actions the safety layer changed this episode.
func (a *Agent) Interventions() int { return a.interventions }

// #endregion metrics

// #region networks-ops
func (p actor) act(obs []float64) []float64 {
	var pre mat.VecDense
	pre.MulVec(p.w, mat.NewVecDense(len(obs), obs))
	pre.AddVec(&pre, p.b)
	out := make([]float64, pre.Len())
	for k := range out {
		out[k] = math.Tanh(pre.AtVec(k))
	}
	return out
}

func (p actor) clone() actor {
	return actor{w: mat.DenseCopyOf(p.w), b: mat.VecDenseCopyOf(p.b)}
}

// track applies target = tau*src + (1-tau)*target.
func (p actor) track(src actor, tau float64) {
	var scaled mat.Dense
	scaled.Scale(tau, src.w)
	p.w.Scale(1-tau, p.w)
	p.w.Add(p.w, &scaled)
	p.b.ScaleVec(1-tau, p.b)
	p.b.AddScaledVec(p.b, tau, src.b)
}

func (c critic) clone() critic {
	return critic{theta: mat.VecDenseCopyOf(c.theta)}
}

func (c critic) track(src critic, tau float64) {
	c.theta.ScaleVec(1-tau, c.theta)
	c.theta.AddScaledVec(c.theta, tau, src.theta)
}

// #endregion networks-ops
