package marl

import "errors"

// #region errors
// ErrShapeMismatch is returned when a state, action, or constraint does not carry
// exactly one row per agent with the expected width.
var ErrShapeMismatch = errors.New("shape mismatch")

// #endregion errors

// #region vectors
// State holds one observation vector per agent, in agent order.
type State [][]float64

// Action holds one action vector per agent, in agent order.
type Action [][]float64

// Constraint holds one constraint bound vector per agent, in agent order.
type Constraint [][]float64

// #endregion vectors

// #region params
// Params describes the dimensions an environment exposes to the policy.
type Params struct {
	StateDim      int `json:"state_dim" yaml:"state_dim"`
	ActDim        int `json:"act_dim" yaml:"act_dim"`
	ConstraintDim int `json:"constraint_dim" yaml:"constraint_dim"`
	NumAgents     int `json:"num_agents" yaml:"num_agents"`
}

// JointActDim is the width of the flattened joint action.
func (p Params) JointActDim() int {
	return p.ActDim * p.NumAgents
}

// #endregion params

// #region transition
// Transition is one stored experience. Reward is the shaped reward per agent.
type Transition struct {
	State     State
	Action    Action
	Reward    []float64
	NextState State
}

// #endregion transition
