package remote

import (
	"fmt"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region constants
const serviceName = "safemarl.Environment"

const (
	methodReset  = "Reset"
	methodStep   = "Step"
	methodParams = "Params"
	methodClose  = "Close"
)

func fullMethod(m string) string {
	return "/" + serviceName + "/" + m
}

// #endregion constants

// #region encode
func encodeMatrix(rows [][]float64) *structpb.Value {
	vals := make([]*structpb.Value, len(rows))
	for i, row := range rows {
		vals[i] = encodeVector(row)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func encodeVector(v []float64) *structpb.Value {
	vals := make([]*structpb.Value, len(v))
	for i, x := range v {
		vals[i] = structpb.NewNumberValue(x)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func encodeBools(v []bool) *structpb.Value {
	vals := make([]*structpb.Value, len(v))
	for i, x := range v {
		vals[i] = structpb.NewBoolValue(x)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func encodeAgents(agents []env.Entity) *structpb.Value {
	vals := make([]*structpb.Value, len(agents))
	for i, a := range agents {
		vals[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"name":    structpb.NewStringValue(a.Name),
			"pos":     encodeVector(a.Pos),
			"size":    structpb.NewNumberValue(a.Size),
			"collide": structpb.NewBoolValue(a.Collide),
		}})
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func encodeParams(p marl.Params) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"state_dim":      structpb.NewNumberValue(float64(p.StateDim)),
		"act_dim":        structpb.NewNumberValue(float64(p.ActDim)),
		"constraint_dim": structpb.NewNumberValue(float64(p.ConstraintDim)),
		"num_agents":     structpb.NewNumberValue(float64(p.NumAgents)),
	}}
}

func encodeStep(res env.StepResult, agents []env.Entity) (*structpb.Struct, error) {
	info, err := structpb.NewStruct(res.Info)
	if err != nil {
		return nil, fmt.Errorf("encode info: %w", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"next_state": encodeMatrix(res.NextState),
		"reward":     encodeVector(res.Reward),
		"done":       encodeBools(res.Done),
		"constraint": encodeMatrix(res.Constraint),
		"info":       structpb.NewStructValue(info),
		"agents":     encodeAgents(agents),
	}}, nil
}

// #endregion encode

// #region decode
func field(s *structpb.Struct, name string) (*structpb.Value, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, fmt.Errorf("missing field %q", name)
	}
	return v, nil
}

func decodeVector(v *structpb.Value) ([]float64, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("expected list, got %T", v.GetKind())
	}
	out := make([]float64, len(list.Values))
	for i, x := range list.Values {
		n, ok := x.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("element %d is not a number", i)
		}
		out[i] = n.NumberValue
	}
	return out, nil
}

func decodeMatrix(v *structpb.Value) ([][]float64, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("expected list of rows, got %T", v.GetKind())
	}
	out := make([][]float64, len(list.Values))
	for i, row := range list.Values {
		vec, err := decodeVector(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func decodeBools(v *structpb.Value) ([]bool, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("expected list, got %T", v.GetKind())
	}
	out := make([]bool, len(list.Values))
	for i, x := range list.Values {
		b, ok := x.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, fmt.Errorf("element %d is not a bool", i)
		}
		out[i] = b.BoolValue
	}
	return out, nil
}

func decodeAgents(v *structpb.Value) ([]env.Entity, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("expected list of agents, got %T", v.GetKind())
	}
	out := make([]env.Entity, len(list.Values))
	for i, x := range list.Values {
		s := x.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("agent %d is not an object", i)
		}
		f := s.GetFields()
		pos, err := decodeVector(f["pos"])
		if err != nil {
			return nil, fmt.Errorf("agent %d pos: %w", i, err)
		}
		out[i] = env.Entity{
			Name:    f["name"].GetStringValue(),
			Pos:     pos,
			Size:    f["size"].GetNumberValue(),
			Collide: f["collide"].GetBoolValue(),
		}
	}
	return out, nil
}

func decodeParams(s *structpb.Struct) marl.Params {
	f := s.GetFields()
	return marl.Params{
		StateDim:      int(f["state_dim"].GetNumberValue()),
		ActDim:        int(f["act_dim"].GetNumberValue()),
		ConstraintDim: int(f["constraint_dim"].GetNumberValue()),
		NumAgents:     int(f["num_agents"].GetNumberValue()),
	}
}

func decodeStep(s *structpb.Struct) (env.StepResult, []env.Entity, error) {
	var res env.StepResult
	var err error

	decodeM := func(name string) [][]float64 {
		if err != nil {
			return nil
		}
		var v *structpb.Value
		if v, err = field(s, name); err != nil {
			return nil
		}
		var m [][]float64
		if m, err = decodeMatrix(v); err != nil {
			err = fmt.Errorf("%s: %w", name, err)
		}
		return m
	}
	res.NextState = decodeM("next_state")
	res.Constraint = decodeM("constraint")
	if err != nil {
		return env.StepResult{}, nil, err
	}

	v, err := field(s, "reward")
	if err != nil {
		return env.StepResult{}, nil, err
	}
	if res.Reward, err = decodeVector(v); err != nil {
		return env.StepResult{}, nil, fmt.Errorf("reward: %w", err)
	}
	if v, err = field(s, "done"); err != nil {
		return env.StepResult{}, nil, err
	}
	if res.Done, err = decodeBools(v); err != nil {
		return env.StepResult{}, nil, fmt.Errorf("done: %w", err)
	}
	res.Info = s.GetFields()["info"].GetStructValue().AsMap()

	var agents []env.Entity
	if v, ok := s.GetFields()["agents"]; ok {
		if agents, err = decodeAgents(v); err != nil {
			return env.StepResult{}, nil, err
		}
	}
	return res, agents, nil
}

// #endregion decode
