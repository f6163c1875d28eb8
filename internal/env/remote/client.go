package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// Client drives an environment living in another process over gRPC.
// It implements env.Environment.
type Client struct {
	conn    *grpc.ClientConn
	cc      grpc.ClientConnInterface
	timeout time.Duration
	params  marl.Params
	agents  []env.Entity
}

// #endregion client-struct

// #region constructor
// Dial connects to a remote environment server and fetches its dimensions.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	c, err := NewClientWithConn(ctx, conn, timeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

// NewClientWithConn builds a client over an existing connection.
// Used in tests with an in-memory listener.
func NewClientWithConn(ctx context.Context, cc grpc.ClientConnInterface, timeout time.Duration) (*Client, error) {
	c := &Client{cc: cc, timeout: timeout}
	out := new(structpb.Struct)
	if err := c.invoke(ctx, methodParams, &structpb.Struct{}, out); err != nil {
		return nil, fmt.Errorf("params rpc: %w", err)
	}
	c.params = decodeParams(out)
	if err := env.ValidateParams(c.params); err != nil {
		return nil, err
	}
	return c, nil
}

// #endregion constructor

// #region rpc
func (c *Client) invoke(ctx context.Context, method string, in, out *structpb.Struct) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.cc.Invoke(ctx, fullMethod(method), in, out)
}

// #endregion rpc

// #region environment
func (c *Client) Params() marl.Params { return c.params }

func (c *Client) Agents() []env.Entity { return c.agents }

// Reset starts a new remote episode.
func (c *Client) Reset(ctx context.Context) (marl.State, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, methodReset, &structpb.Struct{}, out); err != nil {
		return nil, fmt.Errorf("reset rpc: %w", err)
	}
	v, err := field(out, "state")
	if err != nil {
		return nil, fmt.Errorf("reset rpc: %w", err)
	}
	s, err := decodeMatrix(v)
	if err != nil {
		return nil, fmt.Errorf("reset state: %w", err)
	}
	if a, ok := out.GetFields()["agents"]; ok {
		if c.agents, err = decodeAgents(a); err != nil {
			return nil, fmt.Errorf("reset agents: %w", err)
		}
	}
	return s, nil
}

// Step sends one joint action. The action is serialised, so the caller's
// slices are never shared with the remote side.
func (c *Client) Step(ctx context.Context, action marl.Action) (env.StepResult, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"action": encodeMatrix(action),
	}}
	out := new(structpb.Struct)
	if err := c.invoke(ctx, methodStep, in, out); err != nil {
		return env.StepResult{}, fmt.Errorf("step rpc: %w", err)
	}
	res, agents, err := decodeStep(out)
	if err != nil {
		return env.StepResult{}, fmt.Errorf("step response: %w", err)
	}
	if agents != nil {
		c.agents = agents
	}
	return res, nil
}

// Close asks the server to release the environment and shuts the connection.
func (c *Client) Close() error {
	ctx := context.Background()
	err := c.invoke(ctx, methodClose, &structpb.Struct{}, new(structpb.Struct))
	if c.conn != nil {
		if cerr := c.conn.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("close remote env: %w", err)
	}
	return nil
}

// #endregion environment
