package remote

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/boristopalov/airwrap/pkg/core"
	"github.com/boristopalov/airwrap/pkg/environment"
)

// Client is a core.Environment and core.Simulator backed by a remote Server. Agents
// are local mirrors: positions are refreshed from every Reset and Step response, and
// goals set locally are sent with the next Step.
type Client struct {
	conn *grpc.ClientConn
	own  bool

	mu     sync.RWMutex
	agents []*environment.Drone
}

// Dial connects to a remote environment at target.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to environment at %s: %w", target, err)
	}
	c := NewClient(conn)
	c.own = true
	return c, nil
}

// NewClient wraps an existing connection. Close does not close conn.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func (c *Client) Close() error {
	if c.own {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, resp, grpc.ForceCodec(structCodec{}))
	return fromStatus(err)
}

func (c *Client) Reset(ctx context.Context) (core.ObservationBatch, error) {
	var resp ResetResponse
	if err := c.invoke(ctx, "Reset", &ResetRequest{}, &resp); err != nil {
		return nil, err
	}

	agents := make([]*environment.Drone, len(resp.Agents))
	for i, snap := range resp.Agents {
		agents[i] = environment.NewDrone(snap.Name, snap.Position)
		agents[i].SetGoal(snap.Goal)
	}
	c.mu.Lock()
	c.agents = agents
	c.mu.Unlock()
	return resp.Observations, nil
}

func (c *Client) Step(ctx context.Context, actions core.JointAction) (core.StepResult, error) {
	c.mu.RLock()
	agents := c.agents
	c.mu.RUnlock()

	goals := make(map[string]core.Position, len(agents))
	for _, a := range agents {
		goals[a.Name()] = a.Goal()
	}

	var resp StepResponse
	if err := c.invoke(ctx, "Step", &StepRequest{Actions: actions, Goals: goals}, &resp); err != nil {
		return core.StepResult{}, err
	}

	byName := make(map[string]*environment.Drone, len(agents))
	for _, a := range agents {
		byName[a.Name()] = a
	}
	for _, snap := range resp.Agents {
		if a, ok := byName[snap.Name]; ok {
			a.SetPosition(snap.Position)
		}
	}
	return resp.Result, nil
}

func (c *Client) Agents() []core.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Agent, len(c.agents))
	for i, a := range c.agents {
		out[i] = a
	}
	return out
}

func (c *Client) ObjectPose(ctx context.Context, name string) (core.Pose, error) {
	var resp PoseResponse
	if err := c.invoke(ctx, "ObjectPose", &PoseRequest{Name: name}, &resp); err != nil {
		return core.Pose{}, err
	}
	return resp.Pose, nil
}

func (c *Client) SceneObjects(ctx context.Context) ([]string, error) {
	var resp ListResponse
	if err := c.invoke(ctx, "SceneObjects", &ListRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

func (c *Client) Vehicles(ctx context.Context) ([]string, error) {
	var resp ListResponse
	if err := c.invoke(ctx, "Vehicles", &ListRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Names, nil
}
