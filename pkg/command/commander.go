// Package command sets the goal positions the flight controller steers agents toward.
package command

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/boristopalov/airwrap/pkg/core"
	"github.com/boristopalov/airwrap/pkg/position"
)

const (
	// FindRadius is how close a target must be for FindTarget to report it.
	FindRadius = 10.0
	// DefaultMissionRadius is the circle radius used by Disperse when none is given.
	DefaultMissionRadius = 800.0
)

// Commander mutates per-agent goals. It is safe to call from any goroutine while a
// control loop is running: goals and positions are read and written as whole values.
type Commander struct {
	store  *position.Store
	sim    core.Simulator
	logger zerolog.Logger
}

func NewCommander(store *position.Store, sim core.Simulator, logger zerolog.Logger) *Commander {
	return &Commander{
		store:  store,
		sim:    sim,
		logger: logger.With().Str("component", "command").Logger(),
	}
}

// GoTo sets the agent's goal to pos as given; reachability is not checked.
func (c *Commander) GoTo(name string, pos core.Position) error {
	a, err := c.store.Agent(name)
	if err != nil {
		return err
	}
	a.SetGoal(pos)
	c.logger.Info().Str("agent", name).Float64("x", pos.X).Float64("y", pos.Y).Msg("goal set")
	return nil
}

// Follow points the agent at the target's current planar pose. An empty target makes
// the agent hold its last known position. If the target cannot be resolved the goal
// is left unchanged.
func (c *Commander) Follow(ctx context.Context, name, target string) error {
	if target == "" {
		return c.hold(name)
	}
	a, err := c.store.Agent(name)
	if err != nil {
		return err
	}
	pose, err := c.sim.ObjectPose(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to resolve %s for %s: %w", target, name, err)
	}
	a.SetGoal(pose.Planar())
	c.logger.Info().Str("agent", name).Str("target", target).Float64("x", pose.X).Float64("y", pose.Y).Msg("following")
	return nil
}

// Cancel makes the agent hold its last known position. It does not stop the control
// loop; the policy keeps acting toward the held goal.
func (c *Commander) Cancel(name string) error {
	return c.hold(name)
}

func (c *Commander) hold(name string) error {
	a, err := c.store.Agent(name)
	if err != nil {
		return err
	}
	pos, err := c.store.Get(name)
	if err != nil {
		return err
	}
	a.SetGoal(pos)
	c.logger.Info().Str("agent", name).Msg("holding position")
	return nil
}

// FindTarget reports whether target is within FindRadius of the agent's last known
// position.
func (c *Commander) FindTarget(ctx context.Context, name, target string) (bool, error) {
	pos, err := c.store.Get(name)
	if err != nil {
		return false, err
	}
	pose, err := c.sim.ObjectPose(ctx, target)
	if err != nil {
		return false, err
	}
	return pose.Planar().DistanceTo(pos) < FindRadius, nil
}

// FindObjects lists scene objects whose name contains substr.
func (c *Commander) FindObjects(ctx context.Context, substr string) ([]string, error) {
	names, err := c.sim.SceneObjects(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		if strings.Contains(n, substr) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (c *Commander) AgentNames(ctx context.Context) ([]string, error) {
	return c.sim.Vehicles(ctx)
}

func (c *Commander) DronePosition(name string) (core.Position, error) {
	return c.store.Get(name)
}

func (c *Commander) TargetPose(ctx context.Context, target string) (core.Pose, error) {
	return c.sim.ObjectPose(ctx, target)
}

// Disperse sends every agent, in session order, to its own point on a circle around
// center.
func (c *Commander) Disperse(center core.Position, radius float64) error {
	names := c.store.Names()
	points := MissionPoints(center, len(names), radius)
	for i, name := range names {
		if err := c.GoTo(name, points[i]); err != nil {
			return err
		}
	}
	return nil
}

// MissionPoints spaces n points evenly on a circle of the given radius, starting due
// north of center. A non-positive radius uses DefaultMissionRadius.
func MissionPoints(center core.Position, n int, radius float64) []core.Position {
	if radius <= 0 {
		radius = DefaultMissionRadius
	}
	points := make([]core.Position, n)
	for i := range points {
		theta := 2 * math.Pi / float64(n) * float64(i)
		points[i] = core.Position{
			X: center.X + radius*math.Cos(theta),
			Y: center.Y + radius*math.Sin(theta),
		}
	}
	return points
}
