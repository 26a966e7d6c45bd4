package environment

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/boristopalov/airwrap/pkg/core"
)

// KinematicConfig configures the built-in planar drone world.
type KinematicConfig struct {
	Drones       []DroneSpec
	Speed        float64 // distance covered per step by a non-hold action
	ArriveRadius float64 // a drone within this distance of its goal is done
	Extent       float64 // positions are clamped to [-Extent, Extent] and observations scaled by it
	Jitter       float64 // uniform start offset applied on reset
	Seed         int64
	SceneObjects []SceneObject
}

// Kinematic is a minimal stand-in for the flight simulator: drones move one fixed
// stride per step in the direction of their action. It implements both
// core.Environment and core.Simulator.
type Kinematic struct {
	cfg KinematicConfig

	mu     sync.RWMutex
	drones []*Drone
	scene  map[string]core.Pose
	state  State
	rng    *rand.Rand
}

func NewKinematic(cfg KinematicConfig) (*Kinematic, error) {
	if len(cfg.Drones) == 0 {
		return nil, fmt.Errorf("kinematic environment needs at least one drone")
	}
	if cfg.Speed <= 0 {
		return nil, fmt.Errorf("kinematic speed must be positive, got %v", cfg.Speed)
	}
	if cfg.Extent <= 0 {
		return nil, fmt.Errorf("kinematic extent must be positive, got %v", cfg.Extent)
	}
	seen := make(map[string]bool, len(cfg.Drones))
	drones := make([]*Drone, 0, len(cfg.Drones))
	for _, spec := range cfg.Drones {
		if spec.Name == "" || seen[spec.Name] {
			return nil, fmt.Errorf("drone names must be unique and non-empty, got %q", spec.Name)
		}
		seen[spec.Name] = true
		drones = append(drones, NewDrone(spec.Name, spec.Start))
	}

	scene := make(map[string]core.Pose, len(cfg.SceneObjects))
	for _, obj := range cfg.SceneObjects {
		scene[obj.Name] = obj.Pose
	}

	return &Kinematic{
		cfg:    cfg,
		drones: drones,
		scene:  scene,
		state:  idle(),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (e *Kinematic) GetState() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Kinematic) Agents() []core.Agent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]core.Agent, len(e.drones))
	for i, d := range e.drones {
		out[i] = d
	}
	return out
}

// Reset puts every drone back at its start, with jitter, holding position.
func (e *Kinematic) Reset(ctx context.Context) (core.ObservationBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rng = rand.New(rand.NewSource(e.cfg.Seed))
	for i, d := range e.drones {
		start := e.cfg.Drones[i].Start
		if e.cfg.Jitter > 0 {
			start.X += (e.rng.Float64()*2 - 1) * e.cfg.Jitter
			start.Y += (e.rng.Float64()*2 - 1) * e.cfg.Jitter
		}
		start = e.clamp(start)
		d.SetPosition(start)
		d.SetGoal(start)
	}
	e.state = idle()
	return e.observe(), nil
}

// Step moves every drone according to its action and reports the distance to its
// goal as a negative reward.
func (e *Kinematic) Step(ctx context.Context, actions core.JointAction) (core.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return core.StepResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(actions) != len(e.drones) {
		return core.StepResult{}, fmt.Errorf("%w: %d actions for %d drones", core.ErrShapeMismatch, len(actions), len(e.drones))
	}
	for i, a := range actions {
		if a < 0 || a >= core.NumActions {
			return core.StepResult{}, fmt.Errorf("%w: action %d for drone %s", core.ErrShapeMismatch, a, e.drones[i].Name())
		}
	}

	e.state.Status = "running"
	e.state.Step++
	e.state.Timestamp = time.Now()

	result := core.StepResult{
		Rewards: make([]float64, len(e.drones)),
		Dones:   make([]bool, len(e.drones)),
		Info:    map[string]any{"step": e.state.Step},
	}
	for i, d := range e.drones {
		pos, goal := d.snapshot()
		dx, dy := core.ActionHeading(actions[i])
		pos = e.clamp(core.Position{X: pos.X + dx*e.cfg.Speed, Y: pos.Y + dy*e.cfg.Speed})
		d.SetPosition(pos)

		dist := pos.DistanceTo(goal)
		result.Rewards[i] = -dist
		result.Dones[i] = dist <= e.cfg.ArriveRadius
	}
	result.Observations = e.observe()
	return result, nil
}

func (e *Kinematic) observe() core.ObservationBatch {
	batch := make(core.ObservationBatch, len(e.drones))
	s := e.cfg.Extent
	for i, d := range e.drones {
		pos, goal := d.snapshot()
		batch[i] = core.Observation{
			pos.X / s,
			pos.Y / s,
			(goal.X - pos.X) / s,
			(goal.Y - pos.Y) / s,
			pos.DistanceTo(goal) / s,
		}
	}
	return batch
}

func (e *Kinematic) clamp(p core.Position) core.Position {
	s := e.cfg.Extent
	return core.Position{X: math.Max(-s, math.Min(s, p.X)), Y: math.Max(-s, math.Min(s, p.Y))}
}

// PlaceObject adds or moves a scene object.
func (e *Kinematic) PlaceObject(name string, pose core.Pose) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene[name] = pose
}

// ObjectPose resolves scene objects first, then drones.
func (e *Kinematic) ObjectPose(ctx context.Context, name string) (core.Pose, error) {
	if err := ctx.Err(); err != nil {
		return core.Pose{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if pose, ok := e.scene[name]; ok {
		return pose, nil
	}
	for _, d := range e.drones {
		if d.Name() == name {
			pos := d.Position()
			return core.Pose{X: pos.X, Y: pos.Y}, nil
		}
	}
	return core.Pose{}, fmt.Errorf("%w: %s", core.ErrTargetNotFound, name)
}

func (e *Kinematic) SceneObjects(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.scene)+len(e.drones))
	for name := range e.scene {
		names = append(names, name)
	}
	for _, d := range e.drones {
		names = append(names, d.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (e *Kinematic) Vehicles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, len(e.drones))
	for i, d := range e.drones {
		names[i] = d.Name()
	}
	return names, nil
}
