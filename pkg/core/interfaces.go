package core

import (
	"context"
)

// Agent is a controllable vehicle owned by an environment. Implementations must make
// Position, Goal and SetGoal safe for concurrent use.
type Agent interface {
	Name() string
	Position() Position
	Goal() Position
	SetGoal(goal Position)
}

// Environment advances the simulated world one step at a time.
type Environment interface {
	// Reset restores initial conditions and returns the first observations
	Reset(ctx context.Context) (ObservationBatch, error)
	// Step applies one action per agent and returns the next observations
	Step(ctx context.Context, actions JointAction) (StepResult, error)
	// Agents returns the agents in the fixed order used for observations and actions
	Agents() []Agent
}

// Simulator answers scene queries against the simulated world.
type Simulator interface {
	// ObjectPose returns the world pose of a named scene object
	ObjectPose(ctx context.Context, name string) (Pose, error)
	// SceneObjects lists every object name in the scene
	SceneObjects(ctx context.Context) ([]string, error)
	// Vehicles lists the vehicle names known to the simulator
	Vehicles(ctx context.Context) ([]string, error)
}
