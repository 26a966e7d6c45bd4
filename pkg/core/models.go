package core

import (
	"math"
	"time"
)

// Position is a planar world position. X points north and Y points east, matching
// the simulator's NED frame with altitude dropped.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DistanceTo returns the euclidean distance between two positions.
func (p Position) DistanceTo(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Pose is a world pose as reported by the simulator.
type Pose struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Planar projects the pose onto the ground plane.
func (p Pose) Planar() Position {
	return Position{X: p.X, Y: p.Y}
}

// Observation is one agent's feature vector.
type Observation []float64

// ObservationBatch holds one observation per agent, in agent order.
type ObservationBatch []Observation

// Clone returns a deep copy so callers can keep a stable snapshot.
func (b ObservationBatch) Clone() ObservationBatch {
	out := make(ObservationBatch, len(b))
	for i, obs := range b {
		out[i] = append(Observation(nil), obs...)
	}
	return out
}

// JointAction holds one discrete action index per agent, in agent order.
type JointAction []int

// StepResult is what an environment returns after applying a joint action.
type StepResult struct {
	Observations ObservationBatch `json:"observations"`
	Rewards      []float64        `json:"rewards"`
	Dones        []bool           `json:"dones"`
	Info         map[string]any   `json:"info,omitempty"`
}

// AgentSnapshot is a point-in-time copy of an agent's state.
type AgentSnapshot struct {
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Goal     Position `json:"goal"`
}

// StepEvent is published after every control step.
type StepEvent struct {
	SessionID string              `json:"session_id"`
	Step      uint64              `json:"step"`
	Actions   JointAction         `json:"actions"`
	Rewards   []float64           `json:"rewards"`
	Dones     []bool              `json:"dones"`
	Positions map[string]Position `json:"positions"`
	Timestamp time.Time           `json:"timestamp"`
}

// SessionStatus describes a running or finished control session.
type SessionStatus struct {
	ID        string
	Running   bool
	Steps     uint64
	StartTime time.Time
	EndTime   time.Time
	Err       error
}
