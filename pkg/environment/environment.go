package environment

import (
	"sync"
	"time"

	"github.com/boristopalov/airwrap/pkg/core"
)

type State struct {
	Status    string
	Step      uint32
	Timestamp time.Time
}

// Drone is an environment-owned agent. Position and goal are replaced as whole
// values under the drone's lock.
type Drone struct {
	name string

	mu   sync.RWMutex
	pos  core.Position
	goal core.Position
}

func NewDrone(name string, pos core.Position) *Drone {
	return &Drone{name: name, pos: pos, goal: pos}
}

func (d *Drone) Name() string {
	return d.name
}

func (d *Drone) Position() core.Position {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pos
}

func (d *Drone) Goal() core.Position {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.goal
}

func (d *Drone) SetGoal(goal core.Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.goal = goal
}

// SetPosition moves the drone. Environments call it while stepping.
func (d *Drone) SetPosition(pos core.Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = pos
}

func (d *Drone) snapshot() (core.Position, core.Position) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pos, d.goal
}

// SceneObject is a named static object in the simulated world.
type SceneObject struct {
	Name string    `yaml:"name" json:"name"`
	Pose core.Pose `yaml:"pose" json:"pose"`
}

// DroneSpec places a drone at session start.
type DroneSpec struct {
	Name  string        `yaml:"name" json:"name"`
	Start core.Position `yaml:"start" json:"start"`
}

func idle() State {
	return State{
		Status:    "idle",
		Step:      0,
		Timestamp: time.Now(),
	}
}
