package policy

import (
	"math"

	"github.com/boristopalov/airwrap/pkg/core"
)

// Fixed always returns the same action. The hidden state is passed through.
type Fixed struct {
	Action     int
	ObsSize    int
	HiddenSize int
}

func (f Fixed) ObservationSize() int { return f.ObsSize }

func (f Fixed) InitialHidden() Hidden { return NewHidden(1, f.HiddenSize) }

func (f Fixed) Act(obs core.Observation, hidden Hidden, _ float64) (int, Hidden, error) {
	if err := checkObservation(obs, f.ObsSize); err != nil {
		return 0, Hidden{}, err
	}
	return f.Action, hidden.Clone(), nil
}

// Greedy heads straight for the goal along the dominant axis of the goal offset
// carried in observation features 2 and 3. Inside Deadband it holds.
type Greedy struct {
	HiddenSize int
	Deadband   float64
}

func (g Greedy) ObservationSize() int { return core.ObservationSize }

func (g Greedy) InitialHidden() Hidden { return NewHidden(1, g.HiddenSize) }

func (g Greedy) Act(obs core.Observation, hidden Hidden, _ float64) (int, Hidden, error) {
	if err := checkObservation(obs, core.ObservationSize); err != nil {
		return 0, Hidden{}, err
	}
	dx, dy := obs[2], obs[3]
	if math.Hypot(dx, dy) <= g.Deadband {
		return core.ActionHold, hidden.Clone(), nil
	}

	action := core.ActionEast
	switch {
	case math.Abs(dx) >= math.Abs(dy) && dx > 0:
		action = core.ActionNorth
	case math.Abs(dx) >= math.Abs(dy):
		action = core.ActionSouth
	case dy < 0:
		action = core.ActionWest
	}
	return action, hidden.Clone(), nil
}
