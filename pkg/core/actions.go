package core

// Discrete actions of the planar action space. The index is what policies emit and
// what environments receive in a JointAction.
const (
	ActionHold = iota
	ActionNorth
	ActionSouth
	ActionEast
	ActionWest

	NumActions
)

// ObservationSize is the per-agent feature width: x, y, goal dx, goal dy and goal
// distance, each scaled by the world extent.
const ObservationSize = 5

// ActionHeading returns the unit planar direction for an action.
func ActionHeading(action int) (dx, dy float64) {
	switch action {
	case ActionNorth:
		return 1, 0
	case ActionSouth:
		return -1, 0
	case ActionEast:
		return 0, 1
	case ActionWest:
		return 0, -1
	default:
		return 0, 0
	}
}
