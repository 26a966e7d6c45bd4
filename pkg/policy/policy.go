// Package policy turns per-agent observations into discrete actions.
//
// A Policy is a pure function of (observation, hidden state, mask). Recurrent wraps a
// Policy and owns one hidden state per agent so the control loop only deals in
// observations and joint actions.
package policy

import (
	"fmt"

	"github.com/boristopalov/airwrap/pkg/core"
)

// DefaultHiddenSize matches the recurrent width of the trained MAPPO actor.
const DefaultHiddenSize = 64

// Policy selects an action for a single agent.
type Policy interface {
	// Act returns the chosen action and the hidden state to use next step. It must
	// not mutate hidden.
	Act(obs core.Observation, hidden Hidden, mask float64) (int, Hidden, error)
	// ObservationSize is the expected observation width
	ObservationSize() int
	// InitialHidden returns the zero state a session starts from
	InitialHidden() Hidden
}

// Hidden is a recurrent state tensor of shape (Layers, Batch, Size), stored row-major.
type Hidden struct {
	Layers int
	Batch  int
	Size   int
	Data   []float64
}

// NewHidden returns a zeroed single-batch state.
func NewHidden(layers, size int) Hidden {
	return Hidden{
		Layers: layers,
		Batch:  1,
		Size:   size,
		Data:   make([]float64, layers*size),
	}
}

func (h Hidden) Shape() [3]int {
	return [3]int{h.Layers, h.Batch, h.Size}
}

func (h Hidden) Clone() Hidden {
	h.Data = append([]float64(nil), h.Data...)
	return h
}

// Validate checks that Data agrees with the declared shape.
func (h Hidden) Validate() error {
	if h.Layers <= 0 || h.Batch <= 0 || h.Size <= 0 || len(h.Data) != h.Layers*h.Batch*h.Size {
		return fmt.Errorf("%w: hidden state %v holds %d values", core.ErrShapeMismatch, h.Shape(), len(h.Data))
	}
	return nil
}

func checkObservation(obs core.Observation, want int) error {
	if len(obs) != want {
		return fmt.Errorf("%w: observation has %d features, policy expects %d", core.ErrShapeMismatch, len(obs), want)
	}
	return nil
}
