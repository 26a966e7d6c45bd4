package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/airwrap/pkg/core"
)

// countingPolicy returns argmax(obs) and a state whose values count the calls made
// with it.
type countingPolicy struct {
	masks []float64
}

func (p *countingPolicy) ObservationSize() int  { return core.ObservationSize }
func (p *countingPolicy) InitialHidden() Hidden { return NewHidden(1, DefaultHiddenSize) }

func (p *countingPolicy) Act(obs core.Observation, hidden Hidden, mask float64) (int, Hidden, error) {
	p.masks = append(p.masks, mask)
	next := hidden.Clone()
	for i := range next.Data {
		next.Data[i]++
	}
	return argmax(obs), next, nil
}

type shrinkingPolicy struct{ countingPolicy }

func (p *shrinkingPolicy) Act(obs core.Observation, hidden Hidden, mask float64) (int, Hidden, error) {
	return 0, NewHidden(1, 2), nil
}

func TestRecurrent(t *testing.T) {
	t.Run("one action per agent in order", func(t *testing.T) {
		r := NewRecurrent(&countingPolicy{}, 3)
		actions, err := r.ActAll(core.ObservationBatch{
			{0, 0, 9, 0, 0},
			{9, 0, 0, 0, 0},
			{0, 0, 0, 0, 9},
		})
		require.NoError(t, err)
		assert.Equal(t, core.JointAction{2, 0, 4}, actions)
	})

	t.Run("hidden states persist across steps", func(t *testing.T) {
		r := NewRecurrent(&countingPolicy{}, 2)
		batch := core.ObservationBatch{make(core.Observation, 5), make(core.Observation, 5)}
		for i := 0; i < 3; i++ {
			_, err := r.ActAll(batch)
			require.NoError(t, err)
		}
		for i := 0; i < 2; i++ {
			h := r.Hidden(i)
			assert.Equal(t, [3]int{1, 1, 64}, h.Shape())
			assert.Equal(t, 3.0, h.Data[0])
		}

		r.Reset(2)
		assert.Equal(t, 0.0, r.Hidden(0).Data[0])
	})

	t.Run("observation width mismatch", func(t *testing.T) {
		r := NewRecurrent(&countingPolicy{}, 1)
		_, err := r.Act(0, core.Observation{1, 2, 3})
		require.ErrorIs(t, err, core.ErrShapeMismatch)
	})

	t.Run("batch length mismatch leaves state untouched", func(t *testing.T) {
		r := NewRecurrent(&countingPolicy{}, 2)
		_, err := r.ActAll(core.ObservationBatch{make(core.Observation, 5)})
		require.ErrorIs(t, err, core.ErrShapeMismatch)

		_, err = r.ActAll(core.ObservationBatch{make(core.Observation, 5), {1}})
		require.ErrorIs(t, err, core.ErrShapeMismatch)
		assert.Equal(t, 0.0, r.Hidden(0).Data[0])
	})

	t.Run("policy changing the hidden shape is rejected", func(t *testing.T) {
		r := NewRecurrent(&shrinkingPolicy{}, 1)
		_, err := r.Act(0, make(core.Observation, 5))
		require.ErrorIs(t, err, core.ErrShapeMismatch)
	})

	t.Run("masks default to one", func(t *testing.T) {
		p := &countingPolicy{}
		r := NewRecurrent(p, 2)
		r.SetMask(1, 0)
		_, err := r.ActAll(core.ObservationBatch{make(core.Observation, 5), make(core.Observation, 5)})
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 0}, p.masks)
	})
}

func TestScripted(t *testing.T) {
	t.Run("fixed", func(t *testing.T) {
		p := Fixed{Action: 3, ObsSize: 5, HiddenSize: 4}
		action, h, err := p.Act(make(core.Observation, 5), p.InitialHidden(), 1)
		require.NoError(t, err)
		assert.Equal(t, 3, action)
		assert.Equal(t, [3]int{1, 1, 4}, h.Shape())
	})

	tests := []struct {
		name   string
		dx, dy float64
		want   int
	}{
		{"north", 0.5, 0.1, core.ActionNorth},
		{"south", -0.5, 0.1, core.ActionSouth},
		{"east", 0.1, 0.5, core.ActionEast},
		{"west", 0.1, -0.5, core.ActionWest},
		{"arrived", 0.001, 0.001, core.ActionHold},
	}
	for _, tt := range tests {
		t.Run("greedy "+tt.name, func(t *testing.T) {
			p := Greedy{HiddenSize: 4, Deadband: 0.01}
			action, _, err := p.Act(core.Observation{0, 0, tt.dx, tt.dy, 0}, p.InitialHidden(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, action)
		})
	}
}
