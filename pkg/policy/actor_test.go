package policy

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/airwrap/pkg/core"
)

func matrix(rows, cols int, seed float64) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		for j := range out[i] {
			out[i][j] = 0.1 * math.Sin(seed+float64(i*cols+j))
		}
	}
	return out
}

func vector(n int, seed float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.05 * math.Cos(seed+float64(i))
	}
	return out
}

func testWeights(obs, hidden, actions int) ActorWeights {
	return ActorWeights{
		ObsDim:     obs,
		HiddenSize: hidden,
		ActionDim:  actions,
		Base:       Linear{Weight: matrix(hidden, obs, 1), Bias: vector(hidden, 2)},
		GRU: GRUWeights{
			WeightIH: matrix(3*hidden, hidden, 3),
			WeightHH: matrix(3*hidden, hidden, 4),
			BiasIH:   vector(3*hidden, 5),
			BiasHH:   vector(3*hidden, 6),
		},
		Act: Linear{Weight: matrix(actions, hidden, 7), Bias: vector(actions, 8)},
	}
}

// tinyActor has one hidden unit: h' = 0.5*tanh(relu(x0)) + 0.5*h*mask, and the
// action head scores h' for action 0 and -h' for action 1.
func tinyActor(t *testing.T) *Actor {
	t.Helper()
	a, err := NewActor(ActorWeights{
		ObsDim:     2,
		HiddenSize: 1,
		ActionDim:  2,
		Base:       Linear{Weight: [][]float64{{1, 0}}, Bias: []float64{0}},
		GRU: GRUWeights{
			WeightIH: [][]float64{{0}, {0}, {1}},
			WeightHH: [][]float64{{0}, {0}, {0}},
			BiasIH:   []float64{0, 0, 0},
			BiasHH:   []float64{0, 0, 0},
		},
		Act: Linear{Weight: [][]float64{{1}, {-1}}, Bias: []float64{0, 0}},
	})
	require.NoError(t, err)
	return a
}

func TestActor(t *testing.T) {
	t.Run("gru update and argmax", func(t *testing.T) {
		a := tinyActor(t)
		action, next, err := a.Act(core.Observation{1, 0}, a.InitialHidden(), 1)
		require.NoError(t, err)
		assert.Equal(t, 0, action)
		assert.InDelta(t, 0.5*math.Tanh(1), next.Data[0], 1e-12)

		prev := NewHidden(1, 1)
		prev.Data[0] = -0.4
		action, next, err = a.Act(core.Observation{-1, 0}, prev, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, action)
		assert.InDelta(t, -0.2, next.Data[0], 1e-12)
		assert.Equal(t, -0.4, prev.Data[0], "input state must not be mutated")
	})

	t.Run("zero mask clears memory", func(t *testing.T) {
		a := tinyActor(t)
		prev := NewHidden(1, 1)
		prev.Data[0] = -0.4
		action, next, err := a.Act(core.Observation{-1, 0}, prev, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, action, "ties resolve to the first action")
		assert.Equal(t, 0.0, next.Data[0])
	})

	t.Run("hidden shape is preserved", func(t *testing.T) {
		a, err := NewActor(testWeights(core.ObservationSize, DefaultHiddenSize, core.NumActions))
		require.NoError(t, err)

		h := a.InitialHidden()
		assert.Equal(t, [3]int{1, 1, 64}, h.Shape())
		for i := 0; i < 5; i++ {
			action, next, err := a.Act(core.Observation{0.1, -0.2, 0.3, 0.4, 0.5}, h, 1)
			require.NoError(t, err)
			assert.Equal(t, h.Shape(), next.Shape())
			assert.GreaterOrEqual(t, action, 0)
			assert.Less(t, action, core.NumActions)
			h = next
		}
	})

	t.Run("wrong observation width", func(t *testing.T) {
		a := tinyActor(t)
		_, _, err := a.Act(core.Observation{1, 2, 3}, a.InitialHidden(), 1)
		require.ErrorIs(t, err, core.ErrShapeMismatch)
	})

	t.Run("wrong hidden shape", func(t *testing.T) {
		a := tinyActor(t)
		_, _, err := a.Act(core.Observation{1, 2}, NewHidden(1, 3), 1)
		require.ErrorIs(t, err, core.ErrShapeMismatch)
	})

	t.Run("malformed weights are rejected", func(t *testing.T) {
		w := testWeights(5, 4, 3)
		w.GRU.WeightHH = w.GRU.WeightHH[:2]
		_, err := NewActor(w)
		require.ErrorIs(t, err, core.ErrShapeMismatch)
	})
}

func TestActorNormalizedLayout(t *testing.T) {
	w := ActorWeights{
		ObsDim:      2,
		HiddenSize:  1,
		ActionDim:   2,
		FeatureNorm: &LayerNorm{Weight: []float64{1, 1}, Bias: []float64{0, 0}, Eps: 1e-12},
		Base:        Linear{Weight: [][]float64{{1, 0}}, Bias: []float64{0}},
		Layers:      []Layer{{Linear: Linear{Weight: [][]float64{{2}}, Bias: []float64{0}}}},
		GRU: GRUWeights{
			WeightIH: [][]float64{{0}, {0}, {1}},
			WeightHH: [][]float64{{0}, {0}, {0}},
			BiasIH:   []float64{0, 0, 0},
			BiasHH:   []float64{0, 0, 0},
		},
		// A one-wide norm maps everything to its bias.
		RNNNorm: &LayerNorm{Weight: []float64{1}, Bias: []float64{-1}},
		Act:     Linear{Weight: [][]float64{{1}, {-1}}, Bias: []float64{0, 0}},
	}

	t.Run("norms and extra layers are applied in order", func(t *testing.T) {
		a, err := NewActor(w)
		require.NoError(t, err)

		// {3, 1} normalizes to {1, -1}; base keeps 1, the extra layer doubles it.
		action, next, err := a.Act(core.Observation{3, 1}, a.InitialHidden(), 1)
		require.NoError(t, err)
		assert.InDelta(t, 0.5*math.Tanh(2), next.Data[0], 1e-9)
		// The head sees the normalized output (-1), not the carried state.
		assert.Equal(t, 1, action)
	})

	t.Run("norms survive a weights file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "actor.json")
		raw, err := json.Marshal(w)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, raw, 0o644))

		a, err := LoadActor(path)
		require.NoError(t, err)
		_, next, err := a.Act(core.Observation{3, 1}, a.InitialHidden(), 1)
		require.NoError(t, err)
		assert.InDelta(t, 0.5*math.Tanh(2), next.Data[0], 1e-9)
	})

	t.Run("norm width must match its layer", func(t *testing.T) {
		bad := w
		bad.BaseNorm = &LayerNorm{Weight: []float64{1, 1}, Bias: []float64{0, 0}}
		_, err := NewActor(bad)
		require.ErrorIs(t, err, core.ErrShapeMismatch)

		bad = w
		bad.Layers = []Layer{{Linear: Linear{Weight: [][]float64{{1, 1}}, Bias: []float64{0}}}}
		_, err = NewActor(bad)
		require.ErrorIs(t, err, core.ErrShapeMismatch)
	})
}

func TestLoadActor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actor.json")
	raw, err := json.Marshal(testWeights(core.ObservationSize, 8, core.NumActions))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	a, err := LoadActor(path)
	require.NoError(t, err)
	assert.Equal(t, core.ObservationSize, a.ObservationSize())
	assert.Equal(t, core.NumActions, a.ActionSize())
	assert.Equal(t, [3]int{1, 1, 8}, a.InitialHidden().Shape())

	_, err = LoadActor(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
