package policy

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/boristopalov/airwrap/pkg/core"
)

// Linear holds a dense layer as exported from a torch state dict: Weight is
// [out][in] and Bias is [out].
type Linear struct {
	Weight [][]float64 `json:"weight"`
	Bias   []float64   `json:"bias"`
}

// GRUWeights holds a single-layer GRU. The input and hidden weight matrices stack the
// reset, update and new gates in that order, [3*hidden][in].
type GRUWeights struct {
	WeightIH [][]float64 `json:"weight_ih"`
	WeightHH [][]float64 `json:"weight_hh"`
	BiasIH   []float64   `json:"bias_ih"`
	BiasHH   []float64   `json:"bias_hh"`
}

// LayerNorm normalizes a vector to zero mean and unit variance before scaling it by
// Weight and shifting it by Bias. Eps defaults to 1e-5.
type LayerNorm struct {
	Weight []float64 `json:"weight"`
	Bias   []float64 `json:"bias"`
	Eps    float64   `json:"eps,omitempty"`
}

// Layer is a hidden→hidden ReLU layer of the feature MLP, optionally normalized.
type Layer struct {
	Linear Linear     `json:"linear"`
	Norm   *LayerNorm `json:"norm,omitempty"`
}

// ActorWeights is the serialized form of a recurrent actor. The norm layers and the
// extra MLP layers are optional; when present they follow the MAPPO R_Actor layout:
//
//	feature_norm → base → ReLU → base_norm → (layers: linear → ReLU → norm)* → GRU → rnn_norm → act
type ActorWeights struct {
	ObsDim      int        `json:"obs_dim"`
	HiddenSize  int        `json:"hidden_size"`
	ActionDim   int        `json:"action_dim"`
	FeatureNorm *LayerNorm `json:"feature_norm,omitempty"`
	Base        Linear     `json:"base"`
	BaseNorm    *LayerNorm `json:"base_norm,omitempty"`
	Layers      []Layer    `json:"layers,omitempty"`
	GRU         GRUWeights `json:"gru"`
	RNNNorm     *LayerNorm `json:"rnn_norm,omitempty"`
	Act         Linear     `json:"act"`
}

// Actor is a GRU actor in the MAPPO layout: an optionally normalized ReLU feature
// MLP, a GRU cell whose output may be normalized, and a linear action head. Actions
// are chosen deterministically by argmax over the logits. The hidden state carried
// between steps is the raw GRU state; only the head sees the normalized output.
type Actor struct {
	obsDim     int
	hiddenSize int
	actionDim  int

	featNorm *norm
	baseW    *mat.Dense
	baseB    *mat.VecDense
	baseNorm *norm
	layers   []dense
	wIH      *mat.Dense
	wHH      *mat.Dense
	bIH      *mat.VecDense
	bHH      *mat.VecDense
	rnnNorm  *norm
	actW     *mat.Dense
	actB     *mat.VecDense
}

type dense struct {
	w    *mat.Dense
	b    *mat.VecDense
	norm *norm
}

type norm struct {
	weight []float64
	bias   []float64
	eps    float64
}

const defaultNormEps = 1e-5

// LoadActor reads actor weights from a JSON file.
func LoadActor(path string) (*Actor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read actor weights: %w", err)
	}
	var w ActorWeights
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("failed to decode actor weights %s: %w", path, err)
	}
	return NewActor(w)
}

func NewActor(w ActorWeights) (*Actor, error) {
	if w.ObsDim <= 0 || w.HiddenSize <= 0 || w.ActionDim <= 0 {
		return nil, fmt.Errorf("%w: actor dims obs=%d hidden=%d actions=%d", core.ErrShapeMismatch, w.ObsDim, w.HiddenSize, w.ActionDim)
	}
	h := w.HiddenSize
	a := &Actor{obsDim: w.ObsDim, hiddenSize: h, actionDim: w.ActionDim}

	var err error
	if a.featNorm, err = newNorm("feature", w.FeatureNorm, w.ObsDim); err != nil {
		return nil, err
	}
	if a.baseW, a.baseB, err = linear("base", w.Base, h, w.ObsDim); err != nil {
		return nil, err
	}
	if a.baseNorm, err = newNorm("base", w.BaseNorm, h); err != nil {
		return nil, err
	}
	for i, l := range w.Layers {
		var d dense
		name := fmt.Sprintf("mlp %d", i)
		if d.w, d.b, err = linear(name, l.Linear, h, h); err != nil {
			return nil, err
		}
		if d.norm, err = newNorm(name, l.Norm, h); err != nil {
			return nil, err
		}
		a.layers = append(a.layers, d)
	}
	if a.wIH, a.bIH, err = linear("gru input", Linear{Weight: w.GRU.WeightIH, Bias: w.GRU.BiasIH}, 3*h, h); err != nil {
		return nil, err
	}
	if a.wHH, a.bHH, err = linear("gru hidden", Linear{Weight: w.GRU.WeightHH, Bias: w.GRU.BiasHH}, 3*h, h); err != nil {
		return nil, err
	}
	if a.rnnNorm, err = newNorm("rnn", w.RNNNorm, h); err != nil {
		return nil, err
	}
	if a.actW, a.actB, err = linear("action head", w.Act, w.ActionDim, h); err != nil {
		return nil, err
	}
	return a, nil
}

func linear(name string, l Linear, rows, cols int) (*mat.Dense, *mat.VecDense, error) {
	if len(l.Weight) != rows || len(l.Bias) != rows {
		return nil, nil, fmt.Errorf("%w: %s layer has %d rows and %d biases, want %d", core.ErrShapeMismatch, name, len(l.Weight), len(l.Bias), rows)
	}
	data := make([]float64, 0, rows*cols)
	for i, row := range l.Weight {
		if len(row) != cols {
			return nil, nil, fmt.Errorf("%w: %s layer row %d has %d columns, want %d", core.ErrShapeMismatch, name, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(rows, cols, data), mat.NewVecDense(rows, append([]float64(nil), l.Bias...)), nil
}

func newNorm(name string, ln *LayerNorm, size int) (*norm, error) {
	if ln == nil {
		return nil, nil
	}
	if len(ln.Weight) != size || len(ln.Bias) != size {
		return nil, fmt.Errorf("%w: %s norm has %d weights and %d biases, want %d", core.ErrShapeMismatch, name, len(ln.Weight), len(ln.Bias), size)
	}
	eps := ln.Eps
	if eps <= 0 {
		eps = defaultNormEps
	}
	return &norm{
		weight: append([]float64(nil), ln.Weight...),
		bias:   append([]float64(nil), ln.Bias...),
		eps:    eps,
	}, nil
}

// apply normalizes v in place. A nil norm is the identity.
func (n *norm) apply(v []float64) {
	if n == nil {
		return
	}
	var mean float64
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))
	var variance float64
	for _, x := range v {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(v))
	scale := 1 / math.Sqrt(variance+n.eps)
	for i, x := range v {
		v[i] = (x-mean)*scale*n.weight[i] + n.bias[i]
	}
}

func relu(v *mat.VecDense) {
	for i := 0; i < v.Len(); i++ {
		v.SetVec(i, math.Max(0, v.AtVec(i)))
	}
}

func (a *Actor) ObservationSize() int { return a.obsDim }

func (a *Actor) ActionSize() int { return a.actionDim }

func (a *Actor) InitialHidden() Hidden { return NewHidden(1, a.hiddenSize) }

func (a *Actor) Act(obs core.Observation, hidden Hidden, mask float64) (int, Hidden, error) {
	if err := checkObservation(obs, a.obsDim); err != nil {
		return 0, Hidden{}, err
	}
	if hidden.Shape() != [3]int{1, 1, a.hiddenSize} {
		return 0, Hidden{}, fmt.Errorf("%w: hidden state %v, want [1 1 %d]", core.ErrShapeMismatch, hidden.Shape(), a.hiddenSize)
	}
	if err := hidden.Validate(); err != nil {
		return 0, Hidden{}, err
	}

	in := append([]float64(nil), obs...)
	a.featNorm.apply(in)
	x := mat.NewVecDense(a.obsDim, in)

	feat := mat.NewVecDense(a.hiddenSize, nil)
	feat.MulVec(a.baseW, x)
	feat.AddVec(feat, a.baseB)
	relu(feat)
	a.baseNorm.apply(feat.RawVector().Data)
	for _, l := range a.layers {
		next := mat.NewVecDense(a.hiddenSize, nil)
		next.MulVec(l.w, feat)
		next.AddVec(next, l.b)
		relu(next)
		l.norm.apply(next.RawVector().Data)
		feat = next
	}

	prev := make([]float64, a.hiddenSize)
	for i, v := range hidden.Data {
		prev[i] = v * mask
	}
	h := mat.NewVecDense(a.hiddenSize, prev)

	var gi, gh mat.VecDense
	gi.MulVec(a.wIH, feat)
	gi.AddVec(&gi, a.bIH)
	gh.MulVec(a.wHH, h)
	gh.AddVec(&gh, a.bHH)

	n := a.hiddenSize
	next := NewHidden(1, n)
	for j := 0; j < n; j++ {
		r := sigmoid(gi.AtVec(j) + gh.AtVec(j))
		z := sigmoid(gi.AtVec(n+j) + gh.AtVec(n+j))
		c := math.Tanh(gi.AtVec(2*n+j) + r*gh.AtVec(2*n+j))
		next.Data[j] = (1-z)*c + z*prev[j]
	}

	out := append([]float64(nil), next.Data...)
	a.rnnNorm.apply(out)
	var logits mat.VecDense
	logits.MulVec(a.actW, mat.NewVecDense(n, out))
	logits.AddVec(&logits, a.actB)

	return argmax(logits.RawVector().Data), next, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// argmax returns the first index holding the largest value.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
