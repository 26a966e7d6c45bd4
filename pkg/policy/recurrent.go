package policy

import (
	"fmt"
	"sync"

	"github.com/boristopalov/airwrap/pkg/core"
)

// Recurrent keeps one hidden state and one mask per agent across steps and feeds
// them through the wrapped Policy. Agent indices are fixed at Reset.
type Recurrent struct {
	policy Policy

	mu     sync.RWMutex
	hidden []Hidden
	masks  []float64
}

func NewRecurrent(p Policy, numAgents int) *Recurrent {
	r := &Recurrent{policy: p}
	r.Reset(numAgents)
	return r
}

// Reset starts a new session: every agent gets the policy's initial state and a mask
// of 1.0.
func (r *Recurrent) Reset(numAgents int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hidden = make([]Hidden, numAgents)
	r.masks = make([]float64, numAgents)
	for i := range r.hidden {
		r.hidden[i] = r.policy.InitialHidden()
		r.masks[i] = 1.0
	}
}

func (r *Recurrent) NumAgents() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hidden)
}

// Act selects agent i's action and persists its new hidden state.
func (r *Recurrent) Act(i int, obs core.Observation) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	action, next, err := r.act(i, obs)
	if err != nil {
		return 0, err
	}
	r.hidden[i] = next
	return action, nil
}

// ActAll selects one action per agent from the same batch. Hidden states are only
// committed once every agent has an action.
func (r *Recurrent) ActAll(batch core.ObservationBatch) (core.JointAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(batch) != len(r.hidden) {
		return nil, fmt.Errorf("%w: %d observations for %d agents", core.ErrShapeMismatch, len(batch), len(r.hidden))
	}

	actions := make(core.JointAction, len(batch))
	next := make([]Hidden, len(batch))
	for i, obs := range batch {
		action, h, err := r.act(i, obs)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", i, err)
		}
		actions[i] = action
		next[i] = h
	}
	copy(r.hidden, next)
	return actions, nil
}

func (r *Recurrent) act(i int, obs core.Observation) (int, Hidden, error) {
	if i < 0 || i >= len(r.hidden) {
		return 0, Hidden{}, fmt.Errorf("%w: agent index %d of %d", core.ErrShapeMismatch, i, len(r.hidden))
	}
	if err := checkObservation(obs, r.policy.ObservationSize()); err != nil {
		return 0, Hidden{}, err
	}

	in := r.hidden[i]
	action, out, err := r.policy.Act(obs, in.Clone(), r.masks[i])
	if err != nil {
		return 0, Hidden{}, err
	}
	if out.Shape() != in.Shape() || out.Validate() != nil {
		return 0, Hidden{}, fmt.Errorf("%w: policy returned hidden state %v, want %v", core.ErrShapeMismatch, out.Shape(), in.Shape())
	}
	if action < 0 {
		return 0, Hidden{}, fmt.Errorf("policy returned negative action %d", action)
	}
	return action, out, nil
}

// SetMask sets the mask fed to agent i on its next decision. A mask of 0 clears the
// recurrent memory before it is used.
func (r *Recurrent) SetMask(i int, mask float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= 0 && i < len(r.masks) {
		r.masks[i] = mask
	}
}

// Hidden returns a copy of agent i's current state.
func (r *Recurrent) Hidden(i int) Hidden {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.hidden) {
		return Hidden{}
	}
	return r.hidden[i].Clone()
}
