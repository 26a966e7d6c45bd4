// Package position keeps the last known planar position of every agent in a session.
package position

import (
	"fmt"
	"sync"

	"github.com/boristopalov/airwrap/pkg/core"
	"github.com/boristopalov/airwrap/pkg/memory"
)

const defaultHistory = 256

// Store maps agent names to their last known positions. Entries are created by Reset
// and refreshed from the agents the environment owns; they are never removed during
// a session. Each entry is replaced under the store lock, so readers never observe a
// half-written position.
type Store struct {
	mu        sync.RWMutex
	order     []string
	agents    map[string]core.Agent
	positions map[string]core.Position
	history   map[string]*memory.Memory[core.Position]
	capacity  int
}

func NewStore(historyCapacity int) *Store {
	if historyCapacity <= 0 {
		historyCapacity = defaultHistory
	}
	return &Store{
		agents:    make(map[string]core.Agent),
		positions: make(map[string]core.Position),
		history:   make(map[string]*memory.Memory[core.Position]),
		capacity:  historyCapacity,
	}
}

// Reset replaces every entry with the given agents, in order, seeded with their
// current positions.
func (s *Store) Reset(agents []core.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = make([]string, 0, len(agents))
	s.agents = make(map[string]core.Agent, len(agents))
	s.positions = make(map[string]core.Position, len(agents))
	s.history = make(map[string]*memory.Memory[core.Position], len(agents))
	for _, a := range agents {
		name := a.Name()
		pos := a.Position()
		s.order = append(s.order, name)
		s.agents[name] = a
		s.positions[name] = pos
		s.history[name] = memory.NewMemory[core.Position](s.capacity)
		s.history[name].Store(pos)
	}
}

// Refresh overwrites the stored position with the agent's authoritative one. The
// agent is read under the store lock so a concurrent Reset cannot swap the entry out
// from under it.
func (s *Store) Refresh(name string) (core.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[name]
	if !ok {
		return core.Position{}, fmt.Errorf("%w: %s", core.ErrUnknownAgent, name)
	}
	pos := a.Position()
	s.positions[name] = pos
	s.history[name].Store(pos)
	return pos, nil
}

// RefreshAll refreshes every registered agent in session order.
func (s *Store) RefreshAll() map[string]core.Position {
	names := s.Names()
	out := make(map[string]core.Position, len(names))
	for _, name := range names {
		pos, err := s.Refresh(name)
		if err != nil {
			continue
		}
		out[name] = pos
	}
	return out
}

func (s *Store) Get(name string) (core.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.positions[name]
	if !ok {
		return core.Position{}, fmt.Errorf("%w: %s", core.ErrUnknownAgent, name)
	}
	return pos, nil
}

// Agent returns the environment-owned agent registered under name.
func (s *Store) Agent(name string) (core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownAgent, name)
	}
	return a, nil
}

// Names returns the registered agent names in session order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Trajectory returns up to n of the most recent positions recorded for name.
func (s *Store) Trajectory(name string, n int) ([]core.Position, error) {
	s.mu.RLock()
	trail, ok := s.history[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownAgent, name)
	}
	return trail.Last(n), nil
}

// Snapshot copies the stored position and current goal of every agent.
func (s *Store) Snapshot() []core.AgentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.AgentSnapshot, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, core.AgentSnapshot{
			Name:     name,
			Position: s.positions[name],
			Goal:     s.agents[name].Goal(),
		})
	}
	return out
}
