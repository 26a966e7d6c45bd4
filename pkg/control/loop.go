// Package control drives the environment with a recurrent policy.
//
// A Loop owns one session: it resets the environment, registers the agents in the
// position store and then, every iteration, picks one action per agent from the same
// observation batch, steps the environment and refreshes the store. Run blocks until
// the context is cancelled or an iteration fails; Start runs it in the background.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/boristopalov/airwrap/pkg/core"
	"github.com/boristopalov/airwrap/pkg/messaging"
	"github.com/boristopalov/airwrap/pkg/policy"
	"github.com/boristopalov/airwrap/pkg/position"
)

var errNotReset = errors.New("control loop has not been reset")

type Loop struct {
	id       string
	env      core.Environment
	adapter  *policy.Recurrent
	store    *position.Store
	broker   messaging.Broker
	logger   zerolog.Logger
	interval time.Duration
	maskDone bool

	mu     sync.RWMutex
	obs    core.ObservationBatch
	status core.SessionStatus
}

type Option func(*Loop)

// WithBroker publishes a core.StepEvent after every step.
func WithBroker(b messaging.Broker) Option {
	return func(l *Loop) {
		l.broker = b
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithInterval waits at least d between the start of two iterations.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		l.interval = d
	}
}

// WithMaskDone feeds a mask of 0 to agents the environment reported as done on the
// previous step, resetting their recurrent memory. Off by default.
func WithMaskDone(enabled bool) Option {
	return func(l *Loop) {
		l.maskDone = enabled
	}
}

func WithSessionID(id string) Option {
	return func(l *Loop) {
		l.id = id
	}
}

func NewLoop(env core.Environment, p policy.Policy, store *position.Store, opts ...Option) *Loop {
	l := &Loop{
		id:      "session-" + uuid.New().String(),
		env:     env,
		adapter: policy.NewRecurrent(p, 0),
		store:   store,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With().Str("component", "control").Str("session", l.id).Logger()
	l.status.ID = l.id
	return l
}

func (l *Loop) ID() string {
	return l.id
}

// Reset starts a new session: the environment is reset, every agent is told to hold
// its current position, the store is re-seeded and all hidden states are zeroed.
func (l *Loop) Reset(ctx context.Context) error {
	obs, err := l.env.Reset(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset environment: %w", err)
	}
	agents := l.env.Agents()
	if len(obs) != len(agents) {
		return fmt.Errorf("%w: %d observations for %d agents", core.ErrShapeMismatch, len(obs), len(agents))
	}

	for _, a := range agents {
		a.SetGoal(a.Position())
	}
	l.store.Reset(agents)
	l.adapter.Reset(len(agents))

	l.mu.Lock()
	l.obs = obs
	l.status.Steps = 0
	l.status.Err = nil
	l.mu.Unlock()

	l.logger.Info().Int("agents", len(agents)).Msg("session reset")
	return nil
}

// Step runs a single iteration.
func (l *Loop) Step(ctx context.Context) error {
	l.mu.RLock()
	obs := l.obs
	l.mu.RUnlock()
	if obs == nil {
		return errNotReset
	}

	actions, err := l.adapter.ActAll(obs)
	if err != nil {
		return fmt.Errorf("failed to select actions: %w", err)
	}

	res, err := l.env.Step(ctx, actions)
	if err != nil {
		return fmt.Errorf("failed to step environment: %w", err)
	}
	n := l.adapter.NumAgents()
	if len(res.Observations) != n {
		return fmt.Errorf("%w: environment returned %d observations for %d agents", core.ErrShapeMismatch, len(res.Observations), n)
	}

	if l.maskDone && len(res.Dones) == n {
		for i, done := range res.Dones {
			mask := 1.0
			if done {
				mask = 0
			}
			l.adapter.SetMask(i, mask)
		}
	}

	positions := l.store.RefreshAll()

	l.mu.Lock()
	l.obs = res.Observations
	l.status.Steps++
	step := l.status.Steps
	l.mu.Unlock()

	l.logger.Debug().Uint64("step", step).Ints("actions", actions).Msg("step")
	l.publish(core.StepEvent{
		SessionID: l.id,
		Step:      step,
		Actions:   actions,
		Rewards:   res.Rewards,
		Dones:     res.Dones,
		Positions: positions,
		Timestamp: time.Now(),
	})
	return nil
}

func (l *Loop) publish(ev core.StepEvent) {
	if l.broker == nil {
		return
	}
	if err := l.broker.Publish(messaging.Message{From: l.id, Content: ev, Timestamp: ev.Timestamp}); err != nil {
		l.logger.Debug().Err(err).Msg("dropped step event")
	}
}

// Run iterates until ctx is cancelled or its deadline passes, returning ctx.Err(),
// or until an iteration fails, returning that error. The loop is never stopped by environment state.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	l.status.Running = true
	l.status.StartTime = time.Now()
	l.mu.Unlock()

	err := l.runLoop(ctx)

	l.mu.Lock()
	l.status.Running = false
	l.status.EndTime = time.Now()
	l.status.Err = err
	steps := l.status.Steps
	l.mu.Unlock()

	if stoppedBy(ctx, err) {
		l.logger.Info().Uint64("steps", steps).Msg("loop stopped")
	} else {
		l.logger.Error().Err(err).Uint64("steps", steps).Msg("loop failed")
	}
	return err
}

// stoppedBy reports whether err is ctx ending, by cancellation or deadline, rather
// than a failed iteration.
func stoppedBy(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

func (l *Loop) runLoop(ctx context.Context) error {
	var timer *time.Timer
	if l.interval > 0 {
		timer = time.NewTimer(0)
		defer timer.Stop()
	}

	for {
		if timer != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				timer.Reset(l.interval)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := l.Step(ctx); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) Status() core.SessionStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Observations returns the batch the next iteration will act on.
func (l *Loop) Observations() core.ObservationBatch {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.obs.Clone()
}

// Hidden returns a copy of agent i's recurrent state.
func (l *Loop) Hidden(i int) policy.Hidden {
	return l.adapter.Hidden(i)
}
