package control

import (
	"context"
)

// Task is a handle on a loop running in the background.
type Task struct {
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	stopped bool
}

// Start runs the loop on its own goroutine. The loop stops when parent is cancelled,
// when Stop is called, or when an iteration fails.
func (l *Loop) Start(parent context.Context) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	l.logger.Info().Msg("loop starting")
	go func() {
		defer close(t.done)
		defer cancel()
		t.err = l.Run(ctx)
		t.stopped = stoppedBy(ctx, t.err)
	}()
	return t
}

// Stop requests cancellation. It does not wait.
func (t *Task) Stop() {
	t.cancel()
}

// Done is closed once the loop has returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the loop returns. A stop through Stop, a cancelled parent or an
// expired parent deadline is not an error; any failure inside an iteration is
// returned as is, including an environment call that timed out on its own.
func (t *Task) Wait() error {
	<-t.done
	if t.stopped {
		return nil
	}
	return t.err
}
