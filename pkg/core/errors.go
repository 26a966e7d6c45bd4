package core

import "errors"

var (
	// ErrShapeMismatch reports an observation, action or hidden state of the wrong size.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrUnknownAgent reports a lookup by an agent name that was never registered.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrTargetNotFound reports a scene object that cannot be resolved.
	ErrTargetNotFound = errors.New("target not found")
)
