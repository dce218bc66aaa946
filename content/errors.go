package content

import "errors"

// Contract violations. These are raised with panic because they are
// programming errors, not runtime conditions.
var (
	ErrRetainTerminal = errors.New("content: retain of a terminal or error chunk")
	ErrOverRelease    = errors.New("content: released more times than retained")
	ErrDemandPending  = errors.New("content: demand already pending")
)

// ErrUnknownFailure substitutes a nil failure cause.
var ErrUnknownFailure = errors.New("content: unknown failure")
