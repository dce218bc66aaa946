package serial

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrIllegalState = errors.New("serial: illegal iterator state")
)

// Action is the outcome of one Iterator process step.
type Action int

const (
	// Idle means there is nothing to do until Iterate is called again.
	Idle Action = iota
	// Scheduled means an asynchronous operation was started and will call
	// Succeeded or Failed when it completes.
	Scheduled
	// Succeeded means the whole job is done.
	Succeeded
)

func (a Action) String() string {
	switch a {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Succeeded:
		return "succeeded"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

type state int

const (
	stateIdle state = iota
	stateProcessing
	statePending
	stateCalled
	stateSucceeded
	stateFailed
)

// Iterator drives a job made of many asynchronous steps.
//
// The process function starts one step and returns Scheduled; the step's
// completion calls Succeeded (or Failed). A completion that happens while
// process is still on the stack is recorded and the loop continues
// iteratively, so an arbitrarily long chain of synchronous completions runs
// in constant stack space. A completion that happens later re-enters the loop
// on the completing goroutine.
//
// The success and failure hooks run exactly once in total.
type Iterator struct {
	process   func() (Action, error)
	onSuccess func()
	onFailure func(error)

	mu      sync.Mutex
	state   state
	iterate bool
}

// NewIterator creates an idle iterator. onSuccess and onFailure may be nil.
func NewIterator(process func() (Action, error), onSuccess func(), onFailure func(error)) *Iterator {
	return &Iterator{
		process:   process,
		onSuccess: onSuccess,
		onFailure: onFailure,
	}
}

// Iterate starts processing if the iterator is idle. Calling it while a
// process step is running makes the loop run once more instead of going idle.
func (it *Iterator) Iterate() {
	it.mu.Lock()
	switch it.state {
	case stateIdle:
		it.state = stateProcessing
		it.mu.Unlock()
		it.loop()
		return
	case stateProcessing:
		it.iterate = true
	}
	it.mu.Unlock()
}

// Succeeded completes the step that was Scheduled.
func (it *Iterator) Succeeded() {
	it.mu.Lock()
	switch it.state {
	case stateProcessing:
		it.state = stateCalled
		it.mu.Unlock()
	case statePending:
		it.state = stateProcessing
		it.mu.Unlock()
		it.loop()
	default:
		it.mu.Unlock()
	}
}

// Failed completes the whole job with err. Only the first completion counts.
func (it *Iterator) Failed(err error) {
	it.mu.Lock()
	switch it.state {
	case stateSucceeded, stateFailed:
		it.mu.Unlock()
		return
	}
	it.state = stateFailed
	it.mu.Unlock()
	if it.onFailure != nil {
		it.onFailure(err)
	}
}

// Complete is Succeeded for a nil err and Failed otherwise, so it can be used
// directly as a completion callback.
func (it *Iterator) Complete(err error) {
	if err != nil {
		it.Failed(err)
		return
	}
	it.Succeeded()
}

// Done reports whether the job has completed, successfully or not.
func (it *Iterator) Done() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.state == stateSucceeded || it.state == stateFailed
}

func (it *Iterator) loop() {
	for {
		action, err := it.step()
		if err != nil {
			it.Failed(err)
			return
		}

		it.mu.Lock()
		switch it.state {
		case stateProcessing:
			switch action {
			case Idle:
				if it.iterate {
					it.iterate = false
					it.mu.Unlock()
					continue
				}
				it.state = stateIdle
				it.mu.Unlock()
				return
			case Scheduled:
				it.state = statePending
				it.mu.Unlock()
				return
			case Succeeded:
				it.state = stateSucceeded
				it.mu.Unlock()
				if it.onSuccess != nil {
					it.onSuccess()
				}
				return
			default:
				it.mu.Unlock()
				it.Failed(fmt.Errorf("%w: unknown %v", ErrIllegalState, action))
				return
			}
		case stateCalled:
			if action != Scheduled {
				it.mu.Unlock()
				it.Failed(fmt.Errorf("%w: completed while %v", ErrIllegalState, action))
				return
			}
			it.state = stateProcessing
			it.mu.Unlock()
		default:
			// Failed while the step was running.
			it.mu.Unlock()
			return
		}
	}
}

func (it *Iterator) step() (action Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return it.process()
}
