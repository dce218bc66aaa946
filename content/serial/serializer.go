package serial

import (
	"fmt"
	"sync"
)

// PanicError carries a value recovered from a panicking callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("serial: callback panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

type task struct {
	fn      func()
	onPanic func(error)
}

// Serializer runs submitted tasks one at a time in submission order.
//
// A task submitted while another task is running (from the same goroutine or
// any other) is queued and run by the goroutine already draining the queue,
// after the running task has returned. The zero value is ready to use.
type Serializer struct {
	mu      sync.Mutex
	queue   []task
	running bool
}

// Run submits fn. A panic in fn is re-raised on the draining goroutine.
func (s *Serializer) Run(fn func()) {
	s.Submit(fn, nil)
}

// Submit submits fn. If fn panics, onPanic receives a *PanicError and the
// queue keeps draining. A nil onPanic re-raises the panic.
func (s *Serializer) Submit(fn func(), onPanic func(error)) {
	s.mu.Lock()
	s.queue = append(s.queue, task{fn: fn, onPanic: onPanic})
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.queue = nil
			s.running = false
			s.mu.Unlock()
			return
		}
		t := s.queue[0]
		s.queue[0] = task{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.run(t)
	}
}

// Pending returns the number of queued tasks not yet started.
func (s *Serializer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Serializer) run(t task) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if t.onPanic != nil {
			t.onPanic(&PanicError{Value: r})
			return
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		panic(r)
	}()
	t.fn()
}
