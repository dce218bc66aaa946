package source

import (
	"errors"
	"sync"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/serial"
)

var (
	ErrClosed = errors.New("source: write after last")
)

// Async is a Source fed through its Sink side. Each Write becomes one chunk
// and its callback completes when the reader releases that chunk, so a fast
// producer is held back by a slow consumer.
type Async struct {
	mu       sync.Mutex
	queue    []*pendingWrite
	closed   bool
	terminal *content.Chunk
	length   int64
	demand   demander
	writes   serial.Serializer
}

type pendingWrite struct {
	chunk   *content.Chunk
	cb      content.Callback
	failure error
}

// NewAsync creates an empty Async with an unknown length.
func NewAsync() *Async {
	return &Async{length: -1}
}

// NewAsyncLength creates an Async that advertises length bytes.
func NewAsyncLength(length int64) *Async {
	return &Async{length: length}
}

// Write queues b as a chunk. b must stay untouched until cb runs.
func (a *Async) Write(last bool, b []byte, cb content.Callback) {
	a.mu.Lock()
	if err := a.writeErr(); err != nil {
		a.mu.Unlock()
		a.complete(cb, err)
		return
	}
	if last {
		a.closed = true
	}
	a.mu.Unlock()

	w := &pendingWrite{cb: cb}
	w.chunk = content.FromFunc(b, last, func() { a.complete(w.cb, w.failure) })
	if w.chunk == content.Empty {
		// Already completed by FromFunc; nothing to read.
		return
	}

	a.mu.Lock()
	if a.terminal != nil && a.terminal.Err() != nil {
		failure := a.terminal.Err()
		a.mu.Unlock()
		w.failure = failure
		w.chunk.Release()
		return
	}
	a.queue = append(a.queue, w)
	fn := a.demand.take()
	a.mu.Unlock()
	a.demand.invoke(fn, a.Fail)
}

func (a *Async) writeErr() error {
	if a.terminal != nil && a.terminal.Err() != nil {
		return a.terminal.Err()
	}
	if a.closed {
		return ErrClosed
	}
	return nil
}

// Close writes an empty last chunk.
func (a *Async) Close() {
	a.Write(true, nil, func(error) {})
}

func (a *Async) Read() *content.Chunk {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.terminal != nil {
		return a.terminal
	}
	if len(a.queue) == 0 {
		return nil
	}
	w := a.queue[0]
	a.queue[0] = nil
	a.queue = a.queue[1:]
	if w.chunk.IsLast() {
		a.terminal = content.EOF
	}
	return w.chunk
}

func (a *Async) Demand(fn func()) {
	a.mu.Lock()
	a.demand.register(&a.mu, fn)
	if len(a.queue) == 0 && a.terminal == nil {
		a.mu.Unlock()
		return
	}
	fn = a.demand.take()
	a.mu.Unlock()
	a.demand.invoke(fn, a.Fail)
}

// Fail fails the source and every queued write with err.
func (a *Async) Fail(err error) {
	a.mu.Lock()
	if a.terminal != nil {
		a.mu.Unlock()
		return
	}
	a.terminal = content.FromError(err)
	failure := a.terminal.Err()
	queued := a.queue
	a.queue = nil
	fn := a.demand.take()
	a.mu.Unlock()

	for _, w := range queued {
		w.failure = failure
		w.chunk.Release()
	}
	a.demand.invoke(fn, a.Fail)
}

func (a *Async) Length() int64 { return a.length }

func (a *Async) complete(cb content.Callback, err error) {
	if cb == nil {
		return
	}
	a.writes.Run(func() { cb(err) })
}
