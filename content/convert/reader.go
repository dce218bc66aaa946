package convert

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/TheusHen/content/content"
)

var (
	ErrReaderClosed = errors.New("convert: reader closed")
)

// Reader is a blocking io.ReadCloser over a source.
type Reader struct {
	p      *puller
	closed atomic.Bool

	mu      sync.Mutex
	current *content.Chunk
	err     error
}

// NewReader returns a blocking reader over src. Closing it before the end
// fails src with ErrReaderClosed.
func NewReader(src content.Source) *Reader {
	return &Reader{p: newPuller(src)}
}

func (r *Reader) Read(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.closed.Load() {
			r.releaseCurrent()
			return 0, ErrReaderClosed
		}
		if r.current == nil {
			if r.err != nil {
				return 0, r.err
			}
			c := r.p.next(context.Background())
			if err := c.Err(); err != nil {
				r.err = err
				continue
			}
			r.current = c
		}
		if len(b) == 0 {
			return 0, nil
		}

		n := r.current.Get(b)
		if !r.current.HasRemaining() {
			if r.current.IsLast() {
				r.err = io.EOF
			}
			r.releaseCurrent()
		}
		if n > 0 {
			return n, nil
		}
	}
}

// Close releases the reader. A source not yet read to the end is failed.
func (r *Reader) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.p.src.Fail(ErrReaderClosed)

	r.mu.Lock()
	r.releaseCurrent()
	r.mu.Unlock()
	return nil
}

func (r *Reader) releaseCurrent() {
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
}
