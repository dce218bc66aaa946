package source

import (
	"sync"

	"github.com/TheusHen/content/content"
)

// BytesSource serves a fixed list of byte slices, one chunk per slice. The
// slices are not copied; the last one is marked last.
type BytesSource struct {
	mu      sync.Mutex
	bufs    [][]byte
	index   int
	length  int64
	done    bool
	failure *content.Chunk
	demand  demander
}

// Bytes creates a source over bufs. With no bufs it yields EOF.
func Bytes(bufs ...[]byte) *BytesSource {
	var length int64
	for _, b := range bufs {
		length += int64(len(b))
	}
	return &BytesSource{bufs: bufs, length: length}
}

// String creates a single-chunk source over s.
func String(s string) *BytesSource {
	return Bytes([]byte(s))
}

func (s *BytesSource) Read() *content.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failure != nil {
		return s.failure
	}
	if s.index >= len(s.bufs) {
		s.done = true
		return content.EOF
	}
	b := s.bufs[s.index]
	s.index++
	last := s.index == len(s.bufs)
	if last {
		s.done = true
	}
	return content.From(b, last)
}

// Demand always has data ready, so fn is dispatched right away.
func (s *BytesSource) Demand(fn func()) {
	s.mu.Lock()
	s.demand.register(&s.mu, fn)
	fn = s.demand.take()
	s.mu.Unlock()
	s.demand.invoke(fn, s.Fail)
}

func (s *BytesSource) Fail(err error) {
	s.mu.Lock()
	if s.done || s.failure != nil {
		s.mu.Unlock()
		return
	}
	s.failure = content.FromError(err)
	fn := s.demand.take()
	s.mu.Unlock()
	s.demand.invoke(fn, s.Fail)
}

// Rewind restarts from the first slice unless the source has failed.
func (s *BytesSource) Rewind() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return false
	}
	s.index = 0
	s.done = false
	return true
}

func (s *BytesSource) Length() int64 { return s.length }
