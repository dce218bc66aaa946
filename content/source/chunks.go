package source

import (
	"sync"

	"github.com/TheusHen/content/content"
)

// ChunksSource replays pre-built chunks in order. It takes ownership of the
// chunks: each one is handed to the reader, and those never read are
// released on Fail. If no chunk is last, EOF follows the final chunk.
type ChunksSource struct {
	mu       sync.Mutex
	chunks   []*content.Chunk
	terminal *content.Chunk
	demand   demander
}

// Chunks creates a source over chunks.
func Chunks(chunks ...*content.Chunk) *ChunksSource {
	return &ChunksSource{chunks: chunks}
}

func (s *ChunksSource) Read() *content.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminal != nil {
		return s.terminal
	}
	if len(s.chunks) == 0 {
		s.terminal = content.EOF
		return s.terminal
	}
	c := s.chunks[0]
	s.chunks[0] = nil
	s.chunks = s.chunks[1:]
	if c.IsLast() {
		s.terminal = content.Next(c)
		s.release()
	}
	return c
}

func (s *ChunksSource) Demand(fn func()) {
	s.mu.Lock()
	s.demand.register(&s.mu, fn)
	fn = s.demand.take()
	s.mu.Unlock()
	s.demand.invoke(fn, s.Fail)
}

func (s *ChunksSource) Fail(err error) {
	s.mu.Lock()
	if s.terminal != nil {
		s.mu.Unlock()
		return
	}
	s.terminal = content.FromError(err)
	s.release()
	fn := s.demand.take()
	s.mu.Unlock()
	s.demand.invoke(fn, s.Fail)
}

// release drops the chunks that will never be read.
func (s *ChunksSource) release() {
	for _, c := range s.chunks {
		c.Release()
	}
	s.chunks = nil
}
