package source

import (
	"errors"
	"io"
	"sync"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/pool"
)

// DefaultReadSize is the default number of bytes read per chunk (32 KB).
const DefaultReadSize = 32 * 1024

// ReaderConfig configures a ReaderSource.
type ReaderConfig struct {
	ChunkSize int        // bytes per read (default: 32KB)
	Pool      *pool.Pool // buffer pool (default: pool.Default)
	Length    int64      // advertised length, -1 or 0 if unknown
}

// DefaultReaderConfig returns the default reader configuration.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		ChunkSize: DefaultReadSize,
		Pool:      pool.Default,
		Length:    -1,
	}
}

// ReaderSource reads an io.Reader on demand. At most one read is in flight;
// it runs on its own goroutine so Read never blocks, and the next one only
// starts once the previous chunk was taken. If the reader is an io.Closer it
// is closed at the end of the content or on Fail.
type ReaderSource struct {
	r   io.Reader
	cfg ReaderConfig

	mu       sync.Mutex
	ready    *content.Chunk
	terminal *content.Chunk
	reading  bool
	closed   bool
	demand   demander

	// deferred holds a read error that arrived together with data. Only
	// the goroutine running fill touches it.
	deferred error
}

// Reader creates a source over r.
func Reader(r io.Reader, cfg ReaderConfig) *ReaderSource {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultReadSize
	}
	if cfg.Pool == nil {
		cfg.Pool = pool.Default
	}
	if cfg.Length == 0 {
		cfg.Length = -1
	}
	return &ReaderSource{r: r, cfg: cfg}
}

func (s *ReaderSource) Read() *content.Chunk {
	s.mu.Lock()
	if s.ready != nil {
		c := s.ready
		s.ready = nil
		if c.IsLast() {
			s.terminal = content.Next(c)
		}
		s.mu.Unlock()
		return c
	}
	if s.terminal != nil {
		c := s.terminal
		s.mu.Unlock()
		return c
	}
	start := !s.reading
	s.reading = true
	s.mu.Unlock()

	if start {
		go s.fill()
	}
	return nil
}

func (s *ReaderSource) Demand(fn func()) {
	s.mu.Lock()
	s.demand.register(&s.mu, fn)
	if s.ready != nil || s.terminal != nil {
		fn = s.demand.take()
		s.mu.Unlock()
		s.demand.invoke(fn, s.Fail)
		return
	}
	start := !s.reading
	s.reading = true
	s.mu.Unlock()

	if start {
		go s.fill()
	}
}

func (s *ReaderSource) Fail(err error) {
	s.mu.Lock()
	if s.terminal != nil {
		s.mu.Unlock()
		return
	}
	s.terminal = content.FromError(err)
	ready := s.ready
	s.ready = nil
	fn := s.demand.take()
	s.mu.Unlock()

	if ready != nil {
		ready.Release()
	}
	s.close()
	s.demand.invoke(fn, s.Fail)
}

func (s *ReaderSource) Length() int64 { return s.cfg.Length }

// fill performs one read and publishes the resulting chunk.
func (s *ReaderSource) fill() {
	buf := s.cfg.Pool.Acquire(s.cfg.ChunkSize)
	n, err := s.readSome(buf.Bytes()[:s.cfg.ChunkSize])

	var c *content.Chunk
	switch {
	case err == nil:
		c = buf.Chunk(n, false)
	case errors.Is(err, io.EOF):
		c = buf.Chunk(n, true)
		s.close()
	default:
		buf.Release()
		c = content.FromError(err)
		s.close()
	}

	s.mu.Lock()
	s.reading = false
	if s.terminal != nil && s.terminal.Err() != nil {
		s.mu.Unlock()
		c.Release()
		return
	}
	if c.Err() != nil {
		s.terminal = c
	} else {
		s.ready = c
	}
	fn := s.demand.take()
	s.mu.Unlock()
	s.demand.invoke(fn, s.Fail)
}

// maxEmptyReads bounds consecutive (0, nil) reads before giving up, as bufio.
const maxEmptyReads = 100

// readSome reads until it gets at least one byte or an error.
func (s *ReaderSource) readSome(p []byte) (int, error) {
	if err := s.deferred; err != nil {
		return 0, err
	}
	for empty := 0; ; {
		n, err := s.r.Read(p)
		if n == 0 && err == nil {
			if empty++; empty >= maxEmptyReads {
				return 0, io.ErrNoProgress
			}
			continue
		}
		if n > 0 && err != nil && !errors.Is(err, io.EOF) {
			// Deliver the bytes first, fail on the next read.
			s.deferred = err
			return n, nil
		}
		return n, err
	}
}

func (s *ReaderSource) close() {
	c, ok := s.r.(io.Closer)
	if !ok {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	if err := c.Close(); err != nil {
		content.Log().Debug().Err(err).Msg("content reader close failed")
	}
}
