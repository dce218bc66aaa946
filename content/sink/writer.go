package sink

import (
	"io"
	"sync"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/serial"
)

// WriterSink writes synchronously to an io.Writer. Writes block the caller
// for as long as the underlying Write does.
type WriterSink struct {
	w         io.Writer
	closeLast bool

	mu      sync.Mutex
	done    bool
	failure error
	written int64
	serial  serial.Serializer
}

// NewWriter creates a sink over w. w is never closed.
func NewWriter(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// NewWriteCloser creates a sink over w that closes it after the last write.
func NewWriteCloser(w io.WriteCloser) *WriterSink {
	return &WriterSink{w: w, closeLast: true}
}

func (s *WriterSink) Write(last bool, p []byte, cb content.Callback) {
	s.mu.Lock()
	defer func() {
		err := s.failure
		s.mu.Unlock()
		complete(&s.serial, cb, err)
	}()

	switch {
	case s.failure != nil:
		return
	case s.done:
		s.failure = ErrClosed
		return
	}
	if len(p) > 0 {
		n, err := s.w.Write(p)
		s.written += int64(n)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		if err != nil {
			s.failure = err
			s.closeWriter()
			return
		}
	}
	if last {
		s.done = true
		if err := s.closeWriter(); err != nil {
			s.failure = err
		}
	}
}

// Written returns the number of bytes written to the underlying writer.
func (s *WriterSink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

func (s *WriterSink) closeWriter() error {
	if !s.closeLast {
		return nil
	}
	s.closeLast = false
	c, ok := s.w.(io.Closer)
	if !ok {
		return nil
	}
	if err := c.Close(); err != nil {
		content.Log().Debug().Err(err).Msg("content sink close failed")
		return err
	}
	return nil
}
