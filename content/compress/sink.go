package compress

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/serial"
)

// Sink compresses everything written to it into one LZ4 frame on the next
// sink. Each write forwards whatever compressed output it produced; a write
// that produced none completes at once. The last write closes the frame.
type Sink struct {
	next  content.Sink
	level Level

	mu      sync.Mutex
	zw      *lz4.Writer
	out     bytes.Buffer
	done    bool
	failure error
	serial  serial.Serializer
}

// NewSink creates a compressing sink in front of next.
func NewSink(next content.Sink, level Level) *Sink {
	return &Sink{next: next, level: level}
}

func (s *Sink) Write(last bool, b []byte, cb content.Callback) {
	out, err := s.encode(last, b)
	if err != nil {
		s.complete(cb, err)
		return
	}
	if len(out) == 0 && !last {
		s.complete(cb, nil)
		return
	}
	s.next.Write(last, out, func(err error) {
		if err != nil {
			s.fail(err)
		}
		cb(err)
	})
}

func (s *Sink) encode(last bool, b []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failure != nil {
		return nil, s.failure
	}
	if s.done {
		s.failure = fmt.Errorf("%w: write after last", ErrCompressionFailed)
		return nil, s.failure
	}
	if s.zw == nil {
		zw, err := newWriter(&s.out, s.level)
		if err != nil {
			s.failure = err
			return nil, err
		}
		s.zw = zw
	}
	if len(b) > 0 {
		if _, err := s.zw.Write(b); err != nil {
			return nil, s.failLocked(err)
		}
	}
	if last {
		if err := s.zw.Close(); err != nil {
			return nil, s.failLocked(err)
		}
		putWriter(s.zw)
		s.zw = nil
		s.done = true
	}
	out := bytes.Clone(s.out.Bytes())
	s.out.Reset()
	return out, nil
}

func (s *Sink) failLocked(err error) error {
	s.failure = fmt.Errorf("%w: %w", ErrCompressionFailed, err)
	if s.zw != nil {
		putWriter(s.zw)
		s.zw = nil
	}
	return s.failure
}

func (s *Sink) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure == nil {
		s.failure = err
	}
	if s.zw != nil {
		putWriter(s.zw)
		s.zw = nil
	}
}

func (s *Sink) complete(cb content.Callback, err error) {
	s.serial.Run(func() { cb(err) })
}
