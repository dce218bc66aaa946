package seal

import (
	"sync"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/serial"
)

// Sink seals every write into records on the next sink. An empty non-last
// write is completed without output; the last write always produces a
// record flagged last.
type Sink struct {
	next content.Sink
	aead *AEAD

	mu      sync.Mutex
	done    bool
	failure error
	serial  serial.Serializer
}

// NewSink creates a sealing sink in front of next.
func NewSink(next content.Sink, key []byte) (*Sink, error) {
	a, err := NewAEAD(key)
	if err != nil {
		return nil, err
	}
	return &Sink{next: next, aead: a}, nil
}

func (s *Sink) Write(last bool, b []byte, cb content.Callback) {
	s.mu.Lock()
	err := s.failure
	if err == nil && s.done {
		err = ErrWriteAfterLast
	}
	if err == nil {
		s.done = last
	}
	s.mu.Unlock()

	if err != nil {
		s.complete(cb, err)
		return
	}
	if len(b) == 0 && !last {
		s.complete(cb, nil)
		return
	}

	out := s.seal(last, b)
	s.next.Write(last, out, func(err error) {
		if err != nil {
			s.mu.Lock()
			if s.failure == nil {
				s.failure = err
			}
			s.mu.Unlock()
		}
		cb(err)
	})
}

func (s *Sink) seal(last bool, b []byte) []byte {
	records := max(1, (len(b)+MaxRecordSize-1)/MaxRecordSize)
	out := make([]byte, 0, len(b)+records*(headerSize+s.aead.Overhead()))
	for {
		n := min(len(b), MaxRecordSize)
		final := n == len(b)
		out = appendRecord(out, s.aead, last && final, b[:n])
		b = b[n:]
		if final {
			return out
		}
	}
}

func (s *Sink) complete(cb content.Callback, err error) {
	s.serial.Run(func() { cb(err) })
}
