package erasure

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/serial"
)

const recordHeader = 8

// Sink fans every write out to one sink per shard. A shard sink that fails
// is dropped; writes keep succeeding while at least DataShards shard sinks
// are alive.
type Sink struct {
	codec  *Codec
	shards []content.Sink

	mu      sync.Mutex
	dead    []bool
	lost    int
	done    bool
	failure error
	serial  serial.Serializer
}

// NewSink creates a sink over shards, which must hold TotalShards sinks.
func NewSink(codec *Codec, shards []content.Sink) (*Sink, error) {
	if len(shards) != codec.TotalShards() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShardCount, len(shards), codec.TotalShards())
	}
	return &Sink{codec: codec, shards: shards, dead: make([]bool, len(shards))}, nil
}

// Lost returns the number of shard sinks that failed.
func (s *Sink) Lost() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lost
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
	dead := append([]bool(nil), s.dead...)
	s.mu.Unlock()

	if err != nil {
		s.complete(cb, err)
		return
	}
	if len(b) == 0 && !last {
		s.complete(cb, nil)
		return
	}

	records, err := s.encode(b)
	if err != nil {
		s.mu.Lock()
		s.failure = err
		s.mu.Unlock()
		s.complete(cb, err)
		return
	}

	f := &fanout{sink: s, cb: cb, errs: make([]error, len(s.shards))}
	for i := range s.shards {
		if !dead[i] {
			f.pending++
		}
	}
	if f.pending == 0 {
		s.complete(cb, s.settle(f.errs))
		return
	}
	for i, shard := range s.shards {
		if dead[i] {
			continue
		}
		shard.Write(last, records[i], func(err error) { f.done(i, err) })
	}
}

// encode builds one record per shard.
func (s *Sink) encode(b []byte) ([][]byte, error) {
	var shards [][]byte
	if len(b) > 0 {
		var err error
		if shards, err = s.codec.EncodeData(b); err != nil {
			return nil, err
		}
	}
	records := make([][]byte, len(s.shards))
	for i := range records {
		var shard []byte
		if shards != nil {
			shard = shards[i]
		}
		rec := make([]byte, recordHeader, recordHeader+len(shard))
		binary.BigEndian.PutUint32(rec[0:4], uint32(len(b)))
		binary.BigEndian.PutUint32(rec[4:8], uint32(len(shard)))
		records[i] = append(rec, shard...)
	}
	return records, nil
}

// fanout completes one Sink write once every live shard write has.
type fanout struct {
	sink    *Sink
	cb      content.Callback
	mu      sync.Mutex
	pending int
	errs    []error
}

func (f *fanout) done(i int, err error) {
	f.mu.Lock()
	f.errs[i] = err
	f.pending--
	remaining := f.pending
	f.mu.Unlock()
	if remaining > 0 {
		return
	}
	f.sink.complete(f.cb, f.sink.settle(f.errs))
}

// settle marks failed shards dead and returns the write's result.
func (s *Sink) settle(errs []error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, err := range errs {
		if err != nil && !s.dead[i] {
			s.dead[i] = true
			s.lost++
			content.Log().Warn().Err(err).Int("shard", i).Int("lost", s.lost).Msg("erasure shard sink failed")
		}
	}
	if s.failure != nil {
		return s.failure
	}
	if s.lost > s.codec.ParityShards() {
		s.failure = fmt.Errorf("%w: %w", ErrTooManyLost, errors.Join(errs...))
		return s.failure
	}
	return nil
}

func (s *Sink) complete(cb content.Callback, err error) {
	s.serial.Run(func() { cb(err) })
}
