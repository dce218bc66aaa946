package sink

import (
	"bytes"
	"errors"
	"sync"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/serial"
)

var (
	ErrClosed = errors.New("sink: write after last")
)

// Write is one recorded write.
type Write struct {
	Last bool
	Data []byte
}

// Buffer accumulates written bytes in memory.
type Buffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes []Write
	closed bool
	serial serial.Serializer
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Write(last bool, p []byte, cb content.Callback) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		complete(&b.serial, cb, ErrClosed)
		return
	}
	b.buf.Write(p)
	b.writes = append(b.writes, Write{Last: last, Data: bytes.Clone(p)})
	b.closed = last
	b.mu.Unlock()
	complete(&b.serial, cb, nil)
}

// Bytes returns a copy of everything written so far.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

// String returns everything written so far as a string.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// Writes returns the recorded write sequence.
func (b *Buffer) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Write(nil), b.writes...)
}

// Closed reports whether a last write was accepted.
func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Reset empties the buffer and reopens it.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
	b.writes = nil
	b.closed = false
}

func complete(s *serial.Serializer, cb content.Callback, err error) {
	if cb == nil {
		return
	}
	s.Run(func() { cb(err) })
}
