// Package pool provides reference-counted, reusable byte buffers that back
// content chunks.
package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/TheusHen/content/content"
)

// Config controls the buffer size classes.
type Config struct {
	MinSize int // smallest bucket size (default: 1 KB)
	MaxSize int // largest pooled size; bigger requests are not pooled (default: 1 MB)
}

// DefaultConfig returns the default size classes.
func DefaultConfig() Config {
	return Config{
		MinSize: 1024,
		MaxSize: 1024 * 1024,
	}
}

// Default is the process-wide pool.
var Default = New(DefaultConfig())

// Pool hands out buffers in power-of-two size classes.
type Pool struct {
	cfg      Config
	buckets  []*bucket
	acquired atomic.Int64
	returned atomic.Int64
}

type bucket struct {
	size int
	pool sync.Pool
}

// New creates a pool. Zero or inconsistent sizes fall back to the defaults.
func New(cfg Config) *Pool {
	def := DefaultConfig()
	if cfg.MinSize <= 0 {
		cfg.MinSize = def.MinSize
	}
	if cfg.MaxSize < cfg.MinSize {
		cfg.MaxSize = max(def.MaxSize, cfg.MinSize)
	}
	cfg.MinSize = roundUp(cfg.MinSize)
	cfg.MaxSize = roundUp(cfg.MaxSize)

	p := &Pool{cfg: cfg}
	for size := cfg.MinSize; size <= cfg.MaxSize; size *= 2 {
		b := &bucket{size: size}
		b.pool.New = func() interface{} {
			buf := make([]byte, b.size)
			return &buf
		}
		p.buckets = append(p.buckets, b)
	}
	return p
}

// Config returns the effective configuration.
func (p *Pool) Config() Config { return p.cfg }

// Acquire returns a buffer of at least n bytes holding one reference.
func (p *Pool) Acquire(n int) *Buffer {
	p.acquired.Add(1)
	b := p.bucketFor(n)
	if b == nil {
		return &Buffer{data: make([]byte, n), pool: p}
	}
	data := b.pool.Get().(*[]byte)
	return &Buffer{data: *data, pool: p, bucket: b, ptr: data}
}

// Acquired returns the number of buffers handed out.
func (p *Pool) Acquired() int64 { return p.acquired.Load() }

// Returned returns the number of buffers fully released.
func (p *Pool) Returned() int64 { return p.returned.Load() }

// InUse returns the number of buffers not yet fully released.
func (p *Pool) InUse() int64 { return p.acquired.Load() - p.returned.Load() }

func (p *Pool) bucketFor(n int) *bucket {
	if n > p.cfg.MaxSize {
		return nil
	}
	if n < p.cfg.MinSize {
		n = p.cfg.MinSize
	}
	idx := bits.Len(uint(roundUp(n)-1)) - bits.Len(uint(p.cfg.MinSize-1))
	return p.buckets[idx]
}

func (p *Pool) put(b *Buffer) {
	p.returned.Add(1)
	if b.bucket != nil {
		*b.ptr = (*b.ptr)[:b.bucket.size]
		b.bucket.pool.Put(b.ptr)
	}
}

func roundUp(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// Buffer is a pooled byte slice with a reference count. Its storage returns
// to the pool when the last reference is released.
type Buffer struct {
	refs   content.ReferenceCounter
	data   []byte
	pool   *Pool
	bucket *bucket
	ptr    *[]byte
}

// Bytes returns the whole buffer.
func (b *Buffer) Bytes() []byte { return b.data }

// Cap returns the buffer size.
func (b *Buffer) Cap() int { return len(b.data) }

// Retain adds a reference.
func (b *Buffer) Retain() { b.refs.Retain() }

// Release drops a reference, returning the storage to the pool on the last.
func (b *Buffer) Release() bool {
	if !b.refs.Release() {
		return false
	}
	b.pool.put(b)
	return true
}

// Chunk turns the first n bytes into a chunk that takes over this buffer's
// reference. With n == 0 the buffer is released at once and Empty or EOF is
// returned.
func (b *Buffer) Chunk(n int, last bool) *content.Chunk {
	return content.FromRetainable(b.data[:n], last, b)
}
