package content

import "fmt"

// Chunk is one immutable, possibly empty slice of a message body.
//
// A chunk's bytes are never copied: Bytes returns a view of the window the
// chunk was built from, starting at the read position. Only the position is
// chunk-local state; Get and Skip advance it.
//
// Reads from a Source return three kinds of chunks:
//   - normal chunks, reference counted, which the reader must Release
//   - error chunks (Err() != nil), always last and empty
//   - the sentinels Empty and EOF, which ignore reference counting
//
// A nil *Chunk is what Source.Read returns when no data is ready yet.
type Chunk struct {
	window  []byte
	pos     int
	last    bool
	err     error
	static  bool
	refs    ReferenceCounter
	release func()
}

var (
	// Empty is the empty, non-last sentinel chunk.
	Empty = &Chunk{static: true}
	// EOF is the empty, last sentinel chunk.
	EOF = &Chunk{last: true, static: true}
)

// From wraps b as a chunk. An empty b yields Empty or EOF.
func From(b []byte, last bool) *Chunk {
	if len(b) == 0 {
		return sentinel(last)
	}
	return &Chunk{window: b, last: last}
}

// FromFunc wraps b as a chunk that calls release once when its last
// reference is released. An empty b calls release immediately and yields
// Empty or EOF.
func FromFunc(b []byte, last bool, release func()) *Chunk {
	if len(b) == 0 {
		if release != nil {
			release()
		}
		return sentinel(last)
	}
	return &Chunk{window: b, last: last, release: release}
}

// FromBufferFunc is FromFunc with a release hook that receives b, typically
// to return it to a pool.
func FromBufferFunc(b []byte, last bool, release func([]byte)) *Chunk {
	if release == nil {
		return From(b, last)
	}
	return FromFunc(b, last, func() { release(b) })
}

// FromRetainable wraps b as a chunk whose final release releases r. The
// caller hands one reference of r over to the chunk.
func FromRetainable(b []byte, last bool, r Retainable) *Chunk {
	if r == nil {
		return From(b, last)
	}
	return FromFunc(b, last, func() { r.Release() })
}

// FromError returns an error chunk carrying err.
func FromError(err error) *Chunk {
	if err == nil {
		err = ErrUnknownFailure
	}
	return &Chunk{last: true, err: err}
}

// Next returns what a read following c would observe without reading:
// nil for nil, c itself for an error chunk, EOF for a last chunk and nil
// otherwise.
func Next(c *Chunk) *Chunk {
	if c == nil || c.err != nil {
		return c
	}
	if c.last {
		return EOF
	}
	return nil
}

func sentinel(last bool) *Chunk {
	if last {
		return EOF
	}
	return Empty
}

// Bytes returns the unread bytes. The capacity is clipped so appending to the
// result never writes into shared storage. Callers must not modify it.
func (c *Chunk) Bytes() []byte {
	n := len(c.window)
	return c.window[c.pos:n:n]
}

// Window returns every byte of the chunk, including consumed ones. Indices
// passed to SliceRange refer to this slice.
func (c *Chunk) Window() []byte {
	n := len(c.window)
	return c.window[:n:n]
}

// Position returns the read position within Window.
func (c *Chunk) Position() int { return c.pos }

// IsLast reports whether no further chunks follow.
func (c *Chunk) IsLast() bool { return c.last }

// Remaining returns the number of unread bytes.
func (c *Chunk) Remaining() int { return len(c.window) - c.pos }

// HasRemaining reports whether unread bytes are left.
func (c *Chunk) HasRemaining() bool { return c.pos < len(c.window) }

// IsTerminal reports whether the chunk is last and has no unread bytes.
func (c *Chunk) IsTerminal() bool { return c.last && !c.HasRemaining() }

// Err returns the failure carried by an error chunk, nil otherwise. It is
// safe on a nil chunk.
func (c *Chunk) Err() error {
	if c == nil {
		return nil
	}
	return c.err
}

// Retain adds a reference. It panics with ErrRetainTerminal for sentinels,
// error chunks and terminal chunks.
func (c *Chunk) Retain() {
	if c.static || c.err != nil || c.IsTerminal() {
		panic(ErrRetainTerminal)
	}
	c.refs.Retain()
}

// Release drops a reference and reports whether it was the last one, in
// which case the release hook has run. Sentinels and error chunks always
// report true.
func (c *Chunk) Release() bool {
	if c.static || c.err != nil {
		return true
	}
	if !c.refs.Release() {
		return false
	}
	if c.release != nil {
		c.release()
	}
	return true
}

// References returns the live reference count; sentinels and error chunks
// report 1.
func (c *Chunk) References() int {
	if c.static || c.err != nil {
		return 1
	}
	return c.refs.Count()
}

// Slice returns a zero-copy chunk over the unread bytes that retains c.
// Sentinels and error chunks return themselves; other chunks with nothing
// left to read return EOF or Empty. None of these retain anything.
func (c *Chunk) Slice() *Chunk {
	if c.static || c.err != nil {
		return c
	}
	if !c.HasRemaining() {
		return sentinel(c.last)
	}
	c.Retain()
	return FromRetainable(c.Bytes(), c.last, c)
}

// SliceRange returns a zero-copy chunk over Window()[position:limit] with
// the given last flag, retaining c. c's position is not modified. Sentinels
// and error chunks return themselves, terminal chunks return EOF and an
// empty range returns Empty or EOF.
func (c *Chunk) SliceRange(position, limit int, last bool) *Chunk {
	if c.static || c.err != nil {
		return c
	}
	if c.IsTerminal() {
		return EOF
	}
	if position == limit {
		return sentinel(last)
	}
	b := c.window[position:limit:limit]
	c.Retain()
	return FromRetainable(b, last, c)
}

// Get copies up to len(dst) unread bytes into dst and advances the position.
func (c *Chunk) Get(dst []byte) int {
	n := copy(dst, c.window[c.pos:])
	if n > 0 {
		c.pos += n
	}
	return n
}

// Skip advances the position by up to n bytes and returns how far it moved.
func (c *Chunk) Skip(n int) int {
	if n <= 0 {
		return 0
	}
	if r := c.Remaining(); n > r {
		n = r
	}
	if n > 0 {
		c.pos += n
	}
	return n
}

func (c *Chunk) String() string {
	switch {
	case c == nil:
		return "Chunk<nil>"
	case c.err != nil:
		return fmt.Sprintf("Error@%p{c=%v}", c, c.err)
	case c == Empty:
		return "EMPTY"
	case c == EOF:
		return "EOF"
	default:
		return fmt.Sprintf("Chunk@%p{l=%t,r=%d,refs=%d}", c, c.last, c.Remaining(), c.refs.Count())
	}
}
