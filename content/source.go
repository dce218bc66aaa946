package content

// Source is a pull-based, demand-driven producer of chunks.
//
// Read never blocks. It returns nil when no chunk is ready, in which case the
// reader calls Demand and reads again from the callback. Once Read returns an
// error chunk every later Read returns an error chunk with the same cause;
// once it returns a last chunk every later Read returns a last chunk.
//
// A Source has a single logical reader; concurrent Reads are a race.
type Source interface {
	// Read returns the next chunk, or nil if none is ready yet. The caller
	// owns the returned chunk and must Release it.
	Read() *Chunk

	// Demand registers fn to be called once when a Read may make progress.
	// At most one demand may be pending; a second one panics with
	// ErrDemandPending. Demand callbacks never overlap and a callback that
	// demands again does not recurse. A panic in fn fails the source.
	Demand(fn func())

	// Fail aborts the source. Later reads return an error chunk carrying
	// the first failure, unless a last chunk has already been read, in
	// which case Fail does nothing. A pending demand is woken.
	Fail(err error)
}

// Rewinder is implemented by sources that can replay from the beginning.
type Rewinder interface {
	Rewind() bool
}

// Lengther is implemented by sources that advertise their total length.
type Lengther interface {
	Length() int64
}

// Rewind rewinds src if it supports it, reporting whether it did.
func Rewind(src Source) bool {
	if r, ok := src.(Rewinder); ok {
		return r.Rewind()
	}
	return false
}

// Length returns the advertised length of src, or -1 if unknown. The value
// is advisory only.
func Length(src Source) int64 {
	if l, ok := src.(Lengther); ok {
		return l.Length()
	}
	return -1
}
