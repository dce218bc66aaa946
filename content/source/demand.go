package source

import (
	"sync"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/serial"
)

// demander holds the single demand slot of a source. The owning source
// guards it with its own mutex.
type demander struct {
	pending func()
	serial  serial.Serializer
}

// register stores fn. If a demand is already pending it unlocks mu, which
// the caller holds, and panics.
func (d *demander) register(mu sync.Locker, fn func()) {
	if d.pending != nil {
		mu.Unlock()
		panic(content.ErrDemandPending)
	}
	d.pending = fn
}

// take empties the slot.
func (d *demander) take() func() {
	fn := d.pending
	d.pending = nil
	return fn
}

// invoke runs fn through the serializer, failing the source if it panics.
// It must be called without holding the source's mutex.
func (d *demander) invoke(fn func(), fail func(error)) {
	if fn == nil {
		return
	}
	d.serial.Submit(fn, func(err error) {
		content.Log().Error().Err(err).Msg("content demand callback panicked")
		fail(err)
	})
}
