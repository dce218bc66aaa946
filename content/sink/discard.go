package sink

import (
	"sync/atomic"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/serial"
)

// DiscardSink accepts and drops every write.
type DiscardSink struct {
	bytes  atomic.Int64
	writes atomic.Int64
	serial serial.Serializer
}

// NewDiscard creates a DiscardSink.
func NewDiscard() *DiscardSink {
	return &DiscardSink{}
}

func (d *DiscardSink) Write(_ bool, p []byte, cb content.Callback) {
	d.bytes.Add(int64(len(p)))
	d.writes.Add(1)
	complete(&d.serial, cb, nil)
}

// Bytes returns the number of bytes dropped.
func (d *DiscardSink) Bytes() int64 { return d.bytes.Load() }

// Writes returns the number of writes seen.
func (d *DiscardSink) Writes() int64 { return d.writes.Load() }
