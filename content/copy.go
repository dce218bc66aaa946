package content

import (
	"github.com/TheusHen/content/content/serial"
)

// Processor intercepts chunks during a copy.
//
// Process returns true when it takes over the chunk: the copier does not
// write it to the sink and the processor must eventually call cb (exactly
// once). Returning false leaves the chunk to the default write path and cb
// must not be called. The copier releases the chunk after cb succeeds, so a
// processor that keeps it must Retain it. Error chunks never reach Process.
type Processor interface {
	Process(c *Chunk, cb Callback) bool
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(c *Chunk, cb Callback) bool

func (f ProcessorFunc) Process(c *Chunk, cb Callback) bool { return f(c, cb) }

// Copy reads src until the last chunk and writes every chunk to sink, then
// calls cb exactly once. On any failure, from either side, src is failed
// with the cause and cb receives it.
func Copy(src Source, sink Sink, cb Callback) {
	CopyWith(src, sink, nil, cb)
}

// CopyWith is Copy with a Processor consulted before each write. A nil
// processor behaves like Copy.
func CopyWith(src Source, sink Sink, proc Processor, cb Callback) {
	c := &copier{src: src, sink: sink, proc: proc, cb: cb}
	c.it = serial.NewIterator(c.process, c.succeeded, c.failed)
	Log().Debug().Bool("processor", proc != nil).Msg("content copy started")
	c.it.Iterate()
}

type copier struct {
	src  Source
	sink Sink
	proc Processor
	cb   Callback
	it   *serial.Iterator

	current    *Chunk
	terminated bool
	chunks     int
	bytes      int64
}

func (c *copier) process() (serial.Action, error) {
	if c.terminated {
		return serial.Succeeded, nil
	}

	c.current = c.src.Read()
	if c.current == nil {
		Log().Debug().Int("chunks", c.chunks).Msg("content copy waiting for demand")
		c.src.Demand(c.it.Succeeded)
		return serial.Scheduled, nil
	}
	if err := c.current.Err(); err != nil {
		return serial.Idle, err
	}

	c.terminated = c.current.IsLast()
	c.chunks++
	c.bytes += int64(c.current.Remaining())

	if c.proc != nil && c.proc.Process(c.current, c.written) {
		return serial.Scheduled, nil
	}
	c.sink.Write(c.current.IsLast(), c.current.Bytes(), c.written)
	return serial.Scheduled, nil
}

func (c *copier) written(err error) {
	if err != nil {
		c.it.Failed(err)
		return
	}
	c.releaseCurrent()
	c.it.Succeeded()
}

func (c *copier) releaseCurrent() {
	if c.current != nil {
		c.current.Release()
		c.current = nil
	}
}

func (c *copier) succeeded() {
	Log().Debug().Int("chunks", c.chunks).Int64("bytes", c.bytes).Msg("content copy succeeded")
	c.cb(nil)
}

func (c *copier) failed(err error) {
	Log().Debug().Err(err).Int("chunks", c.chunks).Int64("bytes", c.bytes).Msg("content copy failed")
	c.releaseCurrent()
	c.src.Fail(err)
	c.cb(err)
}
