package convert

import (
	"context"
	"errors"

	"github.com/TheusHen/content/content"
)

var (
	ErrChannelClosed = errors.New("convert: channel closed before last chunk")
)

// Publish reads src on a goroutine and sends every chunk on the returned
// channel, which is closed after the last chunk or an error chunk. The
// receiver owns each chunk and must Release it, and must keep receiving
// until the channel closes or cancel ctx: the goroutine blocks while a chunk
// is not taken. If ctx is done, src is failed and the channel closed.
func Publish(ctx context.Context, src content.Source) <-chan *content.Chunk {
	ch := make(chan *content.Chunk)
	go func() {
		defer close(ch)
		p := newPuller(src)
		for {
			c := p.next(ctx)
			select {
			case ch <- c:
			case <-ctx.Done():
				c.Release()
				src.Fail(ctx.Err())
				return
			}
			if c.IsLast() {
				return
			}
		}
	}()
	return ch
}

// Subscribe writes every chunk received on ch to sink, one write at a time,
// releasing each chunk once its write completes. cb receives nil after the
// last chunk, the error of an error chunk or failed write, ctx.Err(), or
// ErrChannelClosed if ch closes early. After a failure the rest of ch is
// received and released in the background until ch closes, so a Publish
// feeding it runs to completion; cancel the Publish ctx to stop its source
// instead.
func Subscribe(ctx context.Context, ch <-chan *content.Chunk, sink content.Sink, cb content.Callback) {
	go func() {
		err := subscribe(ctx, ch, sink)
		if err != nil && !errors.Is(err, ErrChannelClosed) {
			go drain(ch)
		}
		cb(err)
	}()
}

func drain(ch <-chan *content.Chunk) {
	n := 0
	for c := range ch {
		c.Release()
		n++
	}
	content.Log().Debug().Int("chunks", n).Msg("content subscriber drained channel")
}

func subscribe(ctx context.Context, ch <-chan *content.Chunk, sink content.Sink) error {
	for {
		var c *content.Chunk
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c = <-ch:
		}
		if c == nil {
			return ErrChannelClosed
		}
		if err := c.Err(); err != nil {
			return err
		}
		last := c.IsLast()
		done := make(chan error, 1)
		sink.Write(last, c.Bytes(), func(err error) {
			c.Release()
			done <- err
		})
		select {
		case err := <-done:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
		if last {
			return nil
		}
	}
}
