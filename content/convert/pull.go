package convert

import (
	"context"

	"github.com/TheusHen/content/content"
)

// puller reads a source from a blocking goroutine.
type puller struct {
	src   content.Source
	ready chan struct{}
}

func newPuller(src content.Source) *puller {
	return &puller{src: src, ready: make(chan struct{}, 1)}
}

func (p *puller) wake() {
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

// next blocks until the source returns a chunk. If ctx is done first the
// source is failed with ctx.Err() and the resulting error chunk is returned.
func (p *puller) next(ctx context.Context) *content.Chunk {
	for {
		if c := p.src.Read(); c != nil {
			return c
		}
		p.src.Demand(p.wake)
		select {
		case <-p.ready:
		case <-ctx.Done():
			p.src.Fail(ctx.Err())
			<-p.ready
		}
	}
}
