package convert

import (
	"bytes"
	"context"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/TheusHen/content/content"
)

// AsBytes reads src to the end and calls cb with the concatenated bytes, or
// with the first error. cb runs on whichever goroutine completes the read.
func AsBytes(src content.Source, cb func([]byte, error)) {
	a := &accumulator{src: src, done: cb}
	a.run()
}

// ReadAll blocks until src is read to the end.
func ReadAll(ctx context.Context, src content.Source) ([]byte, error) {
	type result struct {
		b   []byte
		err error
	}
	done := make(chan result, 1)
	AsBytes(src, func(b []byte, err error) { done <- result{b, err} })

	select {
	case r := <-done:
		return r.b, r.err
	case <-ctx.Done():
		src.Fail(ctx.Err())
		r := <-done
		return r.b, r.err
	}
}

// AsString reads src to the end and decodes it with enc. A nil enc means
// UTF-8; invalid sequences become U+FFFD.
func AsString(src content.Source, enc encoding.Encoding, cb func(string, error)) {
	AsBytes(src, func(b []byte, err error) {
		if err != nil {
			cb("", err)
			return
		}
		s, err := decode(b, enc)
		cb(s, err)
	})
}

// ReadString blocks until src is read to the end and decodes it with enc.
func ReadString(ctx context.Context, src content.Source, enc encoding.Encoding) (string, error) {
	b, err := ReadAll(ctx, src)
	if err != nil {
		return "", err
	}
	return decode(b, enc)
}

func decode(b []byte, enc encoding.Encoding) (string, error) {
	if enc == nil {
		enc = unicode.UTF8
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ConsumeAll reads and releases every chunk of src, then calls cb.
func ConsumeAll(src content.Source, cb content.Callback) {
	a := &accumulator{src: src, discard: true, done: func(_ []byte, err error) {
		if cb != nil {
			cb(err)
		}
	}}
	a.run()
}

// Discard blocks until src is consumed.
func Discard(ctx context.Context, src content.Source) error {
	done := make(chan error, 1)
	ConsumeAll(src, func(err error) { done <- err })

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		src.Fail(ctx.Err())
		return <-done
	}
}

type accumulator struct {
	src     content.Source
	buf     bytes.Buffer
	discard bool
	done    func([]byte, error)
}

// run reads as far as the source allows. Demand callbacks re-enter it but
// never recurse, since sources serialize them.
func (a *accumulator) run() {
	for {
		c := a.src.Read()
		if c == nil {
			a.src.Demand(a.run)
			return
		}
		if err := c.Err(); err != nil {
			a.done(nil, err)
			return
		}
		if !a.discard {
			a.buf.Write(c.Bytes())
		}
		last := c.IsLast()
		c.Release()
		if last {
			a.done(a.bytes(), nil)
			return
		}
	}
}

func (a *accumulator) bytes() []byte {
	if a.discard {
		return nil
	}
	if a.buf.Len() == 0 {
		return []byte{}
	}
	return a.buf.Bytes()
}
