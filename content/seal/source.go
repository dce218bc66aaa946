package seal

import (
	"errors"
	"fmt"
	"io"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/convert"
	"github.com/TheusHen/content/content/source"
)

// NewSource opens the records carried by src. Records are opened on the
// reader goroutine of the returned source; failing it fails src. The stream
// fails with ErrTruncated if src ends before a record flagged last, and
// with ErrDecryptionFailed if a record was altered, dropped or reordered.
func NewSource(src content.Source, key []byte, cfg source.ReaderConfig) (*source.ReaderSource, error) {
	a, err := NewAEAD(key)
	if err != nil {
		return nil, err
	}
	upstream := convert.NewReader(src)
	return source.Reader(&opener{aead: a, upstream: upstream}, cfg), nil
}

// opener is read by a single goroutine. Close may run concurrently and only
// touches upstream.
type opener struct {
	aead     *AEAD
	upstream *convert.Reader

	head    [headerSize]byte
	body    []byte
	pending []byte
	seq     uint64
	done    bool
}

func (o *opener) Read(p []byte) (int, error) {
	for len(o.pending) == 0 {
		if o.done {
			return 0, io.EOF
		}
		if err := o.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, o.pending)
	o.pending = o.pending[n:]
	if len(o.pending) == 0 && o.done {
		return n, io.EOF
	}
	return n, nil
}

func (o *opener) next() error {
	if _, err := io.ReadFull(o.upstream, o.head[:]); err != nil {
		return truncated(err)
	}
	last, length := parseHeader(o.head[:])
	if length > MaxRecordSize+o.aead.Overhead() {
		return ErrRecordTooLarge
	}
	if cap(o.body) < length {
		o.body = make([]byte, length)
	}
	body := o.body[:length]
	if _, err := io.ReadFull(o.upstream, body); err != nil {
		return truncated(err)
	}

	plaintext, err := o.aead.Open(body, o.head[:])
	if err != nil {
		return err
	}
	o.seq++
	if got := sequence(body); got != o.seq {
		return fmt.Errorf("%w: record %d out of order, want %d", ErrDecryptionFailed, got, o.seq)
	}
	o.pending = plaintext
	if last {
		o.done = true
		if _, err := io.Copy(io.Discard, o.upstream); err != nil {
			return err
		}
	}
	return nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}

func (o *opener) Close() error {
	return o.upstream.Close()
}
