package convert

import (
	"context"
	"errors"
	"sync"

	"github.com/TheusHen/content/content"
)

var (
	ErrWriterClosed = errors.New("convert: writer closed")
)

// Write writes b to sink and blocks until the write completes. If ctx is
// done first Write returns ctx.Err(); the sink may still be using b.
func Write(ctx context.Context, sink content.Sink, last bool, b []byte) error {
	done := make(chan error, 1)
	sink.Write(last, b, func(err error) { done <- err })

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Writer is a blocking io.WriteCloser over a sink.
type Writer struct {
	sink content.Sink

	mu     sync.Mutex
	err    error
	closed bool
}

// NewWriter returns a blocking writer over sink. Close sends the last write.
func NewWriter(sink content.Sink) *Writer {
	return &Writer{sink: sink}
}

func (w *Writer) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.state(); err != nil {
		return 0, err
	}
	if len(b) == 0 {
		return 0, nil
	}
	if err := Write(context.Background(), w.sink, false, b); err != nil {
		w.err = err
		return 0, err
	}
	return len(b), nil
}

// WriteString writes s.
func (w *Writer) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Close sends an empty last write. Closing twice returns ErrWriterClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.state(); err != nil {
		return err
	}
	w.closed = true
	if err := Write(context.Background(), w.sink, true, nil); err != nil {
		w.err = err
		return err
	}
	return nil
}

func (w *Writer) state() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrWriterClosed
	}
	return nil
}
