package sink

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/source"
)

func write(t *testing.T, s content.Sink, last bool, p string) error {
	t.Helper()
	var (
		called int
		result error
	)
	s.Write(last, []byte(p), func(err error) {
		called++
		result = err
	})
	if called != 1 {
		t.Fatalf("callback ran %d times", called)
	}
	return result
}

func TestBuffer(t *testing.T) {
	b := NewBuffer()
	for _, w := range []struct {
		last bool
		data string
	}{{false, "ab"}, {false, ""}, {true, "cd"}} {
		if err := write(t, b, w.last, w.data); err != nil {
			t.Fatalf("write %q: %v", w.data, err)
		}
	}
	if b.String() != "abcd" || b.Len() != 4 {
		t.Fatalf("buffer = %q", b.String())
	}
	want := []Write{
		{Last: false, Data: []byte("ab")},
		{Last: false, Data: []byte{}},
		{Last: true, Data: []byte("cd")},
	}
	if diff := cmp.Diff(want, b.Writes(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
	if !b.Closed() {
		t.Fatalf("buffer not closed after last")
	}
	if err := write(t, b, false, "late"); !errors.Is(err, ErrClosed) {
		t.Fatalf("write after last = %v", err)
	}

	b.Reset()
	if b.Closed() || b.Len() != 0 {
		t.Fatalf("reset buffer not empty")
	}
}

func TestBufferRecordsCopies(t *testing.T) {
	b := NewBuffer()
	p := []byte("abc")
	b.Write(false, p, nil)
	p[0] = 'X'
	if got := b.Writes()[0].Data; string(got) != "abc" {
		t.Fatalf("recorded write aliases caller buffer: %q", got)
	}
}

func TestBufferReentrantWrites(t *testing.T) {
	b := NewBuffer()
	depth, inside, n := 0, 0, 0
	var next content.Callback
	next = func(err error) {
		inside++
		depth = max(depth, inside)
		n++
		if n < 10000 {
			b.Write(false, []byte{'x'}, next)
		} else {
			b.Write(true, nil, func(error) {})
		}
		inside--
	}
	b.Write(false, []byte{'x'}, next)
	if depth != 1 {
		t.Fatalf("callbacks nested to depth %d", depth)
	}
	if b.Len() != 10000 || !b.Closed() {
		t.Fatalf("len=%d closed=%t", b.Len(), b.Closed())
	}
}

type closeRecorder struct {
	bytes.Buffer
	closes int
	err    error
}

func (c *closeRecorder) Close() error {
	c.closes++
	return c.err
}

type failWriter struct{ err error }

func (f failWriter) Write([]byte) (int, error) { return 0, f.err }

func TestWriter(t *testing.T) {
	w := &closeRecorder{}
	s := NewWriter(w)
	if err := write(t, s, false, "hello "); err != nil {
		t.Fatal(err)
	}
	if err := write(t, s, true, "world"); err != nil {
		t.Fatal(err)
	}
	if w.String() != "hello world" || s.Written() != 11 {
		t.Fatalf("wrote %q", w.String())
	}
	if w.closes != 0 {
		t.Fatalf("NewWriter closed its writer")
	}
	if err := write(t, s, false, "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("write after last = %v", err)
	}
}

func TestWriteCloser(t *testing.T) {
	w := &closeRecorder{}
	s := NewWriteCloser(w)
	write(t, s, false, "a")
	if w.closes != 0 {
		t.Fatalf("closed before last")
	}
	write(t, s, true, "")
	if w.closes != 1 {
		t.Fatalf("closes = %d", w.closes)
	}

	boom := errors.New("close failed")
	w = &closeRecorder{err: boom}
	if err := write(t, NewWriteCloser(w), true, "a"); !errors.Is(err, boom) {
		t.Fatalf("close error = %v", err)
	}
}

func TestWriterFailureIsSticky(t *testing.T) {
	boom := errors.New("disk full")
	s := NewWriter(failWriter{boom})
	if err := write(t, s, false, "a"); !errors.Is(err, boom) {
		t.Fatalf("write = %v", err)
	}
	if err := write(t, s, true, "b"); !errors.Is(err, boom) {
		t.Fatalf("second write = %v", err)
	}
}

func TestDiscard(t *testing.T) {
	d := NewDiscard()
	write(t, d, false, "abc")
	write(t, d, true, "de")
	if d.Bytes() != 5 || d.Writes() != 2 {
		t.Fatalf("bytes=%d writes=%d", d.Bytes(), d.Writes())
	}
}

func TestCopyIntoSinks(t *testing.T) {
	for name, s := range map[string]content.Sink{
		"buffer":  NewBuffer(),
		"writer":  NewWriter(io.Discard),
		"discard": NewDiscard(),
	} {
		t.Run(name, func(t *testing.T) {
			var result error
			called := 0
			content.Copy(source.Bytes([]byte("one"), []byte("two")), s, func(err error) {
				called++
				result = err
			})
			if called != 1 || result != nil {
				t.Fatalf("copy: called=%d err=%v", called, result)
			}
		})
	}
}

func TestWriteStringAndSinkFunc(t *testing.T) {
	var got []string
	f := content.SinkFunc(func(last bool, b []byte, cb content.Callback) {
		got = append(got, string(b))
		cb(nil)
	})
	content.WriteString(f, false, "héllo ", func(err error) {
		if err != nil {
			t.Fatalf("WriteString: %v", err)
		}
	})

	b := NewBuffer()
	content.WriteString(b, true, "wörld", func(err error) {
		if err != nil {
			t.Fatalf("WriteString: %v", err)
		}
	})
	got = append(got, b.String())
	if diff := cmp.Diff([]string{"héllo ", "wörld"}, got); diff != "" {
		t.Fatalf("writes (-want +got):\n%s", diff)
	}
	if !b.Closed() {
		t.Fatal("buffer not closed after last write")
	}
}
