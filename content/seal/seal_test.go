package seal

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/convert"
	"github.com/TheusHen/content/content/sink"
	"github.com/TheusHen/content/content/source"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

func TestAEADSealOpen(t *testing.T) {
	a, err := NewAEAD(testKey(t))
	if err != nil {
		t.Fatalf("NewAEAD: %v", err)
	}
	plaintext := []byte("secret content")
	ad := []byte("header")
	ct := a.Seal(nil, plaintext, ad)
	if len(ct) != len(plaintext)+a.Overhead() {
		t.Fatalf("sealed length %d", len(ct))
	}

	got, err := a.Open(ct, ad)
	if err != nil || !bytes.Equal(got, plaintext) {
		t.Fatalf("Open = %q, %v", got, err)
	}
	if _, err := a.Open(ct, []byte("other")); err != ErrDecryptionFailed {
		t.Fatalf("Open with wrong AD = %v", err)
	}
	if _, err := a.Open(ct[:10], ad); err != ErrCiphertextTooShort {
		t.Fatalf("Open short = %v", err)
	}

	next := a.Seal(nil, plaintext, ad)
	if sequence(ct) != 1 || sequence(next) != 2 {
		t.Fatalf("nonce counter not incrementing")
	}
}

func TestNewAEADKeySize(t *testing.T) {
	if _, err := NewAEAD(make([]byte, 16)); err != ErrKeySize {
		t.Fatalf("NewAEAD(16 bytes) = %v", err)
	}
	if _, err := NewSink(sink.NewDiscard(), nil); err != ErrKeySize {
		t.Fatalf("NewSink(nil key) = %v", err)
	}
	if _, err := NewSource(source.Bytes(), nil, source.DefaultReaderConfig()); err != ErrKeySize {
		t.Fatalf("NewSource(nil key) = %v", err)
	}
}

// sealAll copies bufs through a sealing sink and returns the sealed stream
// and the individual writes.
func sealAll(t *testing.T, key []byte, bufs ...[]byte) ([]byte, []sink.Write) {
	t.Helper()
	out := sink.NewBuffer()
	s, err := NewSink(out, key)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	var result error
	content.Copy(source.Bytes(bufs...), s, func(err error) { result = err })
	if result != nil {
		t.Fatalf("copy: %v", result)
	}
	if !out.Closed() {
		t.Fatalf("sealed stream not closed")
	}
	return out.Bytes(), out.Writes()
}

func openAll(key, sealed []byte) ([]byte, error) {
	src, err := NewSource(source.Bytes(sealed), key, source.DefaultReaderConfig())
	if err != nil {
		return nil, err
	}
	return convert.ReadAll(context.Background(), src)
}

func TestRoundTrip(t *testing.T) {
	key := testKey(t)
	large := bytes.Repeat([]byte{0xab}, MaxRecordSize+1234)
	sealed, writes := sealAll(t, key, []byte("hello "), []byte(""), large, []byte("bye"))
	if len(writes) != 3 {
		t.Fatalf("empty write produced output: %d writes", len(writes))
	}

	got, err := openAll(key, sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := append(append([]byte("hello "), large...), "bye"...)
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(want))
	}
}

func TestEmptyContent(t *testing.T) {
	key := testKey(t)
	sealed, _ := sealAll(t, key)
	if len(sealed) == 0 {
		t.Fatalf("empty content produced no last record")
	}
	got, err := openAll(key, sealed)
	if err != nil || len(got) != 0 {
		t.Fatalf("open = %q, %v", got, err)
	}
}

func TestTampered(t *testing.T) {
	key := testKey(t)
	sealed, _ := sealAll(t, key, []byte("do not touch"))
	sealed[len(sealed)-3] ^= 0x01
	if _, err := openAll(key, sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("open tampered = %v", err)
	}
}

func TestWrongKey(t *testing.T) {
	sealed, _ := sealAll(t, testKey(t), []byte("for someone else"))
	if _, err := openAll(testKey(t), sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("open with wrong key = %v", err)
	}
}

func TestTruncated(t *testing.T) {
	key := testKey(t)
	sealed, writes := sealAll(t, key, []byte("first"), []byte("second"))

	if _, err := openAll(key, writes[0].Data); !errors.Is(err, ErrTruncated) {
		t.Fatalf("open without last record = %v", err)
	}
	if _, err := openAll(key, sealed[:len(sealed)-1]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("open with cut record = %v", err)
	}
}

func TestReordered(t *testing.T) {
	key := testKey(t)
	_, writes := sealAll(t, key, []byte("first"), []byte("second"))
	swapped := append(append([]byte(nil), writes[1].Data...), writes[0].Data...)
	if _, err := openAll(key, swapped); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("open reordered = %v", err)
	}
}

func TestWriteAfterLast(t *testing.T) {
	s, err := NewSink(sink.NewDiscard(), testKey(t))
	if err != nil {
		t.Fatal(err)
	}
	s.Write(true, []byte("x"), func(error) {})
	var late error
	s.Write(false, []byte("y"), func(err error) { late = err })
	if !errors.Is(late, ErrWriteAfterLast) {
		t.Fatalf("write after last = %v", late)
	}
}

func TestPipeline(t *testing.T) {
	key := testKey(t)
	pipe := source.NewAsync()
	s, err := NewSink(pipe, key)
	if err != nil {
		t.Fatal(err)
	}
	src, err := NewSource(pipe, key, source.ReaderConfig{ChunkSize: 1000})
	if err != nil {
		t.Fatal(err)
	}

	want := bytes.Repeat([]byte("pipelined "), 5000)
	var g errgroup.Group
	g.Go(func() error {
		w := convert.NewWriter(s)
		for i := 0; i < len(want); i += 777 {
			if _, err := w.Write(want[i:min(i+777, len(want))]); err != nil {
				return err
			}
		}
		return w.Close()
	})
	var got []byte
	g.Go(func() error {
		var err error
		got, err = convert.ReadAll(context.Background(), src)
		return err
	})
	if err := g.Wait(); err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("pipeline mismatch: got %d bytes, want %d", len(got), len(want))
	}
}
