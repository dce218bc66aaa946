package erasure

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/sink"
	"github.com/TheusHen/content/content/source"
)

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec(10, 4)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	data := []byte("Hello, erasure coding test data that spans multiple shards!")
	shards, err := codec.EncodeData(data)
	if err != nil {
		t.Fatalf("EncodeData: %v", err)
	}
	if len(shards) != 14 {
		t.Fatalf("expected 14 shards, got %d", len(shards))
	}
	if len(shards[0]) != codec.ShardSize(len(data)) {
		t.Fatalf("shard size %d, want %d", len(shards[0]), codec.ShardSize(len(data)))
	}

	if err := codec.Check(shards); err != nil {
		t.Fatalf("Check: %v", err)
	}
	shards[1][0] ^= 0xff
	if err := codec.Check(shards); !errors.Is(err, ErrCorruptShard) {
		t.Fatalf("Check of flipped shard = %v, want ErrCorruptShard", err)
	}
	shards[1][0] ^= 0xff

	// Lose 4 shards (the maximum we can lose)
	shards[0] = nil
	shards[5] = nil
	shards[10] = nil
	shards[13] = nil

	if err := codec.ReconstructData(shards); err != nil {
		t.Fatalf("ReconstructData: %v", err)
	}
	if recovered := codec.Join(shards, len(data)); !bytes.Equal(recovered, data) {
		t.Fatalf("recovered data does not match original")
	}
}

func TestCodecTooManyLost(t *testing.T) {
	codec, err := NewCodec(10, 4)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	shards, _ := codec.EncodeData(make([]byte, 1024))
	for i := 0; i < 5; i++ {
		shards[i] = nil
	}
	if err := codec.ReconstructData(shards); err != ErrTooManyLost {
		t.Fatalf("expected ErrTooManyLost, got %v", err)
	}
}

func TestCodecConfig(t *testing.T) {
	if _, err := NewCodec(0, 2); err != ErrInvalidConfig {
		t.Fatalf("NewCodec(0, 2) = %v", err)
	}
}

func payload() [][]byte {
	return [][]byte{
		bytes.Repeat([]byte("alpha "), 1000),
		[]byte(""),
		[]byte("b"),
		bytes.Repeat([]byte("gamma "), 333),
	}
}

func joined(bufs [][]byte) []byte {
	return bytes.Join(bufs, nil)
}

func encode(t *testing.T, codec *Codec, shards []content.Sink) (*Sink, error) {
	t.Helper()
	s, err := NewSink(codec, shards)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	var result error
	called := 0
	content.Copy(source.Bytes(payload()...), s, func(err error) {
		called++
		result = err
	})
	if called != 1 {
		t.Fatalf("copy callback ran %d times", called)
	}
	return s, result
}

func buffers(n int) ([]*sink.Buffer, []content.Sink) {
	bufs := make([]*sink.Buffer, n)
	sinks := make([]content.Sink, n)
	for i := range bufs {
		bufs[i] = sink.NewBuffer()
		sinks[i] = bufs[i]
	}
	return bufs, sinks
}

func TestSinkDecode(t *testing.T) {
	codec, _ := NewCodec(4, 2)
	bufs, sinks := buffers(codec.TotalShards())
	if _, err := encode(t, codec, sinks); err != nil {
		t.Fatalf("encode: %v", err)
	}

	streams := make([][]byte, len(bufs))
	for i, b := range bufs {
		if !b.Closed() {
			t.Fatalf("shard %d not closed", i)
		}
		streams[i] = b.Bytes()
	}
	want := joined(payload())

	got, err := Decode(codec, streams)
	if err != nil || !bytes.Equal(got, want) {
		t.Fatalf("Decode(all) = %d bytes, %v", len(got), err)
	}

	streams[1] = nil
	streams[4] = streams[4][:len(streams[4])/2]
	got, err = Decode(codec, streams)
	if err != nil || !bytes.Equal(got, want) {
		t.Fatalf("Decode(two lost) = %d bytes, %v", len(got), err)
	}

	streams[0] = nil
	if _, err := Decode(codec, streams); !errors.Is(err, ErrTooManyLost) {
		t.Fatalf("Decode(three lost) = %v", err)
	}
}

func TestDecodeCorruptHeader(t *testing.T) {
	codec, _ := NewCodec(4, 2)
	bufs, sinks := buffers(codec.TotalShards())
	if _, err := encode(t, codec, sinks); err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := joined(payload())

	for _, tc := range []struct {
		name    string
		corrupt func(st []byte)
	}{
		{"bit flip", func(st []byte) { st[0] ^= 0x01 }},
		{"same shard size", func(st []byte) {
			n := binary.BigEndian.Uint32(st[0:4])
			binary.BigEndian.PutUint32(st[0:4], n-1)
		}},
	} {
		streams := make([][]byte, len(bufs))
		for i, b := range bufs {
			streams[i] = bytes.Clone(b.Bytes())
		}
		tc.corrupt(streams[0])
		got, err := Decode(codec, streams)
		if err != nil || !bytes.Equal(got, want) {
			t.Fatalf("%s: Decode = %d bytes, %v", tc.name, len(got), err)
		}
	}
}

func TestDecodeCorruptPayload(t *testing.T) {
	codec, _ := NewCodec(4, 2)
	bufs, sinks := buffers(codec.TotalShards())
	if _, err := encode(t, codec, sinks); err != nil {
		t.Fatalf("encode: %v", err)
	}
	streams := make([][]byte, len(bufs))
	for i, b := range bufs {
		streams[i] = bytes.Clone(b.Bytes())
	}
	streams[2][recordHeader] ^= 0xff

	if _, err := Decode(codec, streams); !errors.Is(err, ErrCorruptShard) {
		t.Fatalf("Decode(all shards, one flipped) = %v, want ErrCorruptShard", err)
	}

	// With that shard gone the others rebuild it.
	streams[2] = nil
	got, err := Decode(codec, streams)
	if err != nil || !bytes.Equal(got, joined(payload())) {
		t.Fatalf("Decode(flipped shard lost) = %d bytes, %v", len(got), err)
	}
}

func TestSinkShardCount(t *testing.T) {
	codec, _ := NewCodec(4, 2)
	if _, err := NewSink(codec, make([]content.Sink, 5)); !errors.Is(err, ErrShardCount) {
		t.Fatalf("NewSink(5 shards) = %v", err)
	}
	if _, err := Decode(codec, make([][]byte, 7)); !errors.Is(err, ErrShardCount) {
		t.Fatalf("Decode(7 streams) = %v", err)
	}
}

type failWriter struct{ err error }

func (f failWriter) Write([]byte) (int, error) { return 0, f.err }

func TestSinkToleratesLostShards(t *testing.T) {
	codec, _ := NewCodec(4, 2)
	boom := errors.New("shard offline")

	bufs, sinks := buffers(codec.TotalShards())
	sinks[2] = sink.NewWriter(failWriter{boom})
	sinks[5] = sink.NewWriter(failWriter{boom})
	s, err := encode(t, codec, sinks)
	if err != nil {
		t.Fatalf("encode with two lost shards: %v", err)
	}
	if s.Lost() != 2 {
		t.Fatalf("lost = %d", s.Lost())
	}

	streams := make([][]byte, len(bufs))
	for i, b := range bufs {
		if i != 2 && i != 5 {
			streams[i] = b.Bytes()
		}
	}
	got, err := Decode(codec, streams)
	if err != nil || !bytes.Equal(got, joined(payload())) {
		t.Fatalf("Decode = %d bytes, %v", len(got), err)
	}

	_, sinks = buffers(codec.TotalShards())
	for _, i := range []int{0, 1, 2} {
		sinks[i] = sink.NewWriter(failWriter{boom})
	}
	if _, err := encode(t, codec, sinks); !errors.Is(err, ErrTooManyLost) || !errors.Is(err, boom) {
		t.Fatalf("encode with three lost shards = %v", err)
	}
}

func TestReadAll(t *testing.T) {
	codec, _ := NewCodec(4, 2)
	bufs, sinks := buffers(codec.TotalShards())
	if _, err := encode(t, codec, sinks); err != nil {
		t.Fatal(err)
	}

	sources := make([]content.Source, len(bufs))
	for i, b := range bufs {
		sources[i] = source.Bytes(b.Bytes())
	}
	sources[0] = nil
	failed := source.NewAsync()
	failed.Fail(errors.New("unreachable"))
	sources[3] = failed

	got, err := ReadAll(context.Background(), codec, sources)
	if err != nil || !bytes.Equal(got, joined(payload())) {
		t.Fatalf("ReadAll = %d bytes, %v", len(got), err)
	}
}

func BenchmarkSink(b *testing.B) {
	codec, _ := NewCodec(10, 4)
	data := make([]byte, 1024*1024) // 1 MB
	sinks := make([]content.Sink, codec.TotalShards())
	for i := range sinks {
		sinks[i] = sink.NewDiscard()
	}
	b.SetBytes(int64(len(data)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s, _ := NewSink(codec, sinks)
		s.Write(true, data, func(err error) {
			if err != nil {
				b.Fatal(err)
			}
		})
	}
}
