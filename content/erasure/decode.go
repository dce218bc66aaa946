package erasure

import (
	"context"
	"encoding/binary"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/convert"
)

// Decode rebuilds content from the shard streams written by a Sink. A lost
// stream is given as nil; a stream that ends early or holds a malformed
// record is treated as lost from that record on. Each record's length is
// taken from the header most live streams agree on. When every shard of a
// record is present it is checked against its parity.
func Decode(codec *Codec, streams [][]byte) ([]byte, error) {
	if len(streams) != codec.TotalShards() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShardCount, len(streams), codec.TotalShards())
	}
	cur := append([][]byte(nil), streams...)
	lost := make([]bool, len(cur))
	for i, st := range cur {
		lost[i] = st == nil
	}
	drop := func(i, record int) {
		content.Log().Debug().Int("shard", i).Int("record", record).Msg("erasure shard dropped")
		lost[i] = true
	}

	var out []byte
	heads := make([]recordHead, len(cur))
	for record := 0; ; record++ {
		votes := make(map[recordHead]int)
		var ref recordHead
		best := 0
		for i, st := range cur {
			if lost[i] || len(st) == 0 {
				continue
			}
			h, ok := parseRecord(st)
			if !ok || h.shardLen != codec.ShardSize(h.origLen) {
				drop(i, record)
				continue
			}
			heads[i] = h
			votes[h]++
			if votes[h] > best {
				best, ref = votes[h], h
			}
		}
		if best == 0 {
			return out, nil
		}

		live := 0
		shards := make([][]byte, len(cur))
		for i, st := range cur {
			if lost[i] || len(st) == 0 {
				continue
			}
			if heads[i] != ref {
				drop(i, record)
				continue
			}
			shards[i] = st[recordHeader : recordHeader+ref.shardLen]
			cur[i] = st[recordHeader+ref.shardLen:]
			live++
		}
		if ref.origLen == 0 {
			continue
		}
		switch {
		case live < codec.DataShards():
			return nil, fmt.Errorf("%w: record %d", ErrTooManyLost, record)
		case live == codec.TotalShards():
			if err := codec.Check(shards); err != nil {
				return nil, fmt.Errorf("%w: record %d", err, record)
			}
		default:
			if err := codec.ReconstructData(shards); err != nil {
				return nil, err
			}
		}
		out = append(out, codec.Join(shards, ref.origLen)...)
	}
}

type recordHead struct {
	origLen  int
	shardLen int
}

func parseRecord(st []byte) (recordHead, bool) {
	if len(st) < recordHeader {
		return recordHead{}, false
	}
	h := recordHead{
		origLen:  int(binary.BigEndian.Uint32(st[0:4])),
		shardLen: int(binary.BigEndian.Uint32(st[4:8])),
	}
	return h, len(st)-recordHeader >= h.shardLen
}

// ReadAll reads every shard source concurrently and decodes the result. A
// source that fails counts as a lost shard.
func ReadAll(ctx context.Context, codec *Codec, sources []content.Source) ([]byte, error) {
	if len(sources) != codec.TotalShards() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShardCount, len(sources), codec.TotalShards())
	}
	streams := make([][]byte, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		if src == nil {
			continue
		}
		g.Go(func() error {
			b, err := convert.ReadAll(ctx, src)
			if err != nil {
				content.Log().Warn().Err(err).Int("shard", i).Msg("erasure shard source failed")
				return nil
			}
			streams[i] = b
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Decode(codec, streams)
}
