// Package erasure spreads content over Reed-Solomon shards so it survives
// the loss of up to ParityShards of them.
//
// Every write to a Sink is split into DataShards data shards plus parity.
// Shard i of every write goes to shard sink i as one record:
// original length(4) || shard length(4) || shard, big endian.
package erasure

import (
	"errors"

	"github.com/klauspost/reedsolomon"
)

var (
	ErrTooManyLost    = errors.New("erasure: too many shards lost, cannot recover")
	ErrInvalidConfig  = errors.New("erasure: invalid data/parity configuration")
	ErrShardCount     = errors.New("erasure: shard count does not match codec")
	ErrCorruptShard   = errors.New("erasure: corrupt shard stream")
	ErrWriteAfterLast = errors.New("erasure: write after last")
)

// Codec splits records into shards and rebuilds them.
type Codec struct {
	enc    reedsolomon.Encoder
	data   int
	parity int
}

// NewCodec creates a codec for data data shards plus parity parity shards.
func NewCodec(data, parity int) (*Codec, error) {
	if data <= 0 || parity <= 0 {
		return nil, ErrInvalidConfig
	}
	enc, err := reedsolomon.New(data, parity)
	if err != nil {
		return nil, err
	}
	return &Codec{enc: enc, data: data, parity: parity}, nil
}

func (c *Codec) DataShards() int   { return c.data }
func (c *Codec) ParityShards() int { return c.parity }
func (c *Codec) TotalShards() int  { return c.data + c.parity }

// EncodeData pads b to whole shards and returns TotalShards shards, parity
// included.
func (c *Codec) EncodeData(b []byte) ([][]byte, error) {
	shards, err := c.enc.Split(b)
	if err != nil {
		return nil, err
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, err
	}
	return shards, nil
}

// Check reports an ErrCorruptShard error when a complete shard set does not
// match its parity.
func (c *Codec) Check(shards [][]byte) error {
	ok, err := c.enc.Verify(shards)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCorruptShard
	}
	return nil
}

// ReconstructData fills in the nil data shards from the others.
func (c *Codec) ReconstructData(shards [][]byte) error {
	err := c.enc.ReconstructData(shards)
	if errors.Is(err, reedsolomon.ErrTooFewShards) {
		return ErrTooManyLost
	}
	return err
}

// Join concatenates the data shards and cuts the padding off at size.
func (c *Codec) Join(shards [][]byte, size int) []byte {
	out := make([]byte, 0, size)
	for _, s := range shards[:c.data] {
		if len(out) == size {
			break
		}
		out = append(out, s[:min(size-len(out), len(s))]...)
	}
	return out
}

// ShardSize is the length of every shard of a size byte record.
func (c *Codec) ShardSize(size int) int {
	return (size + c.data - 1) / c.data
}
