package integrity

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"hash"
	"sync"

	"github.com/TheusHen/content/content"
)

// Digester is a Processor that hashes every non-empty chunk passing through
// a copy without claiming it.
type Digester struct {
	mu     sync.Mutex
	hashes [][]byte
	whole  hash.Hash
	bytes  int64
}

// NewDigester creates an empty Digester.
func NewDigester() *Digester {
	return &Digester{whole: sha256.New()}
}

func (d *Digester) Process(c *content.Chunk, _ content.Callback) bool {
	b := c.Bytes()
	if len(b) == 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hashes = append(d.hashes, HashChunk(b))
	d.whole.Write(b)
	d.bytes += int64(len(b))
	return false
}

// Hashes returns the per-chunk hashes seen so far.
func (d *Digester) Hashes() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.hashes...)
}

// Sum returns the SHA-256 of all bytes seen so far.
func (d *Digester) Sum() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.whole.Sum(nil)
}

// Bytes returns the number of bytes hashed.
func (d *Digester) Bytes() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bytes
}

// Tree builds a Merkle tree over the chunk hashes.
func (d *Digester) Tree() (*Tree, error) {
	return BuildTree(d.Hashes())
}

// Verifier is a Processor that checks each non-empty chunk against an
// expected hash sequence. Chunk boundaries must match the ones the hashes
// were taken over. A mismatching chunk is claimed and fails the copy
// with ErrIntegrity before it reaches the sink.
type Verifier struct {
	mu       sync.Mutex
	expected [][]byte
	next     int
}

// NewVerifier creates a verifier for hashes.
func NewVerifier(hashes [][]byte) *Verifier {
	return &Verifier{expected: hashes}
}

// NewTreeVerifier creates a verifier for the leaves of t.
func NewTreeVerifier(t *Tree) *Verifier {
	return NewVerifier(t.leaves[:t.count])
}

func (v *Verifier) Process(c *content.Chunk, cb content.Callback) bool {
	if err := v.check(c); err != nil {
		cb(err)
		return true
	}
	return false
}

func (v *Verifier) check(c *content.Chunk) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if b := c.Bytes(); len(b) > 0 {
		if v.next >= len(v.expected) {
			return fmt.Errorf("%w: unexpected chunk %d", ErrIntegrity, v.next)
		}
		if !bytes.Equal(HashChunk(b), v.expected[v.next]) {
			return fmt.Errorf("%w: chunk %d hash mismatch", ErrIntegrity, v.next)
		}
		v.next++
	}
	if c.IsLast() && v.next != len(v.expected) {
		return fmt.Errorf("%w: got %d chunks, want %d", ErrIntegrity, v.next, len(v.expected))
	}
	return nil
}

// Verified returns the number of chunks verified so far.
func (v *Verifier) Verified() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.next
}
