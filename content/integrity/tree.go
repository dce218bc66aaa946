// Package integrity hashes content as it is copied and verifies it against
// per-chunk SHA-256 hashes or a Merkle root.
package integrity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrEmpty       = errors.New("integrity: no chunks provided")
	ErrProofFailed = errors.New("integrity: proof verification failed")
	ErrIndexRange  = errors.New("integrity: chunk index out of range")
	ErrIntegrity   = errors.New("integrity: content does not match")
)

// Tree is a Merkle tree over chunk hashes. The root can be shared before
// the content; receivers verify each chunk with a Proof.
type Tree struct {
	count  int
	leaves [][]byte
	nodes  [][]byte // full binary tree stored as array
}

// BuildTree constructs a Merkle tree from SHA-256 chunk hashes.
func BuildTree(chunkHashes [][]byte) (*Tree, error) {
	if len(chunkHashes) == 0 {
		return nil, ErrEmpty
	}

	// Pad to power of 2
	n := 1
	for n < len(chunkHashes) {
		n *= 2
	}
	empty := sha256.Sum256(nil)
	leaves := make([][]byte, n)
	for i := range leaves {
		if i < len(chunkHashes) {
			leaves[i] = chunkHashes[i]
		} else {
			leaves[i] = empty[:]
		}
	}

	// Leaves are at positions [n-1, 2n-2]
	nodes := make([][]byte, 2*n-1)
	copy(nodes[n-1:], leaves)
	for i := n - 2; i >= 0; i-- {
		nodes[i] = hashPair(nodes[2*i+1], nodes[2*i+2])
	}

	return &Tree{count: len(chunkHashes), leaves: leaves, nodes: nodes}, nil
}

// Root returns the Merkle root hash.
func (t *Tree) Root() []byte { return t.nodes[0] }

// RootHex returns the Merkle root as a hex string.
func (t *Tree) RootHex() string { return hex.EncodeToString(t.nodes[0]) }

// Len returns the number of chunk hashes the tree was built from.
func (t *Tree) Len() int { return t.count }

// Proof holds the sibling hashes linking one chunk to the root.
type Proof struct {
	ChunkIndex int
	ChunkHash  []byte
	Siblings   [][]byte // from leaf to root
	IsLeft     []bool   // true if sibling is on the left
}

// GenerateProof returns the proof for the chunk at chunkIndex.
func (t *Tree) GenerateProof(chunkIndex int) (Proof, error) {
	if chunkIndex < 0 || chunkIndex >= t.count {
		return Proof{}, ErrIndexRange
	}

	var (
		siblings [][]byte
		isLeft   []bool
	)
	for idx := len(t.leaves) - 1 + chunkIndex; idx > 0; idx = (idx - 1) / 2 {
		sibling := idx + 1
		if idx%2 == 0 {
			sibling = idx - 1
		}
		siblings = append(siblings, t.nodes[sibling])
		isLeft = append(isLeft, idx%2 == 0)
	}

	return Proof{
		ChunkIndex: chunkIndex,
		ChunkHash:  t.leaves[chunkIndex],
		Siblings:   siblings,
		IsLeft:     isLeft,
	}, nil
}

// VerifyProof verifies proof against the expected root.
func VerifyProof(proof Proof, expectedRoot []byte) error {
	if len(proof.Siblings) != len(proof.IsLeft) {
		return ErrProofFailed
	}
	current := proof.ChunkHash
	for i, sibling := range proof.Siblings {
		if proof.IsLeft[i] {
			current = hashPair(sibling, current)
		} else {
			current = hashPair(current, sibling)
		}
	}
	if !bytes.Equal(current, expectedRoot) {
		return ErrProofFailed
	}
	return nil
}

// HashChunk computes the SHA-256 hash of a data chunk.
func HashChunk(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

func hashPair(left, right []byte) []byte {
	combined := make([]byte, 0, len(left)+len(right))
	combined = append(combined, left...)
	combined = append(combined, right...)
	h := sha256.Sum256(combined)
	return h[:]
}
