// Package seal encrypts content as a sequence of authenticated records
// using ChaCha20-Poly1305.
//
// Each record is a 5-byte header, flags(1) || length(4, big endian), followed
// by length bytes of nonce || ciphertext || tag. The header is the
// additional data of the record, so the last flag and the length are
// authenticated. A stream is complete only once a record flagged last has
// been opened.
package seal

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"sync/atomic"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrKeySize            = errors.New("seal: invalid key size for ChaCha20-Poly1305")
	ErrCiphertextTooShort = errors.New("seal: ciphertext too short")
	ErrDecryptionFailed   = errors.New("seal: decryption failed")
	ErrTruncated          = errors.New("seal: stream truncated")
	ErrRecordTooLarge     = errors.New("seal: record too large")
	ErrWriteAfterLast     = errors.New("seal: write after last")
)

// KeySize is the key length in bytes.
const KeySize = chacha20poly1305.KeySize

// GenerateKey returns a random key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// AEAD wraps ChaCha20-Poly1305 with automatic nonce management.
// It uses a 64-bit counter + 32-bit random prefix for the 96-bit nonce.
type AEAD struct {
	aead   cipher.AEAD
	prefix [4]byte
	seq    atomic.Uint64
}

// NewAEAD creates a new AEAD cipher from a 32-byte key.
func NewAEAD(key []byte) (*AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	a := &AEAD{aead: aead}
	if _, err := io.ReadFull(rand.Reader, a.prefix[:]); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AEAD) nextNonce(dst []byte) []byte {
	seq := a.seq.Add(1)
	dst = append(dst, a.prefix[:]...)
	return binary.BigEndian.AppendUint64(dst, seq)
}

// Seal encrypts and authenticates plaintext, appending
// nonce (12 bytes) || ciphertext || tag (16 bytes) to dst.
func (a *AEAD) Seal(dst, plaintext, additionalData []byte) []byte {
	off := len(dst)
	dst = a.nextNonce(dst)
	nonce := dst[off:]
	return a.aead.Seal(dst, nonce, plaintext, additionalData)
}

// Open decrypts and verifies nonce || ciphertext || tag.
func (a *AEAD) Open(ciphertext, additionalData []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSize
	if len(ciphertext) < nonceSize+a.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	nonce := ciphertext[:nonceSize]
	ct := ciphertext[nonceSize:]
	plaintext, err := a.aead.Open(nil, nonce, ct, additionalData)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// Overhead returns the per-record bytes added to the plaintext, excluding
// the header.
func (a *AEAD) Overhead() int { return chacha20poly1305.NonceSize + a.aead.Overhead() }

// sequence extracts the counter from a sealed record.
func sequence(ciphertext []byte) uint64 {
	return binary.BigEndian.Uint64(ciphertext[4:chacha20poly1305.NonceSize])
}
