package seal

import "encoding/binary"

// MaxRecordSize is the largest plaintext carried by one record. Larger
// writes are split.
const MaxRecordSize = 1 << 20

const (
	headerSize = 5
	flagLast   = 0x01
)

func header(last bool, length int) [headerSize]byte {
	var h [headerSize]byte
	if last {
		h[0] = flagLast
	}
	binary.BigEndian.PutUint32(h[1:], uint32(length))
	return h
}

func parseHeader(h []byte) (last bool, length int) {
	return h[0]&flagLast != 0, int(binary.BigEndian.Uint32(h[1:]))
}

// appendRecord seals plaintext as one record appended to dst.
func appendRecord(dst []byte, a *AEAD, last bool, plaintext []byte) []byte {
	h := header(last, len(plaintext)+a.Overhead())
	dst = append(dst, h[:]...)
	return a.Seal(dst, plaintext, h[:])
}
