// Package compress streams content through LZ4 frames.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var (
	ErrCompressionFailed   = errors.New("compress: compression failed")
	ErrDecompressionFailed = errors.New("compress: decompression failed")
)

// Level controls the speed/ratio tradeoff.
type Level int

const (
	Fast    Level = iota // Fastest, lower ratio
	Default              // Balanced
	Best                 // Best ratio, slower
)

func (l Level) String() string {
	switch l {
	case Fast:
		return "fast"
	case Best:
		return "best"
	default:
		return "default"
	}
}

// ParseLevel maps "fast", "default" and "best" to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "fast":
		return Fast, nil
	case "", "default":
		return Default, nil
	case "best":
		return Best, nil
	}
	return Default, fmt.Errorf("compress: unknown level %q", s)
}

func (l Level) option() lz4.Option {
	switch l {
	case Fast:
		return lz4.CompressionLevelOption(lz4.Fast)
	case Best:
		return lz4.CompressionLevelOption(lz4.Level9)
	default:
		return lz4.CompressionLevelOption(lz4.Level4)
	}
}

var writerPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewWriter(nil)
	},
}

var readerPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewReader(nil)
	},
}

// newWriter takes a pooled writer targeting w with 64 KB blocks, so a stream
// produces output before it is closed.
func newWriter(w io.Writer, level Level) (*lz4.Writer, error) {
	zw := writerPool.Get().(*lz4.Writer)
	zw.Reset(w)
	if err := zw.Apply(level.option(), lz4.BlockSizeOption(lz4.Block64Kb)); err != nil {
		putWriter(zw)
		return nil, fmt.Errorf("%w: %w", ErrCompressionFailed, err)
	}
	return zw, nil
}

func putWriter(zw *lz4.Writer) {
	zw.Reset(nil)
	writerPool.Put(zw)
}

func newReader(r io.Reader) *lz4.Reader {
	zr := readerPool.Get().(*lz4.Reader)
	zr.Reset(r)
	return zr
}

func putReader(zr *lz4.Reader) {
	zr.Reset(nil)
	readerPool.Put(zr)
}

// Compress compresses data into a single LZ4 frame.
func Compress(data []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := newWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	defer putWriter(zw)

	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompressionFailed, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompressionFailed, err)
	}
	return buf.Bytes(), nil
}

// Decompress decompresses an LZ4 frame.
func Decompress(data []byte) ([]byte, error) {
	zr := newReader(bytes.NewReader(data))
	defer putReader(zr)

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompressionFailed, err)
	}
	return buf.Bytes(), nil
}
