package compress

import (
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/TheusHen/content/content"
	"github.com/TheusHen/content/content/convert"
	"github.com/TheusHen/content/content/source"
)

// NewSource decodes the LZ4 frame carried by src. Decoding runs on the
// reader goroutine of the returned source; failing the returned source
// fails src. Data after the end of the frame is read and discarded.
func NewSource(src content.Source, cfg source.ReaderConfig) *source.ReaderSource {
	upstream := convert.NewReader(src)
	return source.Reader(&decoder{zr: newReader(upstream), upstream: upstream}, cfg)
}

// decoder is read by a single goroutine. Close may run concurrently and
// only touches upstream.
type decoder struct {
	zr       *lz4.Reader
	upstream *convert.Reader
}

func (d *decoder) Read(p []byte) (int, error) {
	if d.zr == nil {
		return 0, io.EOF
	}
	n, err := d.zr.Read(p)
	switch {
	case errors.Is(err, io.EOF):
		putReader(d.zr)
		d.zr = nil
		if _, derr := io.Copy(io.Discard, d.upstream); derr != nil {
			return n, derr
		}
	case err != nil:
		err = fmt.Errorf("%w: %w", ErrDecompressionFailed, err)
	}
	return n, err
}

func (d *decoder) Close() error {
	return d.upstream.Close()
}
