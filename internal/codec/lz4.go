package codec

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4 compresses sealed record sets with the LZ4 frame format.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) Compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(p); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (LZ4) Decompress(p []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(p))
	return io.ReadAll(r)
}
