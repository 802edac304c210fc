package codec

import "github.com/golang/snappy"

// Snappy compresses sealed record sets with block-format Snappy.
type Snappy struct{}

func (Snappy) Name() string { return "snappy" }

func (Snappy) Compress(p []byte) ([]byte, error) {
	return snappy.Encode(nil, p), nil
}

func (Snappy) Decompress(p []byte) ([]byte, error) {
	return snappy.Decode(nil, p)
}
