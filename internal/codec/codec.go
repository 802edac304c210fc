// Package codec implements the pluggable compression codecs a sealed record
// set may be compressed with before handoff to the wire client.
package codec

import "fmt"

// Codec compresses and decompresses a fully framed record-set payload.
type Codec interface {
	Name() string
	Compress(p []byte) ([]byte, error)
	Decompress(p []byte) ([]byte, error)
}

// ByName resolves a configured codec name to an implementation. The empty
// string and "none" both select the identity codec.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "none":
		return None{}, nil
	case "lz4":
		return LZ4{}, nil
	case "snappy":
		return Snappy{}, nil
	case "s2":
		return S2{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown compression codec %q", name)
	}
}
