package codec

// None is the identity codec: the default when no compressionCodec is
// configured.
type None struct{}

func (None) Name() string                       { return "none" }
func (None) Compress(p []byte) ([]byte, error)   { return p, nil }
func (None) Decompress(p []byte) ([]byte, error) { return p, nil }
