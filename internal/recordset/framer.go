package recordset

import (
	"encoding/binary"
	"hash/crc32"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Framer encodes a single record into the record set's on-wire byte form.
// Implementations may fail (returning a FramingError-worthy error) in
// principle, which is why it is an injectable interface rather than a bare
// function: tests exercise the buffer's abort path with a Framer that always
// fails.
type Framer interface {
	Frame(payload []byte) ([]byte, error)
}

// DefaultFramer encodes each record as varint(len) | payload | crc32c(payload),
// modelled on eventlog.EncodeRecord's varint prefix and CRC32-C trailer; here
// the varint is the payload length and there is no header.
type DefaultFramer struct{}

func (DefaultFramer) Frame(payload []byte) ([]byte, error) {
	out := make([]byte, 0, 10+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(payload)))
	out = append(out, tmp[:n]...)
	out = append(out, payload...)
	crc := crc32.Checksum(payload, castagnoli)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out, nil
}

// DecodeFramedRecord reverses DefaultFramer.Frame, validating the trailing
// CRC, and returns the first record's payload plus the remaining bytes so an
// uncompressed record set can be split back into its constituent records.
func DecodeFramedRecord(b []byte) (payload []byte, rest []byte, ok bool) {
	if len(b) < 1+4 {
		return nil, nil, false
	}
	plen, n := binary.Uvarint(b)
	if n <= 0 || n+int(plen)+4 > len(b) {
		return nil, nil, false
	}
	payload = b[n : n+int(plen)]
	expect := binary.BigEndian.Uint32(b[n+int(plen):])
	if crc32.Checksum(payload, castagnoli) != expect {
		return nil, nil, false
	}
	return append([]byte(nil), payload...), b[n+int(plen)+4:], true
}
