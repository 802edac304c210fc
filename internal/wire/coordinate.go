// Package wire defines the contract this module consumes from the remote
// log service: a coordinate type naming a committed record, a one-shot
// future resolving to one, and the WriteRecordSet method a transport
// implementation must provide.
package wire

import "encoding/binary"

// Coordinate names a single committed record in the remote log: the log
// segment sequence, the entry id within that segment, and the slot of the
// record within the entry (an entry may hold many records packed into one
// record set).
type Coordinate struct {
	LogSegmentSeq int64
	EntryID       int64
	SlotID        int32
}

// CoordinateWireSize is the fixed encoded size of a Coordinate: two int64s
// and one int32, big-endian.
const CoordinateWireSize = 8 + 8 + 4

// Encode writes the big-endian wire form used by the gRPC reference client
// and fake server.
func (c Coordinate) Encode() []byte {
	b := make([]byte, CoordinateWireSize)
	binary.BigEndian.PutUint64(b[0:8], uint64(c.LogSegmentSeq))
	binary.BigEndian.PutUint64(b[8:16], uint64(c.EntryID))
	binary.BigEndian.PutUint32(b[16:20], uint32(c.SlotID))
	return b
}

// DecodeCoordinate parses the wire form produced by Encode.
func DecodeCoordinate(b []byte) (Coordinate, bool) {
	if len(b) != CoordinateWireSize {
		return Coordinate{}, false
	}
	return Coordinate{
		LogSegmentSeq: int64(binary.BigEndian.Uint64(b[0:8])),
		EntryID:       int64(binary.BigEndian.Uint64(b[8:16])),
		SlotID:        int32(binary.BigEndian.Uint32(b[16:20])),
	}, true
}

// WithSlotOffset returns the per-record coordinate for a record at index i
// within a record set whose base coordinate (as acknowledged by the remote
// service) is c.
func (c Coordinate) WithSlotOffset(i int) Coordinate {
	return Coordinate{LogSegmentSeq: c.LogSegmentSeq, EntryID: c.EntryID, SlotID: c.SlotID + int32(i)}
}
