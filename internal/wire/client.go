package wire

import "context"

// Client is the wire client contract the dispatch engine consumes. It is
// injected by the caller; the writer facade neither owns nor closes it.
// Implementations surface any per-attempt failure (timeout, transport
// error) by rejecting the returned Future — the dispatch state treats every
// such rejection identically, regardless of cause.
type Client interface {
	// WriteRecordSet submits payload (an already-framed, already-compressed
	// record-set byte string) to the named stream and returns a Future that
	// resolves with the base Coordinate the remote service assigned to it.
	WriteRecordSet(ctx context.Context, streamName string, payload []byte) *Future[Coordinate]
}
