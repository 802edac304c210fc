// Package eventlog implements an append-only log used by
// internal/testutil/fakeserver to stand in for a remote log stream.
//
// # Overview
//
// Each Log is keyed by namespace/topic/partition and persisted in Pebble.
// Keys are lexicographically ordered for efficient range scans:
//   - ns/{ns}/log/{topic}/{part_be4}/m           (partition metadata: lastSeq)
//   - ns/{ns}/log/{topic}/{part_be4}/e/{seq_be8} (entries)
//
// Records are stored as: varint(len(header)) | header | payload | crc32c(header|payload).
//
// API surface (internal)
//
//	l, _ := OpenLog(db, ns, topic, part)
//	// Append a batch atomically; returns assigned seq numbers
//	seqs, _ := l.Append(ctx, []AppendRecord{{Header: h, Payload: p}})
//
//	// Blocking wait/notify: wakes on the next append or times out
//	woke := l.WaitForAppend(200 * time.Millisecond)
//	_ = woke
//
// # Archiver integration
//
// A minimal ArchiverHook seam is kept from the log's origin as server-side
// storage infrastructure, though fakeserver leaves it as the no-op default;
// nothing in this module trims or archives entries.
package eventlog
