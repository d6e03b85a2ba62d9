// Package waltypes defines the primitive identifiers and collaborator
// contracts shared by the codec, region log store, and meta registry
// packages so that none of them need to import one another just to agree
// on a type.
package waltypes

import "bytes"

// RegionId names a log stream.
type RegionId uint64

// TableId names a logical table within a region.
type TableId uint64

// SequenceNumber is a strictly monotonic per-region (or per region+table)
// record identifier. MaxSequenceNumber is reserved as a sentinel and is
// never allocated to a real record.
type SequenceNumber uint64

const (
	MinSequenceNumber SequenceNumber = 0
	MaxSequenceNumber SequenceNumber = ^SequenceNumber(0)
)

// Offset is an absolute position in an external message queue partition.
type Offset int64

// Payload is the contract upper layers satisfy so the WAL can size and
// serialize an opaque record body without knowing its shape.
type Payload interface {
	EncodeSize() int
	EncodeTo(buf *bytes.Buffer) error
}

// RawPayload is a Payload backed by an already-encoded byte slice, used by
// tests and by callers that have nothing structured to say about their
// record bodies.
type RawPayload []byte

func (p RawPayload) EncodeSize() int { return len(p) }

func (p RawPayload) EncodeTo(buf *bytes.Buffer) error {
	_, err := buf.Write(p)
	return err
}
