package region

import (
	"github.com/QuintinTao/ceresdb/internal/waltypes"
)

// Aliases so call sites in this package don't have to spell out
// waltypes.* for the primitives it re-exports.
type (
	RegionId       = waltypes.RegionId
	TableId        = waltypes.TableId
	SequenceNumber = waltypes.SequenceNumber
	Payload        = waltypes.Payload
)

const (
	MinSequenceNumber = waltypes.MinSequenceNumber
	MaxSequenceNumber = waltypes.MaxSequenceNumber
)

// LogEntry is one decoded record yielded by Iterator.Next. TableID is
// always present: in plain-key mode it carries the region's own id (the
// key shape has no room for a distinct table id), matching the original
// ordered-KV WAL's convention of reusing the region id as the bookkeeping
// "table" for single-table regions; in common-key mode it carries the
// actual table id encoded in the key.
type LogEntry struct {
	TableID  TableId
	Sequence SequenceNumber
	Payload  []byte
}

// WriteRequest is one opaque record to append, already wrapping whatever
// payload upper layers want to carry.
type WriteRequest struct {
	Payload Payload
}

// ReadRequest bounds a sequence range, inclusive on both ends.
type ReadRequest struct {
	Start SequenceNumber
	End   SequenceNumber
}
