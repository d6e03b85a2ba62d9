// Package regionmeta tracks per-table offsets and watermarks for a
// message-queue-backed WAL variant: preparing a write, committing a
// write, marking a deletion point, and producing or consuming durable
// snapshots for recovery. It depends only on primitive types — nothing
// here touches the KV layer.
package regionmeta

import "github.com/QuintinTao/ceresdb/internal/waltypes"

// TableId and SequenceNumber reuse the WAL-wide primitive types so a
// caller never has to convert between region and meta-registry values.
type (
	TableId        = waltypes.TableId
	SequenceNumber = waltypes.SequenceNumber
)

// Offset is a queue offset: a position in the message-queue-backed log
// that a table's records occupy, distinct from the WAL sequence number
// space.
type Offset int64

// OffsetRange is an inclusive [Start, End] range of queue offsets
// consumed by one write.
type OffsetRange struct {
	Start Offset
	End   Offset
}

// TableMetaData is the externally observable snapshot of one table's
// state at a point in time.
type TableMetaData struct {
	TableID              TableId
	NextSequenceNum      SequenceNumber
	LatestMarkedDeleted  SequenceNumber
	CurrentHighWatermark Offset
	// SafeDeleteOffset is nil iff NextSequenceNum == LatestMarkedDeleted
	// (nothing live); otherwise it points to the offset recorded for
	// LatestMarkedDeleted.
	SafeDeleteOffset *Offset
}

// RegionMetaSnapshot is a frozen image of every table tracked by a
// Registry, sufficient — together with subsequent deltas — to
// reconstruct the registry via RegionMetaBuilder.
type RegionMetaSnapshot []TableMetaData

// RegionMetaDelta is a single post-snapshot (table_id, sequence, offset)
// observation, emitted on each successful write against the live
// registry. Applying a delta is equivalent to calling
// UpdateAfterTableWrite with a single-element OffsetRange{Offset,
// Offset}, where SequenceNum is implicitly the table's
// next_sequence_num at the time of that write.
type RegionMetaDelta struct {
	TableID     TableId
	SequenceNum SequenceNumber
	Offset      Offset
}
