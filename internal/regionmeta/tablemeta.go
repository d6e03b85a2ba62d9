package regionmeta

import (
	"fmt"
	"sync"
)

// tableState is the pure, lock-free core of one table's bookkeeping. It
// is shared by the live Registry (wrapped in a mutex, one per table) and
// by RegionMetaBuilder (used single-threaded while replaying a
// snapshot+delta stream), so the two paths can never drift apart.
type tableState struct {
	nextSequenceNum      SequenceNumber
	latestMarkedDeleted  SequenceNumber
	currentHighWatermark Offset
	// offsetMapping records, for each write's starting sequence number,
	// the first offset that write consumed. It is a sparse index: a
	// batched write of size n only gets one entry, at its starting
	// sequence number.
	offsetMapping map[SequenceNumber]Offset
}

func newTableState() *tableState {
	return &tableState{offsetMapping: make(map[SequenceNumber]Offset)}
}

// applyWrite implements UpdateAfterTableWrite's bookkeeping: record
// mapping[next_sequence_num] = start, advance next_sequence_num by the
// range's size, and set current_high_watermark = end+1.
func (t *tableState) applyWrite(r OffsetRange) error {
	if r.Start > r.End {
		return fmt.Errorf("offset range start %d exceeds end %d", r.Start, r.End)
	}
	t.offsetMapping[t.nextSequenceNum] = r.Start
	t.nextSequenceNum += SequenceNumber(r.End-r.Start) + 1
	t.currentHighWatermark = r.End + 1
	return nil
}

// markDeleted implements MarkTableDeleted's bookkeeping: verify the
// bounds, advance latest_marked_deleted, and drop every mapping entry
// whose key is now below it.
func (t *tableState) markDeleted(seq SequenceNumber) error {
	if seq > t.nextSequenceNum {
		return fmt.Errorf("sequence %d exceeds next_sequence_num %d", seq, t.nextSequenceNum)
	}
	if seq < t.latestMarkedDeleted {
		return fmt.Errorf("sequence %d is below latest_marked_deleted %d", seq, t.latestMarkedDeleted)
	}
	t.latestMarkedDeleted = seq
	for k := range t.offsetMapping {
		if k < seq {
			delete(t.offsetMapping, k)
		}
	}
	return nil
}

// snapshot computes the externally visible TableMetaData, asserting
// invariant I2 (the mapping entry at latest_marked_deleted exists
// whenever the table has live records) — a violation is a programming
// bug, never a user-visible error, so it panics.
func (t *tableState) snapshot(tableID TableId) TableMetaData {
	data := TableMetaData{
		TableID:              tableID,
		NextSequenceNum:      t.nextSequenceNum,
		LatestMarkedDeleted:  t.latestMarkedDeleted,
		CurrentHighWatermark: t.currentHighWatermark,
	}
	if t.nextSequenceNum == t.latestMarkedDeleted {
		return data
	}
	off, ok := t.offsetMapping[t.latestMarkedDeleted]
	if !ok {
		panic(fmt.Sprintf("regionmeta: invariant I2 violated for table %d: no mapping entry at latest_marked_deleted=%d", tableID, t.latestMarkedDeleted))
	}
	data.SafeDeleteOffset = &off
	return data
}

// applyDelta implements a delta's bookkeeping: strict advance on both
// axes, then the same update applyWrite would perform for a
// single-element range [offset, offset] starting at sequenceNum.
func (t *tableState) applyDelta(sequenceNum SequenceNumber, offset Offset) error {
	if !(sequenceNum+1 > t.nextSequenceNum) {
		return fmt.Errorf("sequence_num %d does not strictly advance next_sequence_num %d", sequenceNum, t.nextSequenceNum)
	}
	if !(offset+1 > t.currentHighWatermark) {
		return fmt.Errorf("offset %d does not strictly advance current_high_watermark %d", offset, t.currentHighWatermark)
	}
	t.offsetMapping[sequenceNum] = offset
	t.nextSequenceNum = sequenceNum + 1
	t.currentHighWatermark = offset + 1
	return nil
}

// tableMeta is the live, lockable wrapper Registry keeps one of per
// table_id.
type tableMeta struct {
	mu sync.Mutex
	st *tableState
}

func newTableMeta() *tableMeta {
	return &tableMeta{st: newTableState()}
}
