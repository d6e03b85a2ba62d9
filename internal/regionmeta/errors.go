package regionmeta

import "fmt"

// UpdateAfterWriteError is returned by UpdateAfterTableWrite when the
// requested range is malformed or the table has never been prepared.
type UpdateAfterWriteError struct {
	TableID TableId
	Reason  string
}

func (e *UpdateAfterWriteError) Error() string {
	return fmt.Sprintf("regionmeta: update_after_table_write(table=%d): %s", e.TableID, e.Reason)
}

// MarkDeletedError is returned by MarkTableDeleted when sequence falls
// outside [latest_marked_deleted, next_sequence_num].
type MarkDeletedError struct {
	TableID TableId
	Reason  string
}

func (e *MarkDeletedError) Error() string {
	return fmt.Sprintf("regionmeta: mark_table_deleted(table=%d): %s", e.TableID, e.Reason)
}

// DuplicateTableInSnapshotError is a hard Build error raised when a
// snapshot carries the same table_id twice.
type DuplicateTableInSnapshotError struct {
	TableID TableId
}

func (e *DuplicateTableInSnapshotError) Error() string {
	return fmt.Sprintf("regionmeta: duplicate table %d in snapshot", e.TableID)
}

// NonMonotonicDeltaError is a hard Build error raised when a delta does
// not strictly advance both the sequence and offset axes of the table it
// targets.
type NonMonotonicDeltaError struct {
	TableID TableId
	Reason  string
}

func (e *NonMonotonicDeltaError) Error() string {
	return fmt.Sprintf("regionmeta: non-monotonic delta for table %d: %s", e.TableID, e.Reason)
}

// tableNotPreparedError marks a read or write against a table_id that
// PrepareForTableWrite has never been called for. UpdateAfterTableWrite
// and MarkTableDeleted report the same condition through their own
// tagged error types instead, since those already carry a Reason field;
// this helper is for call sites, like GetTableMetaData, that have no
// tagged type of their own to attach the reason to.
func tableNotPreparedError(op string, tableID TableId) error {
	return fmt.Errorf("regionmeta: %s(table=%d): table was never prepared", op, tableID)
}
