package region

import "fmt"

// SequenceOverflowError is returned when a write would need to allocate
// MaxSequenceNumber, which is reserved as a sentinel, or anything past it.
type SequenceOverflowError struct {
	RegionID RegionId
	Last     SequenceNumber
}

func (e *SequenceOverflowError) Error() string {
	return fmt.Sprintf("region %d: sequence overflow at %d", e.RegionID, e.Last)
}

// RegionNotExistsError reports that a region has no meta entry. Open
// returns it whenever the entry is absent. OpenOrCreate returns it only
// when it loses a racing create and the reload still finds nothing, which
// is a logic bug rather than a transient condition, since the duplicate-key
// path should have produced an entry.
type RegionNotExistsError struct {
	RegionID RegionId
}

func (e *RegionNotExistsError) Error() string {
	return fmt.Sprintf("region %d: meta entry not found", e.RegionID)
}

// KVError wraps an underlying KV-store error with the operation and the
// key/region context that produced it.
type KVError struct {
	Op       string
	RegionID RegionId
	Table    string
	Err      error
}

func (e *KVError) Error() string {
	return fmt.Sprintf("region %d: %s on table %q: %v", e.RegionID, e.Op, e.Table, e.Err)
}

func (e *KVError) Unwrap() error { return e.Err }

func wrapKV(op string, regionID RegionId, table string, err error) error {
	if err == nil {
		return nil
	}
	return &KVError{Op: op, RegionID: regionID, Table: table, Err: err}
}

// DecodeError marks a scan-time decoding failure. It is fatal to the
// in-progress scan but does not poison the region: the next call to Open
// (or the next independent ReadLog) is unaffected.
type DecodeError struct {
	RegionID RegionId
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("region %d: decode error: %v", e.RegionID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
