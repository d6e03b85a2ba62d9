package region

import (
	"context"

	"github.com/QuintinTao/ceresdb/internal/tablekv"
	"github.com/QuintinTao/ceresdb/internal/walrt"
)

// Iterator walks the sequence range constructed by ReadLog across the
// buckets that were handed to it, in order. It is not safe for concurrent
// use by multiple goroutines.
type Iterator struct {
	store   *Store
	ctx     context.Context
	buckets []Bucket
	start   SequenceNumber
	end     SequenceNumber

	bucketIdx int
	cur       tablekv.ScanIter
	exhausted bool
}

// ReadLog clamps [req.Start, req.End] against the store's current
// [StartSequence, LastSequence] and returns an iterator over the
// surviving range. The initial open of the first bucket's scan happens
// lazily on the first Next call so that constructing an iterator over an
// empty range never touches the KV backend.
func (s *Store) ReadLog(ctx context.Context, buckets []Bucket, req ReadRequest) *Iterator {
	start := req.Start
	end := req.End

	storeStart := s.StartSequence()
	storeLast := s.LastSequence()

	if start < storeStart {
		start = storeStart
	}
	if end > storeLast {
		end = storeLast
	}

	it := &Iterator{store: s, ctx: ctx, buckets: buckets, start: start, end: end}
	if start > end || storeLast < storeStart {
		it.exhausted = true
	}
	return it
}

// Next decodes the next log entry, fanning out across buckets as each
// one's scan is exhausted. It returns (entry, true, nil) while records
// remain, (zero, false, nil) once the range is drained, and (zero, false,
// err) if decoding fails — a decode failure is fatal to this scan but
// does not poison the Store for subsequent, independent ReadLog calls.
func (it *Iterator) Next() (LogEntry, bool, error) {
	if it.exhausted {
		return LogEntry{}, false, nil
	}

	for {
		if it.cur == nil {
			if it.bucketIdx >= len(it.buckets) {
				it.exhausted = true
				return LogEntry{}, false, nil
			}
			bucket := it.buckets[it.bucketIdx]
			table := bucket.WalShardTable(it.store.regionID)

			req := it.scanRequestFor()
			iter, err := walrt.SpawnBlocking(it.ctx, it.store.runtimes.Blocking, func() (tablekv.ScanIter, error) {
				return it.store.kv.Scan(it.ctx, tablekv.ScanContext{Timeout: it.store.cfg.ScanTimeout}, table, req)
			})
			if err != nil {
				it.exhausted = true
				return LogEntry{}, false, wrapKV("Scan", it.store.regionID, table, err)
			}
			it.cur = iter
		}

		if !it.cur.Next() {
			it.cur.Close()
			it.cur = nil
			it.bucketIdx++
			continue
		}

		tableID, seq, err := it.decodeEntryKey(it.cur.Key())
		if err != nil {
			it.exhausted = true
			return LogEntry{}, false, &DecodeError{RegionID: it.store.regionID, Err: err}
		}
		if seq > it.end {
			// Past the requested window in this bucket; nothing later in
			// this or any subsequent bucket can still be in range since
			// buckets are scanned in increasing-time order.
			it.cur.Close()
			it.cur = nil
			it.exhausted = true
			return LogEntry{}, false, nil
		}

		payload, err := it.store.logEnc.DecodeValue(it.cur.Value())
		if err != nil {
			it.exhausted = true
			return LogEntry{}, false, &DecodeError{RegionID: it.store.regionID, Err: err}
		}
		// Copy the payload into a buffer owned by the iterator call so
		// callers never observe bytes aliased with the underlying scan
		// cursor's internal buffer, which may be reused on the next Next.
		owned := make([]byte, len(payload))
		copy(owned, payload)

		return LogEntry{TableID: tableID, Sequence: seq, Payload: owned}, true, nil
	}
}

func (it *Iterator) scanRequestFor() tablekv.ScanRequest {
	if it.store.keyMode == CommonKeyMode {
		return tablekv.ScanRequest{
			Start: tablekv.Included(it.store.commonEnc.EncodeKey(nil, it.store.regionID, it.store.commonTable, it.start)),
			End:   tablekv.Included(it.store.commonEnc.MaxKey(it.store.regionID, it.store.commonTable, it.end)),
		}
	}
	return tablekv.ScanRequest{
		Start: tablekv.Included(it.store.logEnc.EncodeKey(nil, it.store.regionID, it.start)),
		End:   tablekv.Included(it.store.logEnc.MaxKey(it.store.regionID, it.end)),
	}
}

func (it *Iterator) decodeEntryKey(key []byte) (TableId, SequenceNumber, error) {
	if it.store.keyMode == CommonKeyMode {
		regionID, tableID, seq, err := it.store.commonEnc.DecodeKey(key)
		if err != nil {
			return 0, 0, err
		}
		_ = regionID
		return tableID, seq, nil
	}
	regionID, seq, err := it.store.logEnc.DecodeKey(key)
	if err != nil {
		return 0, 0, err
	}
	return TableId(regionID), seq, nil
}

// Close releases any open bucket scan held by the iterator. It is safe
// to call multiple times and after the iterator is already exhausted.
func (it *Iterator) Close() error {
	if it.cur != nil {
		err := it.cur.Close()
		it.cur = nil
		return err
	}
	return nil
}
