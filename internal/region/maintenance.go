package region

import (
	"context"

	"github.com/QuintinTao/ceresdb/internal/tablekv"
	"github.com/QuintinTao/ceresdb/internal/walrt"
)

// DeleteEntriesUpTo advances the logical start_sequence to seq+1 if that
// is strictly greater than the current value, persisting the new bound
// to the meta table. Physical deletion is deferred to
// CleanDeletedLogs. Calling this twice with the same or a smaller seq is
// a no-op the second time (truncate idempotence, P9). seq is clamped to
// last_sequence but MaxSequenceNumber itself is rejected outright: it is
// a reserved sentinel that was never allocated, not a clampable bound.
func (s *Store) DeleteEntriesUpTo(ctx context.Context, seq SequenceNumber) error {
	if seq == MaxSequenceNumber {
		return &SequenceOverflowError{RegionID: s.regionID, Last: s.LastSequence()}
	}
	if last := s.LastSequence(); seq > last {
		seq = last
	}

	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	newStart := seq + 1
	if uint64(newStart) <= s.startSequence.Load() {
		return nil
	}

	key := s.metaEnc.EncodeKey(nil, s.regionID)
	value := s.metaEnc.EncodeMaxSeq(nil, newStart)
	batch := s.kv.NewWriteBatch()
	batch.InsertOrUpdate(key, value)

	_, err := walrt.SpawnBlockingWrite(ctx, s.runtimes.Blocking, func() error {
		return s.kv.Write(ctx, tablekv.WriteContext{}, s.cfg.MetaTable, batch)
	})
	if err != nil {
		return wrapKV("WriteValue", s.regionID, s.cfg.MetaTable, err)
	}

	s.startSequence.Store(uint64(newStart))
	s.logger.V(1).Info("truncated region", "region", s.regionID, "start", newStart)
	return nil
}

// CleanDeletedLogs physically removes every key strictly below the
// current start_sequence from every bucket, in batches of
// cfg.CleanBatchSize, flushing the trailing partial batch at end of scan.
// The record at start_sequence itself is never touched, even if a
// concurrent truncate advances start_sequence further while this runs:
// the bound used for each bucket's scan is read once at the start of
// that bucket's pass, so at worst a later call picks up what this one
// left behind.
func (s *Store) CleanDeletedLogs(ctx context.Context, buckets []Bucket) error {
	batchSize := s.cfg.CleanBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	for _, bucket := range buckets {
		if err := s.cleanBucket(ctx, bucket, batchSize); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) cleanBucket(ctx context.Context, bucket Bucket, batchSize int) error {
	table := bucket.WalShardTable(s.regionID)
	start := s.StartSequence()

	req := s.deleteRangeRequest(start)
	_, err := walrt.SpawnBlockingWrite(ctx, s.runtimes.Background, func() error {
		iter, err := s.kv.Scan(ctx, tablekv.ScanContext{Timeout: s.cfg.ScanTimeout}, table, req)
		if err != nil {
			return wrapKV("Scan", s.regionID, table, err)
		}
		defer iter.Close()

		batch := s.kv.NewWriteBatch()
		for iter.Next() {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			batch.Delete(key)
			if batch.Len() >= batchSize {
				if err := s.kv.Write(ctx, tablekv.WriteContext{}, table, batch); err != nil {
					return wrapKV("Delete", s.regionID, table, err)
				}
				batch = s.kv.NewWriteBatch()
			}
		}
		if batch.Len() > 0 {
			if err := s.kv.Write(ctx, tablekv.WriteContext{}, table, batch); err != nil {
				return wrapKV("Delete", s.regionID, table, err)
			}
		}
		return nil
	})
	return err
}

// deleteRangeRequest scans [MIN_SEQUENCE, start) — inclusive lower,
// exclusive upper — so the record at start_sequence always survives.
func (s *Store) deleteRangeRequest(start SequenceNumber) tablekv.ScanRequest {
	if s.keyMode == CommonKeyMode {
		return tablekv.ScanRequest{
			Start: tablekv.Included(s.commonEnc.MinKey(s.regionID, s.commonTable)),
			End:   tablekv.Excluded(s.commonEnc.EncodeKey(nil, s.regionID, s.commonTable, start)),
		}
	}
	return tablekv.ScanRequest{
		Start: tablekv.Included(s.logEnc.MinKey(s.regionID)),
		End:   tablekv.Excluded(s.logEnc.EncodeKey(nil, s.regionID, start)),
	}
}
