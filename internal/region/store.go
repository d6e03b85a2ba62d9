// Package region implements the append-only, sequence-numbered log kept
// per RegionId on top of an external ordered key-value store, with
// records fanned out across caller-supplied time buckets.
package region

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/QuintinTao/ceresdb/internal/tablekv"
	"github.com/QuintinTao/ceresdb/internal/walcodec"
	"github.com/QuintinTao/ceresdb/internal/walobs"
	"github.com/QuintinTao/ceresdb/internal/walrt"
)

// KeyMode selects which log-key shape a Store uses.
type KeyMode int

const (
	// PlainKeyMode uses the 18-byte plain log key: one table per region.
	PlainKeyMode KeyMode = iota
	// CommonKeyMode uses the 26-byte common log key, so several tables
	// can share one region's log stream.
	CommonKeyMode
)

// Store is a handle owning (region-id, start-sequence, last-sequence,
// writer-lock) for one region. Reading and cleaning run lock-free against
// atomically-published bounds; writing and truncating serialize through
// writerMu.
type Store struct {
	regionID RegionId
	kv       tablekv.TableKV
	runtimes walrt.Runtimes
	cfg      Config
	logger   logr.Logger

	keyMode     KeyMode
	commonTable TableId // used only in CommonKeyMode

	logEnc    walcodec.LogEncoding
	commonEnc walcodec.CommonLogEncoding
	metaEnc   walcodec.MetaEncoding

	writerMu sync.Mutex

	startSequence atomic.Uint64
	lastSequence  atomic.Uint64
}

// StoreOption customizes Store construction beyond Config.
type StoreOption func(*Store)

// WithCommonLogKey switches the store into CommonKeyMode, scoped to a
// single table id, so the region's log can be shared by several tables
// while still being opened/read/written one table at a time through this
// handle.
func WithCommonLogKey(tableID TableId) StoreOption {
	return func(s *Store) {
		s.keyMode = CommonKeyMode
		s.commonTable = tableID
	}
}

// WithLogger injects a logr.Logger; the default is walobs.Default().
func WithLogger(l logr.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

func newStore(regionID RegionId, kv tablekv.TableKV, runtimes walrt.Runtimes, opts []Option, storeOpts []StoreOption) *Store {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	s := &Store{
		regionID: regionID,
		kv:       kv,
		runtimes: runtimes,
		cfg:      cfg,
		logger:   walobs.Default(),
		logEnc:   walcodec.NewLogEncoding(),
		commonEnc: walcodec.NewCommonLogEncoding(),
		metaEnc:   walcodec.NewMetaEncoding(),
	}
	for _, o := range storeOpts {
		o(s)
	}
	return s
}

// OpenOrCreate loads the region's meta entry, inserting a fresh zeroed
// one under idempotent-on-duplicate semantics if none exists yet, then
// reconstructs last_sequence by reverse-scanning buckets. It suspends
// only on the injected Background runtime, matching the "open" and
// "open_or_create" suspension points named in the concurrency model.
func OpenOrCreate(ctx context.Context, kv tablekv.TableKV, runtimes walrt.Runtimes, regionID RegionId, buckets []Bucket, opts []Option, storeOpts []StoreOption) (*Store, error) {
	s := newStore(regionID, kv, runtimes, opts, storeOpts)

	start, err := walrt.SpawnBlocking(ctx, runtimes.Background, func() (SequenceNumber, error) {
		return s.loadOrCreateMeta(ctx)
	})
	if err != nil {
		return nil, err
	}
	s.startSequence.Store(uint64(start))

	last, err := walrt.SpawnBlocking(ctx, runtimes.Background, func() (SequenceNumber, error) {
		return s.reconstructLastSequence(ctx, buckets)
	})
	if err != nil {
		return nil, err
	}
	s.lastSequence.Store(uint64(last))

	s.logger.V(1).Info("region opened", "region", s.regionID, "start", start, "last", last)
	return s, nil
}

// Open loads an existing region's meta entry and reconstructs
// last_sequence exactly as OpenOrCreate does, but fails with
// RegionNotExistsError instead of creating a fresh entry when none is
// present.
func Open(ctx context.Context, kv tablekv.TableKV, runtimes walrt.Runtimes, regionID RegionId, buckets []Bucket, opts []Option, storeOpts []StoreOption) (*Store, error) {
	s := newStore(regionID, kv, runtimes, opts, storeOpts)

	start, err := walrt.SpawnBlocking(ctx, runtimes.Background, func() (SequenceNumber, error) {
		key := s.metaEnc.EncodeKey(nil, s.regionID)
		value, ok, err := s.kv.Get(ctx, s.cfg.MetaTable, key)
		if err != nil {
			return 0, wrapKV("GetValue", s.regionID, s.cfg.MetaTable, err)
		}
		if !ok {
			return 0, &RegionNotExistsError{RegionID: s.regionID}
		}
		maxSeq, err := s.metaEnc.DecodeMaxSeq(value)
		if err != nil {
			return 0, &DecodeError{RegionID: s.regionID, Err: err}
		}
		return maxSeq, nil
	})
	if err != nil {
		return nil, err
	}
	s.startSequence.Store(uint64(start))

	last, err := walrt.SpawnBlocking(ctx, runtimes.Background, func() (SequenceNumber, error) {
		return s.reconstructLastSequence(ctx, buckets)
	})
	if err != nil {
		return nil, err
	}
	s.lastSequence.Store(uint64(last))

	s.logger.V(1).Info("region opened", "region", s.regionID, "start", start, "last", last)
	return s, nil
}

func (s *Store) loadOrCreateMeta(ctx context.Context) (SequenceNumber, error) {
	key := s.metaEnc.EncodeKey(nil, s.regionID)

	if value, ok, err := s.kv.Get(ctx, s.cfg.MetaTable, key); err != nil {
		return 0, wrapKV("GetValue", s.regionID, s.cfg.MetaTable, err)
	} else if ok {
		maxSeq, err := s.metaEnc.DecodeMaxSeq(value)
		if err != nil {
			return 0, &DecodeError{RegionID: s.regionID, Err: err}
		}
		return maxSeq, nil
	}

	value := s.metaEnc.EncodeMaxSeq(nil, MinSequenceNumber)
	batch := s.kv.NewWriteBatch()
	batch.Insert(key, value)
	if err := s.kv.Write(ctx, tablekv.WriteContext{}, s.cfg.MetaTable, batch); err != nil {
		if tablekv.IsPrimaryKeyDuplicate(err) {
			// Lost the race to create this region's entry; fall back to
			// loading whatever the winner wrote.
			loaded, ok, getErr := s.kv.Get(ctx, s.cfg.MetaTable, key)
			if getErr != nil {
				return 0, wrapKV("GetValue", s.regionID, s.cfg.MetaTable, getErr)
			}
			if !ok {
				return 0, &RegionNotExistsError{RegionID: s.regionID}
			}
			maxSeq, decErr := s.metaEnc.DecodeMaxSeq(loaded)
			if decErr != nil {
				return 0, &DecodeError{RegionID: s.regionID, Err: decErr}
			}
			return maxSeq, nil
		}
		return 0, wrapKV("WriteValue", s.regionID, s.cfg.MetaTable, err)
	}
	return MinSequenceNumber, nil
}

// reconstructLastSequence reverse-scans buckets newest-first, stopping at
// the first bucket holding a record for this region, and returns its
// largest key's sequence. If no bucket holds a record, last_sequence is
// MinSequenceNumber (conceptually MinSequenceNumber-1, represented here
// as MinSequenceNumber since the type is unsigned and nothing has been
// allocated yet).
func (s *Store) reconstructLastSequence(ctx context.Context, buckets []Bucket) (SequenceNumber, error) {
	for i := len(buckets) - 1; i >= 0; i-- {
		bucket := buckets[i]
		table := bucket.WalShardTable(s.regionID)

		req := s.fullRangeRequest(true)
		iter, err := s.kv.Scan(ctx, tablekv.ScanContext{Timeout: s.cfg.ScanTimeout}, table, req)
		if err != nil {
			return 0, wrapKV("Scan", s.regionID, table, err)
		}
		if iter.Next() {
			seq, err := s.decodeKeySequence(iter.Key())
			iter.Close()
			if err != nil {
				return 0, &DecodeError{RegionID: s.regionID, Err: err}
			}
			return seq, nil
		}
		iter.Close()
	}
	return MinSequenceNumber, nil
}

func (s *Store) fullRangeRequest(reverse bool) tablekv.ScanRequest {
	switch s.keyMode {
	case CommonKeyMode:
		return tablekv.ScanRequest{
			Start:   tablekv.Included(s.commonEnc.MinKey(s.regionID, s.commonTable)),
			End:     tablekv.Included(s.commonEnc.MaxKey(s.regionID, s.commonTable, MaxSequenceNumber)),
			Reverse: reverse,
		}
	default:
		return tablekv.ScanRequest{
			Start:   tablekv.Included(s.logEnc.MinKey(s.regionID)),
			End:     tablekv.Included(s.logEnc.MaxKey(s.regionID, MaxSequenceNumber)),
			Reverse: reverse,
		}
	}
}

func (s *Store) decodeKeySequence(key []byte) (SequenceNumber, error) {
	if s.keyMode == CommonKeyMode {
		_, _, seq, err := s.commonEnc.DecodeKey(key)
		return seq, err
	}
	_, seq, err := s.logEnc.DecodeKey(key)
	return seq, err
}

// StartSequence returns the current inclusive lower bound of the live
// log. It is safe to call concurrently with writes and truncates.
func (s *Store) StartSequence() SequenceNumber { return SequenceNumber(s.startSequence.Load()) }

// LastSequence returns the current inclusive highest allocated sequence.
// It is safe to call concurrently with writes and truncates.
func (s *Store) LastSequence() SequenceNumber { return SequenceNumber(s.lastSequence.Load()) }

// RegionID returns the region this store serves.
func (s *Store) RegionID() RegionId { return s.regionID }

// WriteLog allocates sequence numbers for the batch under the writer
// lock, encodes each entry, and issues a single blocking batch insert to
// bucket's shard table. It returns the highest sequence assigned in this
// call. On failure, the allocated range is leaked — never reused — so
// scans never see a sequence reused for different content.
func (s *Store) WriteLog(ctx context.Context, bucket Bucket, entries []WriteRequest) (SequenceNumber, error) {
	if len(entries) == 0 {
		return s.LastSequence(), nil
	}

	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	last := SequenceNumber(s.lastSequence.Load())
	if uint64(last) >= uint64(MaxSequenceNumber)-uint64(len(entries)) {
		return 0, &SequenceOverflowError{RegionID: s.regionID, Last: last}
	}
	first := last + 1
	newLast := first + SequenceNumber(len(entries)) - 1
	// Publish the allocation before the KV write so that a failed write
	// leaves its range behind instead of handing it out again.
	s.lastSequence.Store(uint64(newLast))

	batch := s.kv.NewWriteBatch()
	var valueBuf bytes.Buffer
	for i, entry := range entries {
		seq := first + SequenceNumber(i)
		var key []byte
		if s.keyMode == CommonKeyMode {
			key = s.commonEnc.EncodeKey(nil, s.regionID, s.commonTable, seq)
		} else {
			key = s.logEnc.EncodeKey(nil, s.regionID, seq)
		}

		valueBuf.Reset()
		if err := s.logEnc.EncodeValue(&valueBuf, entry.Payload); err != nil {
			return 0, fmt.Errorf("region %d: encode log value at seq %d: %w", s.regionID, seq, err)
		}
		value := make([]byte, valueBuf.Len())
		copy(value, valueBuf.Bytes())
		batch.Insert(key, value)
	}

	table := bucket.WalShardTable(s.regionID)
	_, err := walrt.SpawnBlocking(ctx, s.runtimes.Blocking, func() (struct{}, error) {
		return struct{}{}, s.kv.Write(ctx, tablekv.WriteContext{}, table, batch)
	})
	if err != nil {
		return 0, wrapKV("WriteLog", s.regionID, table, err)
	}

	s.logger.V(1).Info("wrote log batch", "region", s.regionID, "first", first, "last", newLast)
	return newLast, nil
}
