package region

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/QuintinTao/ceresdb/internal/tablekv"
	"github.com/QuintinTao/ceresdb/internal/waltypes"
	"github.com/QuintinTao/ceresdb/internal/walrt"
)

func testRuntimes() walrt.Runtimes {
	return walrt.NewRuntimes(4, 2)
}

func payloads(n int) []WriteRequest {
	out := make([]WriteRequest, n)
	for i := range out {
		out[i] = WriteRequest{Payload: waltypes.RawPayload([]byte{byte(i)})}
	}
	return out
}

func drain(t *testing.T, it *Iterator) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for {
		entry, ok, err := it.Next()
		assert.NilError(t, err)
		if !ok {
			break
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestOpenWriteReadScenario1 is the literal end-to-end scenario: open
// empty region 7 over one bucket, prepare (LastSequence) is 0 (the
// sentinel meaning "nothing written yet"), write 10 payloads returns 10,
// and reading [0,100] yields 10 entries with sequences 1..10.
func TestOpenWriteReadScenario1(t *testing.T) {
	ctx := context.Background()
	kv := tablekv.NewMemoryKV()
	buckets := []Bucket{StaticBucket{Table: "shard0", Start: 0}}

	store, err := OpenOrCreate(ctx, kv, testRuntimes(), 7, buckets, nil, nil)
	assert.NilError(t, err)
	assert.Equal(t, store.LastSequence(), waltypes.MinSequenceNumber)

	last, err := store.WriteLog(ctx, buckets[0], payloads(10))
	assert.NilError(t, err)
	assert.Equal(t, last, waltypes.SequenceNumber(10))

	it := store.ReadLog(ctx, buckets, ReadRequest{Start: 0, End: 100})
	entries := drain(t, it)
	assert.Equal(t, len(entries), 10)
	for i, e := range entries {
		assert.Equal(t, e.Sequence, waltypes.SequenceNumber(i+1))
	}
}

// TestSequenceMonotonicity covers P5: successive write_log calls return
// strictly increasing max-sequences, and for a batch of size n the
// returned value equals prev+n.
func TestSequenceMonotonicity(t *testing.T) {
	ctx := context.Background()
	kv := tablekv.NewMemoryKV()
	buckets := []Bucket{StaticBucket{Table: "shard0", Start: 0}}

	store, err := OpenOrCreate(ctx, kv, testRuntimes(), 1, buckets, nil, nil)
	assert.NilError(t, err)

	prev := store.LastSequence()
	for _, n := range []int{3, 5, 1, 7} {
		last, err := store.WriteLog(ctx, buckets[0], payloads(n))
		assert.NilError(t, err)
		assert.Equal(t, last, prev+waltypes.SequenceNumber(n))
		assert.Assert(t, last > prev)
		prev = last
	}
}

// TestReadBounds covers P6: read_log never yields a record with sequence
// outside the current [start_sequence, last_sequence] window.
func TestReadBounds(t *testing.T) {
	ctx := context.Background()
	kv := tablekv.NewMemoryKV()
	buckets := []Bucket{StaticBucket{Table: "shard0", Start: 0}}

	store, err := OpenOrCreate(ctx, kv, testRuntimes(), 2, buckets, nil, nil)
	assert.NilError(t, err)

	_, err = store.WriteLog(ctx, buckets[0], payloads(20))
	assert.NilError(t, err)

	assert.NilError(t, store.DeleteEntriesUpTo(ctx, 5))

	it := store.ReadLog(ctx, buckets, ReadRequest{Start: 0, End: 1000})
	for _, e := range drain(t, it) {
		assert.Assert(t, e.Sequence >= store.StartSequence())
		assert.Assert(t, e.Sequence <= store.LastSequence())
	}
}

// TestTruncateIdempotence covers P9: calling delete_entries_up_to(s)
// twice yields the same state as calling it once.
func TestTruncateIdempotence(t *testing.T) {
	ctx := context.Background()
	kv := tablekv.NewMemoryKV()
	buckets := []Bucket{StaticBucket{Table: "shard0", Start: 0}}

	store, err := OpenOrCreate(ctx, kv, testRuntimes(), 3, buckets, nil, nil)
	assert.NilError(t, err)
	_, err = store.WriteLog(ctx, buckets[0], payloads(30))
	assert.NilError(t, err)

	assert.NilError(t, store.DeleteEntriesUpTo(ctx, 10))
	afterFirst := store.StartSequence()

	assert.NilError(t, store.DeleteEntriesUpTo(ctx, 10))
	assert.Equal(t, store.StartSequence(), afterFirst)

	// A smaller truncate point than the current start is also a no-op.
	assert.NilError(t, store.DeleteEntriesUpTo(ctx, 3))
	assert.Equal(t, store.StartSequence(), afterFirst)
}

// TestTruncateRejectsMaxSequenceNumber confirms MaxSequenceNumber is
// rejected as a reserved sentinel rather than silently clamped down to
// an allocatable value.
func TestTruncateRejectsMaxSequenceNumber(t *testing.T) {
	ctx := context.Background()
	kv := tablekv.NewMemoryKV()
	buckets := []Bucket{StaticBucket{Table: "shard0", Start: 0}}

	store, err := OpenOrCreate(ctx, kv, testRuntimes(), 4, buckets, nil, nil)
	assert.NilError(t, err)
	_, err = store.WriteLog(ctx, buckets[0], payloads(5))
	assert.NilError(t, err)

	startBefore := store.StartSequence()
	err = store.DeleteEntriesUpTo(ctx, waltypes.MaxSequenceNumber)
	var overflow *SequenceOverflowError
	assert.Assert(t, errors.As(err, &overflow))
	assert.Equal(t, store.StartSequence(), startBefore)
}

// TestTruncateThenCleanScenario6 is the literal end-to-end scenario:
// write sequences 1..100 in region 9, truncate at 50, confirm reads see
// 51..100, clean, then confirm the shard table itself has no key with
// sequence < 51 and still has sequence 51.
func TestTruncateThenCleanScenario6(t *testing.T) {
	ctx := context.Background()
	kv := tablekv.NewMemoryKV()
	buckets := []Bucket{StaticBucket{Table: "shard0", Start: 0}}

	store, err := OpenOrCreate(ctx, kv, testRuntimes(), 9, buckets, nil, nil)
	assert.NilError(t, err)
	_, err = store.WriteLog(ctx, buckets[0], payloads(100))
	assert.NilError(t, err)

	assert.NilError(t, store.DeleteEntriesUpTo(ctx, 50))

	it := store.ReadLog(ctx, buckets, ReadRequest{Start: 1, End: 100})
	entries := drain(t, it)
	assert.Equal(t, len(entries), 50)
	assert.Equal(t, entries[0].Sequence, waltypes.SequenceNumber(51))
	assert.Equal(t, entries[len(entries)-1].Sequence, waltypes.SequenceNumber(100))

	assert.NilError(t, store.CleanDeletedLogs(ctx, buckets))

	raw, err := kv.Scan(ctx, tablekv.ScanContext{}, "shard0", tablekv.ScanRequest{
		Start: tablekv.KeyBoundary{Unbounded: true},
		End:   tablekv.KeyBoundary{Unbounded: true},
	})
	assert.NilError(t, err)

	lowestSeq := waltypes.SequenceNumber(0)
	found51 := false
	first := true
	for raw.Next() {
		_, seq, decErr := store.logEnc.DecodeKey(raw.Key())
		assert.NilError(t, decErr)
		if first {
			lowestSeq = seq
			first = false
		}
		if seq == 51 {
			found51 = true
		}
		assert.Assert(t, seq >= 51)
	}
	assert.Assert(t, found51)
	assert.Equal(t, lowestSeq, waltypes.SequenceNumber(51))
}

// TestCommonLogKeyRoundTrip exercises the optional multi-table-per-region
// mode: writes and reads route through the common log key codec and the
// decoded entry carries the real table id, not the region id.
func TestCommonLogKeyRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := tablekv.NewMemoryKV()
	buckets := []Bucket{StaticBucket{Table: "shard0", Start: 0}}

	store, err := OpenOrCreate(ctx, kv, testRuntimes(), 42, buckets, nil,
		[]StoreOption{WithCommonLogKey(7)})
	assert.NilError(t, err)

	_, err = store.WriteLog(ctx, buckets[0], payloads(3))
	assert.NilError(t, err)

	it := store.ReadLog(ctx, buckets, ReadRequest{Start: 0, End: 100})
	entries := drain(t, it)
	assert.Equal(t, len(entries), 3)
	for _, e := range entries {
		assert.Equal(t, e.TableID, waltypes.TableId(7))
	}
}

// TestOpenRequiresExistingEntry ensures Open (as opposed to OpenOrCreate)
// fails when no region meta entry exists yet.
func TestOpenRequiresExistingEntry(t *testing.T) {
	ctx := context.Background()
	kv := tablekv.NewMemoryKV()
	buckets := []Bucket{StaticBucket{Table: "shard0", Start: 0}}

	_, err := Open(ctx, kv, testRuntimes(), 55, buckets, nil, nil)
	assert.Assert(t, err != nil)
}

// TestOpenOrCreateIsIdempotentUnderRace opens the same region twice, one
// after the other: the second OpenOrCreate loads the meta entry the first
// one created, and both handles must agree rather than the second failing.
// The opens do not overlap, so the duplicate-key fallback is not reached.
func TestOpenOrCreateIsIdempotentUnderRace(t *testing.T) {
	ctx := context.Background()
	kv := tablekv.NewMemoryKV()
	buckets := []Bucket{StaticBucket{Table: "shard0", Start: 0}}

	store1, err := OpenOrCreate(ctx, kv, testRuntimes(), 100, buckets, nil, nil)
	assert.NilError(t, err)
	store2, err := OpenOrCreate(ctx, kv, testRuntimes(), 100, buckets, nil, nil)
	assert.NilError(t, err)

	assert.Equal(t, store1.StartSequence(), store2.StartSequence())
	assert.Equal(t, store1.LastSequence(), store2.LastSequence())
}
