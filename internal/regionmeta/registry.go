package regionmeta

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"

	"github.com/QuintinTao/ceresdb/internal/walobs"
)

// Registry is the live, concurrent per-region table-metadata map. The
// outer lock is a readers-writer lock guarding only the map's shape (did
// a table entry get created); per-table mutexes guard each table's own
// bookkeeping, so unrelated tables never contend with each other.
type Registry struct {
	mu     sync.RWMutex
	tables map[TableId]*tableMeta
	logger logr.Logger
}

// RegistryOption customizes Registry construction.
type RegistryOption func(*Registry)

// WithLogger injects a logr.Logger; the default is walobs.Default().
func WithLogger(l logr.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry returns an empty Registry with no tables tracked yet.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tables: make(map[TableId]*tableMeta),
		logger: walobs.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// PrepareForTableWrite returns table_id's current next_sequence_num,
// creating a zeroed entry on first use. The fast path (table already
// exists) takes only a shared read lock. New-entry creation takes the
// registry-wide write lock; finding the entry already present after
// acquiring that lock means two callers raced to create the same
// table_id concurrently, which this registry assumes never happens and
// treats as a correctness bug, not a retryable condition.
func (r *Registry) PrepareForTableWrite(tableID TableId) SequenceNumber {
	r.mu.RLock()
	tm, ok := r.tables[tableID]
	r.mu.RUnlock()
	if ok {
		tm.mu.Lock()
		defer tm.mu.Unlock()
		return tm.st.nextSequenceNum
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, raced := r.tables[tableID]; raced {
		panic(fmt.Sprintf("regionmeta: concurrent prepare_for_table_write race creating table %d", tableID))
	}
	tm = newTableMeta()
	r.tables[tableID] = tm
	return tm.st.nextSequenceNum
}

func (r *Registry) lookup(tableID TableId) (*tableMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tm, ok := r.tables[tableID]
	return tm, ok
}

// UpdateAfterTableWrite records one write's (start, end) offset range
// against table_id, which must already have been prepared. See
// tableState.applyWrite for the exact bookkeeping.
func (r *Registry) UpdateAfterTableWrite(tableID TableId, rng OffsetRange) error {
	if rng.Start > rng.End {
		return &UpdateAfterWriteError{TableID: tableID, Reason: fmt.Sprintf("start %d > end %d", rng.Start, rng.End)}
	}
	tm, ok := r.lookup(tableID)
	if !ok {
		return &UpdateAfterWriteError{TableID: tableID, Reason: "table was never prepared"}
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if err := tm.st.applyWrite(rng); err != nil {
		return &UpdateAfterWriteError{TableID: tableID, Reason: err.Error()}
	}
	r.logger.V(2).Info("updated table write offsets", "table", tableID, "start", rng.Start, "end", rng.End)
	return nil
}

// MarkTableDeleted advances table_id's deletion watermark to sequence,
// which must lie within [latest_marked_deleted, next_sequence_num].
func (r *Registry) MarkTableDeleted(tableID TableId, sequence SequenceNumber) error {
	tm, ok := r.lookup(tableID)
	if !ok {
		return &MarkDeletedError{TableID: tableID, Reason: "table was never prepared"}
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if err := tm.st.markDeleted(sequence); err != nil {
		return &MarkDeletedError{TableID: tableID, Reason: err.Error()}
	}
	r.logger.V(2).Info("marked table deleted", "table", tableID, "sequence", sequence)
	return nil
}

// GetTableMetaData returns table_id's current externally visible state.
func (r *Registry) GetTableMetaData(tableID TableId) (TableMetaData, error) {
	tm, ok := r.lookup(tableID)
	if !ok {
		return TableMetaData{}, tableNotPreparedError("get_table_meta_data", tableID)
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.st.snapshot(tableID), nil
}

// MakeSnapshot takes the registry-wide read lock, then sequentially
// acquires each table's mutex (in table_id order, for determinism) and
// collects its TableMetaData. Callers must freeze external writers
// before calling this: MakeSnapshot does not claim write atomicity
// across tables, only internal consistency per table.
func (r *Registry) MakeSnapshot() RegionMetaSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]TableId, 0, len(r.tables))
	for id := range r.tables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	snap := make(RegionMetaSnapshot, 0, len(ids))
	for _, id := range ids {
		tm := r.tables[id]
		tm.mu.Lock()
		snap = append(snap, tm.st.snapshot(id))
		tm.mu.Unlock()
	}
	return snap
}
