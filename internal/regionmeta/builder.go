package regionmeta

// RegionMetaBuilder reconstructs a Registry from a snapshot followed by
// a post-snapshot delta stream. It is the recovery-path counterpart to
// the live Registry: apply the snapshot once, replay every delta in log
// order, then Build to get a registry that must match the live one the
// snapshot+deltas were captured from, modulo map iteration order (the
// recovery correctness property).
type RegionMetaBuilder struct {
	tables map[TableId]*tableState
}

// NewRegionMetaBuilder returns an empty builder.
func NewRegionMetaBuilder() *RegionMetaBuilder {
	return &RegionMetaBuilder{tables: make(map[TableId]*tableState)}
}

// ApplyRegionMetaSnapshot seeds the builder's table map from snapshot.
// A duplicate table_id across entries is a hard error: a snapshot is
// supposed to hold exactly one entry per table.
func (b *RegionMetaBuilder) ApplyRegionMetaSnapshot(snapshot RegionMetaSnapshot) error {
	for _, entry := range snapshot {
		if _, exists := b.tables[entry.TableID]; exists {
			return &DuplicateTableInSnapshotError{TableID: entry.TableID}
		}
		st := newTableState()
		st.nextSequenceNum = entry.NextSequenceNum
		st.latestMarkedDeleted = entry.LatestMarkedDeleted
		st.currentHighWatermark = entry.CurrentHighWatermark
		if entry.SafeDeleteOffset != nil {
			st.offsetMapping[entry.LatestMarkedDeleted] = *entry.SafeDeleteOffset
		}
		b.tables[entry.TableID] = st
	}
	return nil
}

// ApplyRegionMetaDelta replays one post-snapshot write observation,
// creating the table's entry on first reference. Both axes — sequence
// and offset — must strictly advance past the table's current state;
// either violation fails with a NonMonotonicDeltaError (see
// tableState.applyDelta).
func (b *RegionMetaBuilder) ApplyRegionMetaDelta(delta RegionMetaDelta) error {
	st, ok := b.tables[delta.TableID]
	if !ok {
		st = newTableState()
		b.tables[delta.TableID] = st
	}
	if err := st.applyDelta(delta.SequenceNum, delta.Offset); err != nil {
		return &NonMonotonicDeltaError{TableID: delta.TableID, Reason: err.Error()}
	}
	return nil
}

// Build wraps each accumulated table state in its own mutex and returns
// a live Registry.
func (b *RegionMetaBuilder) Build(opts ...RegistryOption) *Registry {
	r := NewRegistry(opts...)
	for id, st := range b.tables {
		r.tables[id] = &tableMeta{st: st}
	}
	return r
}
