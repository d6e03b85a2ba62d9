package tablekv

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryKV is an in-memory, sorted-slice backed TableKV used by tests. It
// is not meant to be fast; it is meant to have obviously-correct ordering
// semantics so that region and regionmeta tests can assert against it
// without standing up a real storage engine.
type MemoryKV struct {
	mu     sync.RWMutex
	tables map[string]*memTable
}

type kvPair struct {
	key   []byte
	value []byte
}

type memTable struct {
	mu   sync.RWMutex
	rows []kvPair // kept sorted by key
}

// NewMemoryKV returns an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{tables: make(map[string]*memTable)}
}

func (m *MemoryKV) table(name string) *memTable {
	m.mu.RLock()
	t, ok := m.tables[name]
	m.mu.RUnlock()
	if ok {
		return t
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok = m.tables[name]
	if !ok {
		t = &memTable{}
		m.tables[name] = t
	}
	return t
}

func (m *MemoryKV) EnsureTable(ctx context.Context, table string) error {
	m.table(table)
	return nil
}

func (m *MemoryKV) NewWriteBatch() WriteBatch {
	return &memWriteBatch{}
}

func (m *MemoryKV) Get(ctx context.Context, table string, key []byte) ([]byte, bool, error) {
	t := m.table(table)
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, found := t.find(key)
	if !found {
		return nil, false, nil
	}
	value := make([]byte, len(t.rows[idx].value))
	copy(value, t.rows[idx].value)
	return value, true, nil
}

func (m *MemoryKV) Write(ctx context.Context, wc WriteContext, table string, batch WriteBatch) error {
	b, ok := batch.(*memWriteBatch)
	if !ok {
		return errors.New("memkv: foreign write batch")
	}
	t := m.table(table)
	t.mu.Lock()
	defer t.mu.Unlock()

	// Keep the rows as they were so a batch that fails part-way applies
	// nothing.
	saved := append([]kvPair(nil), t.rows...)
	for _, op := range b.ops {
		switch op.kind {
		case opInsert:
			idx, found := t.find(op.key)
			if found {
				t.rows = saved
				return &DuplicateKeyError{Table: table, Key: op.key}
			}
			t.insertAt(idx, op.key, op.value)
		case opUpsert:
			idx, found := t.find(op.key)
			if found {
				t.rows[idx].value = cloneBytes(op.value)
			} else {
				t.insertAt(idx, op.key, op.value)
			}
		case opDelete:
			idx, found := t.find(op.key)
			if found {
				t.rows = append(t.rows[:idx], t.rows[idx+1:]...)
			}
		}
	}
	return nil
}

func (t *memTable) find(key []byte) (int, bool) {
	idx := sort.Search(len(t.rows), func(i int) bool {
		return bytes.Compare(t.rows[i].key, key) >= 0
	})
	if idx < len(t.rows) && bytes.Equal(t.rows[idx].key, key) {
		return idx, true
	}
	return idx, false
}

func (t *memTable) insertAt(idx int, key, value []byte) {
	pair := kvPair{key: cloneBytes(key), value: cloneBytes(value)}
	t.rows = append(t.rows, kvPair{})
	copy(t.rows[idx+1:], t.rows[idx:])
	t.rows[idx] = pair
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (m *MemoryKV) Scan(ctx context.Context, sc ScanContext, table string, req ScanRequest) (ScanIter, error) {
	t := m.table(table)
	t.mu.RLock()
	defer t.mu.RUnlock()

	lo := 0
	if !req.Start.Unbounded {
		lo = sort.Search(len(t.rows), func(i int) bool {
			return bytes.Compare(t.rows[i].key, req.Start.Key) >= 0
		})
		if !req.Start.Inclusive {
			for lo < len(t.rows) && bytes.Equal(t.rows[lo].key, req.Start.Key) {
				lo++
			}
		}
	}
	hi := len(t.rows)
	if !req.End.Unbounded {
		hi = sort.Search(len(t.rows), func(i int) bool {
			return bytes.Compare(t.rows[i].key, req.End.Key) >= 0
		})
		if req.End.Inclusive {
			for hi < len(t.rows) && bytes.Equal(t.rows[hi].key, req.End.Key) {
				hi++
			}
		}
	}
	if lo > hi {
		lo = hi
	}

	snapshot := make([]kvPair, hi-lo)
	for i, row := range t.rows[lo:hi] {
		snapshot[i] = kvPair{key: cloneBytes(row.key), value: cloneBytes(row.value)}
	}
	if req.Reverse {
		for i, j := 0, len(snapshot)-1; i < j; i, j = i+1, j-1 {
			snapshot[i], snapshot[j] = snapshot[j], snapshot[i]
		}
	}
	return &memScanIter{rows: snapshot, pos: -1}, nil
}

type opKind int

const (
	opInsert opKind = iota
	opUpsert
	opDelete
)

type memOp struct {
	kind  opKind
	key   []byte
	value []byte
}

type memWriteBatch struct {
	ops []memOp
}

func (b *memWriteBatch) Insert(key, value []byte) {
	b.ops = append(b.ops, memOp{kind: opInsert, key: key, value: value})
}

func (b *memWriteBatch) InsertOrUpdate(key, value []byte) {
	b.ops = append(b.ops, memOp{kind: opUpsert, key: key, value: value})
}

func (b *memWriteBatch) Delete(key []byte) {
	b.ops = append(b.ops, memOp{kind: opDelete, key: key})
}

func (b *memWriteBatch) Len() int { return len(b.ops) }

type memScanIter struct {
	rows []kvPair
	pos  int
}

func (it *memScanIter) Next() bool {
	it.pos++
	return it.pos < len(it.rows)
}

func (it *memScanIter) Key() []byte   { return it.rows[it.pos].key }
func (it *memScanIter) Value() []byte { return it.rows[it.pos].value }
func (it *memScanIter) Err() error    { return nil }
func (it *memScanIter) Close() error  { return nil }
