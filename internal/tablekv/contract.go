// Package tablekv defines the ordered key-value store contract the region
// log store and its bucket shard tables are built against, plus one
// in-memory implementation for tests. Exactly one production
// implementation and one test implementation are expected, per design:
// the interface is the capability boundary, not a place for many
// competing backends to accumulate.
package tablekv

import (
	"context"
	"errors"
	"time"
)

// ScanContext carries per-scan tunables down to the KV backend. The
// timeout is propagated to the backend and surfaces as a Scan error on
// expiry; BatchSize lets a caller override the backend's default page
// size for a single call.
type ScanContext struct {
	Timeout   time.Duration
	BatchSize int
}

// DefaultScanTimeout is the tunable named in the external-interfaces
// contract: ten seconds unless the caller overrides it.
const DefaultScanTimeout = 10 * time.Second

// WriteContext is currently empty but kept as a distinct type so a
// deadline, priority, or tracing hook can be added without changing every
// Write call site's signature.
type WriteContext struct{}

// KeyBoundary describes one edge of a scan range.
type KeyBoundary struct {
	Key       []byte
	Inclusive bool
	Unbounded bool
}

// Included returns an inclusive boundary at key.
func Included(key []byte) KeyBoundary { return KeyBoundary{Key: key, Inclusive: true} }

// Excluded returns an exclusive boundary at key.
func Excluded(key []byte) KeyBoundary { return KeyBoundary{Key: key, Inclusive: false} }

// ScanRequest describes an ordered range scan.
type ScanRequest struct {
	Start   KeyBoundary
	End     KeyBoundary
	Reverse bool
}

// DuplicateKeyError is returned by Write when an Insert collides with an
// existing key. It is not necessarily fatal to the caller: the region log
// store's idempotent-on-duplicate bootstrap path specifically checks for
// it via IsPrimaryKeyDuplicate and falls back to a load instead of
// propagating the error.
type DuplicateKeyError struct {
	Table string
	Key   []byte
}

func (e *DuplicateKeyError) Error() string {
	return "primary key duplicate in table " + e.Table
}

// IsPrimaryKeyDuplicate reports whether err (possibly wrapped) represents
// a primary-key-duplicate conflict on insert.
func IsPrimaryKeyDuplicate(err error) bool {
	var dup *DuplicateKeyError
	return errors.As(err, &dup)
}

// WriteBatch accumulates inserts, upserts, and deletes for one atomic
// Write call.
type WriteBatch interface {
	Insert(key, value []byte)
	InsertOrUpdate(key, value []byte)
	Delete(key []byte)
	Len() int
}

// ScanIter walks a range produced by Scan. Callers must call Next before
// the first Key/Value access, mirroring database/sql.Rows.
type ScanIter interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// TableKV is the ordered key-value store collaborator contract: point
// get, ordered range scan, and batched mutation, plus an error
// introspection hook for insert conflicts.
type TableKV interface {
	NewWriteBatch() WriteBatch

	Get(ctx context.Context, table string, key []byte) ([]byte, bool, error)
	Scan(ctx context.Context, sc ScanContext, table string, req ScanRequest) (ScanIter, error)
	Write(ctx context.Context, wc WriteContext, table string, batch WriteBatch) error

	// EnsureTable creates the named physical table if it does not already
	// exist. Idempotent.
	EnsureTable(ctx context.Context, table string) error
}
