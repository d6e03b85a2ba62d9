// Package walobs supplies the injectable logr.Logger default for the
// region and regionmeta packages. Accepting logr.Logger rather than a
// concrete *slog.Logger keeps the WAL core decoupled from the top-level
// application's logging choice (slog + slog-seq, wired in
// internal/logging) while still giving every construction site a real,
// non-global logger to record into.
package walobs

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// Default returns a logr.Logger backed by the standard library's log
// package, used whenever a caller constructs a region.Store or
// regionmeta.Registry without passing its own logger.
func Default() logr.Logger {
	return stdr.New(nil)
}
