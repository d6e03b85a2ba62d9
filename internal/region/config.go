package region

import "time"

// Config holds the tunables named in the external-interfaces contract.
// It is assembled once per Store via functional Options rather than left
// as positional constructor arguments.
type Config struct {
	CleanBatchSize int
	ScanTimeout    time.Duration
	MetaTable      string
}

// DefaultConfig returns a clean batch size of 100 and a scan timeout of
// 10 seconds.
func DefaultConfig() Config {
	return Config{
		CleanBatchSize: 100,
		ScanTimeout:    10 * time.Second,
		MetaTable:      "wal_region_meta",
	}
}

// Option customizes a Config produced by DefaultConfig.
type Option func(*Config)

func WithCleanBatchSize(n int) Option {
	return func(c *Config) { c.CleanBatchSize = n }
}

func WithScanTimeout(d time.Duration) Option {
	return func(c *Config) { c.ScanTimeout = d }
}

func WithMetaTable(name string) Option {
	return func(c *Config) { c.MetaTable = name }
}
