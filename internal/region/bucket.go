package region

// Bucket is a time-partitioned physical KV table. The region log store
// treats a list of buckets as a partitioned horizon but never creates,
// rolls over, or otherwise manages buckets itself — that remains the
// caller's responsibility.
type Bucket interface {
	// WalShardTable returns the physical table name backing this
	// region's log records within the bucket.
	WalShardTable(regionID RegionId) string
	// GmtStartMs is the bucket's start time. Buckets handed to Read and
	// Clean must be strictly monotonic in this value.
	GmtStartMs() int64
}

// StaticBucket is the simplest possible Bucket: a fixed table-name
// format and start time, useful for tests and for single-bucket regions.
type StaticBucket struct {
	Table string
	Start int64
}

func (b StaticBucket) WalShardTable(RegionId) string { return b.Table }
func (b StaticBucket) GmtStartMs() int64             { return b.Start }
