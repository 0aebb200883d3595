package domain

import "time"

// Record is one metric snapshot for one entity, produced by a fetcher.
// Payload is the merged API response data and always carries the full
// field set for its source; fetch failures produce no Record at all.
type Record struct {
	EntityKey   string
	ExtractedAt time.Time // UTC, stamped when the merge completes
	Payload     map[string]any
}

// Batch is the ordered set of records extracted in one pipeline run.
// Order follows the catalog; entities that failed to fetch are absent.
type Batch []Record
