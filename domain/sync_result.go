package domain

import "time"

// SyncAction tags the outcome of a single-place sync.
type SyncAction string

const (
	ActionUpserted     SyncAction = "upserted"
	ActionDeleted      SyncAction = "deleted"
	ActionSkippedStale SyncAction = "skipped_stale"
)

// SyncResult describes one incremental sync.
type SyncResult struct {
	Action   SyncAction     `json:"action"`
	PlaceID  string         `json:"placeId"`
	Reason   string         `json:"reason,omitempty"`
	Document *IndexDocument `json:"document,omitempty"`
}

// DocumentFailure is a per-document import rejection.
type DocumentFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ImportResult is the outcome of an import batch that reached the index.
type ImportResult struct {
	Imported int
	Failures []DocumentFailure
}

// FullSyncResult summarizes a rebuild. Total counts every store row,
// including the Rejected ones that could not be read as places.
type FullSyncResult struct {
	RunID    string        `json:"runId"`
	Total    int           `json:"total"`
	Synced   int           `json:"synced"`
	Skipped  int           `json:"skipped"`
	Rejected int           `json:"rejected"`
	Failed   int           `json:"failed"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"-"`
}
