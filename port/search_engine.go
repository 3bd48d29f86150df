package port

import (
	"context"

	"place-indexer/domain"
)

// SearchEngine is the index contract the sync engine and query router
// depend on. Implementations wrap transport failures in
// *domain.SearchEngineError.
type SearchEngine interface {
	// EnsureIndex creates the index when absent and applies settings.
	// It never drops an existing index.
	EnsureIndex(ctx context.Context) error
	// UpsertDocument creates or replaces the document with doc.ID.
	UpsertDocument(ctx context.Context, doc domain.IndexDocument) error
	// GetDocument returns domain.ErrDocumentNotFound when absent.
	GetDocument(ctx context.Context, id string) (*domain.IndexDocument, error)
	// DeleteDocument treats a missing document as success.
	DeleteDocument(ctx context.Context, id string) error
	// ClearDocuments removes every document but keeps the index.
	ClearDocuments(ctx context.Context) error
	// ImportDocuments adds a batch. Per-document rejections are reported
	// in the result; a returned error means the batch as a whole failed.
	ImportDocuments(ctx context.Context, docs []domain.IndexDocument) (*domain.ImportResult, error)
	// Search renders filter into the engine's query language. Amenity
	// filters match the document flags only.
	Search(ctx context.Context, filter domain.PlaceFilter) (*domain.IndexSearchResponse, error)
}

// SyncLock serializes full syncs across processes.
type SyncLock interface {
	// TryLock returns domain.ErrSyncInProgress when already held.
	TryLock(ctx context.Context) (release func(context.Context) error, err error)
}

// PlaceCache holds place detail responses keyed by place id. Syncs and
// new observations invalidate entries.
type PlaceCache interface {
	Get(placeID string) (*domain.PlaceDetails, bool)
	Add(placeID string, details *domain.PlaceDetails)
	Invalidate(placeID string)
}
