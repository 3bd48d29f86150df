package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"place-indexer/domain"
	"place-indexer/logger"
	"place-indexer/port"
	"place-indexer/utils/otel"

	"github.com/google/uuid"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 30 * time.Second

	reasonUnresolvedCoordinate = "unresolved_coordinate"
	reasonUnreadableRow        = "unreadable_row"
)

type SyncPlacesConfig struct {
	BatchSize      int
	BatchTimeout   time.Duration
	StalenessGuard bool
}

// SyncPlacesUsecase keeps the search index consistent with the store. It
// reads the store and writes the index; it never writes the store.
type SyncPlacesUsecase struct {
	places port.PlaceRepository
	index  port.SearchEngine
	lock   port.SyncLock
	cache  port.PlaceCache
	cfg    SyncPlacesConfig
	locks  *placeLocks
}

// NewSyncPlacesUsecase accepts a nil cache.
func NewSyncPlacesUsecase(places port.PlaceRepository, index port.SearchEngine, lock port.SyncLock, cache port.PlaceCache, cfg SyncPlacesConfig) *SyncPlacesUsecase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	return &SyncPlacesUsecase{
		places: places,
		index:  index,
		lock:   lock,
		cache:  cache,
		cfg:    cfg,
		locks:  newPlaceLocks(),
	}
}

// FullSync rebuilds the index from the store. A batch-level failure stops
// the run; the returned result then reflects the batches already imported
// and the error is non-nil.
func (u *SyncPlacesUsecase) FullSync(ctx context.Context) (*domain.FullSyncResult, error) {
	release, err := u.lock.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.FromContext(ctx).Warn("failed to release sync lock", "error", err)
		}
	}()

	runID := uuid.NewString()
	ctx = logger.WithSyncRun(ctx, runID, "full")
	log := logger.FromContext(ctx)
	start := time.Now()
	result := &domain.FullSyncResult{RunID: runID}

	log.Info("full sync started", "batch_size", u.cfg.BatchSize)

	if err := u.index.EnsureIndex(ctx); err != nil {
		otel.Metrics.RecordError(ctx, "full_sync")
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	places, rejected, err := u.places.ListIndexablePlaces(ctx)
	if err != nil {
		otel.Metrics.RecordError(ctx, "full_sync")
		return nil, fmt.Errorf("list places: %w", err)
	}
	result.Total = len(places) + len(rejected)
	result.Rejected = len(rejected)
	if len(rejected) > 0 {
		log.Warn("store rows rejected as invalid places",
			"count", len(rejected),
			"place_ids", rejected)
	}
	otel.Metrics.RecordSkipped(ctx, len(rejected), reasonUnreadableRow)

	docs := make([]domain.IndexDocument, 0, len(places))
	for _, place := range places {
		doc, err := domain.ToIndexDocument(place)
		if err != nil {
			result.Skipped++
			log.Warn("skipping place without resolvable coordinate",
				"place_id", place.ID(),
				"name", place.Name())
			continue
		}
		docs = append(docs, doc)
	}
	otel.Metrics.RecordSkipped(ctx, result.Skipped, reasonUnresolvedCoordinate)

	if err := u.index.ClearDocuments(ctx); err != nil {
		otel.Metrics.RecordError(ctx, "full_sync")
		return nil, fmt.Errorf("clear index: %w", err)
	}

	for offset := 0; offset < len(docs); offset += u.cfg.BatchSize {
		end := min(offset+u.cfg.BatchSize, len(docs))
		batch := docs[offset:end]
		result.Batches++

		imported, err := u.importBatch(ctx, batch)
		if err != nil {
			result.Failed += len(batch)
			result.Duration = time.Since(start)
			otel.Metrics.RecordError(ctx, "full_sync")
			log.Error("import batch failed, aborting full sync",
				"batch", result.Batches,
				"synced_so_far", result.Synced,
				"error", err)
			return result, fmt.Errorf("import batch %d: %w", result.Batches, err)
		}

		result.Synced += imported.Imported
		result.Failed += len(imported.Failures)
		for _, f := range imported.Failures {
			log.Warn("document rejected by index", "place_id", f.ID, "reason", f.Reason)
		}
		otel.Metrics.RecordSynced(ctx, imported.Imported, "full")
		otel.Metrics.RecordSkipped(ctx, len(imported.Failures), "rejected")
	}

	result.Duration = time.Since(start)
	log.Info("full sync completed",
		"total", result.Total,
		"synced", result.Synced,
		"skipped", result.Skipped,
		"rejected", result.Rejected,
		"failed", result.Failed,
		"batches", result.Batches,
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}

func (u *SyncPlacesUsecase) importBatch(ctx context.Context, batch []domain.IndexDocument) (*domain.ImportResult, error) {
	ctx, cancel := context.WithTimeout(ctx, u.cfg.BatchTimeout)
	defer cancel()

	start := time.Now()
	defer func() { otel.Metrics.RecordBatch(ctx, time.Since(start)) }()

	return u.index.ImportDocuments(ctx, batch)
}

// SyncPlace brings the document for id in line with the store. Calls for
// the same id run one at a time, each with its own store read.
func (u *SyncPlacesUsecase) SyncPlace(ctx context.Context, id string) (*domain.SyncResult, error) {
	unlock, err := u.locks.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return u.syncPlace(ctx, id)
}

func (u *SyncPlacesUsecase) syncPlace(ctx context.Context, id string) (*domain.SyncResult, error) {
	ctx = logger.WithPlaceID(ctx, id)
	start := time.Now()

	place, err := u.places.GetPlaceByID(ctx, id)
	if errors.Is(err, domain.ErrPlaceNotFound) {
		return u.removeDocument(ctx, id, "")
	}
	if err != nil {
		otel.Metrics.RecordError(ctx, "sync_place")
		return nil, fmt.Errorf("load place %s: %w", id, err)
	}

	doc, err := domain.ToIndexDocument(place)
	if errors.Is(err, domain.ErrUnresolvedCoordinate) {
		logger.FromContext(ctx).Warn("place has no resolvable coordinate, removing from index")
		return u.removeDocument(ctx, id, reasonUnresolvedCoordinate)
	}
	if err != nil {
		return nil, fmt.Errorf("map place %s: %w", id, err)
	}

	if u.cfg.StalenessGuard {
		stale, err := u.isStale(ctx, doc)
		if err != nil {
			otel.Metrics.RecordError(ctx, "sync_place")
			return nil, err
		}
		if stale {
			otel.Metrics.RecordSkipped(ctx, 1, "stale")
			logger.FromContext(ctx).Info("indexed document is newer, skipping upsert")
			return &domain.SyncResult{
				Action:  domain.ActionSkippedStale,
				PlaceID: id,
				Reason:  "indexed document is newer",
			}, nil
		}
	}

	if err := u.index.UpsertDocument(ctx, doc); err != nil {
		otel.Metrics.RecordError(ctx, "sync_place")
		return nil, fmt.Errorf("upsert document %s: %w", id, err)
	}
	u.invalidate(id)
	otel.Metrics.RecordSynced(ctx, 1, "incremental")
	logger.GlobalContext.LogDuration(ctx, "sync_place", time.Since(start))

	return &domain.SyncResult{
		Action:   domain.ActionUpserted,
		PlaceID:  id,
		Document: &doc,
	}, nil
}

// isStale reports whether the index already holds a newer version of doc.
func (u *SyncPlacesUsecase) isStale(ctx context.Context, doc domain.IndexDocument) (bool, error) {
	existing, err := u.index.GetDocument(ctx, doc.ID)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read indexed document %s: %w", doc.ID, err)
	}
	return existing.UpdatedAt > doc.UpdatedAt, nil
}

// DeletePlace handles an explicit delete notification. The store is
// checked first so a delayed delete never removes a live place.
func (u *SyncPlacesUsecase) DeletePlace(ctx context.Context, id string) (*domain.SyncResult, error) {
	unlock, err := u.locks.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	exists, err := u.places.PlaceExists(ctx, id)
	if err != nil {
		otel.Metrics.RecordError(ctx, "delete_place")
		return nil, fmt.Errorf("check place %s: %w", id, err)
	}
	if exists {
		logger.FromContext(logger.WithPlaceID(ctx, id)).Info("place still exists in store, syncing instead of deleting")
		return u.syncPlace(ctx, id)
	}
	return u.removeDocument(logger.WithPlaceID(ctx, id), id, "")
}

func (u *SyncPlacesUsecase) removeDocument(ctx context.Context, id, reason string) (*domain.SyncResult, error) {
	if err := u.index.DeleteDocument(ctx, id); err != nil {
		otel.Metrics.RecordError(ctx, "delete_document")
		return nil, fmt.Errorf("delete document %s: %w", id, err)
	}
	u.invalidate(id)
	otel.Metrics.RecordDeleted(ctx)

	return &domain.SyncResult{
		Action:  domain.ActionDeleted,
		PlaceID: id,
		Reason:  reason,
	}, nil
}

func (u *SyncPlacesUsecase) invalidate(id string) {
	if u.cache != nil {
		u.cache.Invalidate(id)
	}
}
