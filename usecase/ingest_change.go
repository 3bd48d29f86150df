package usecase

import (
	"context"
	"fmt"

	"place-indexer/domain"
	"place-indexer/logger"
)

// PlaceSyncer is the part of the sync engine a change notification drives.
type PlaceSyncer interface {
	SyncPlace(ctx context.Context, id string) (*domain.SyncResult, error)
	DeletePlace(ctx context.Context, id string) (*domain.SyncResult, error)
}

// IngestChangeUsecase turns store change notifications, from the webhook
// or the change stream, into incremental syncs.
type IngestChangeUsecase struct {
	syncer PlaceSyncer
}

func NewIngestChangeUsecase(syncer PlaceSyncer) *IngestChangeUsecase {
	return &IngestChangeUsecase{syncer: syncer}
}

// Execute returns domain.ErrIgnoredEvent for other tables,
// domain.ErrMalformedEvent when the place id is missing and
// domain.ErrUnknownChangeType for operations other than INSERT, UPDATE
// and DELETE.
func (u *IngestChangeUsecase) Execute(ctx context.Context, n domain.ChangeNotification) (*domain.SyncResult, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	ctx = logger.WithPlaceID(ctx, n.PlaceID)
	log := logger.FromContext(ctx)

	if !n.Known() {
		log.Warn("unknown change type", "change_type", string(n.Type))
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownChangeType, n.Type)
	}

	if n.Operation() == domain.ChangeDelete {
		log.Info("deleting place from change notification")
		return u.syncer.DeletePlace(ctx, n.PlaceID)
	}
	log.Info("syncing place from change notification", "change_type", string(n.Operation()))
	return u.syncer.SyncPlace(ctx, n.PlaceID)
}
