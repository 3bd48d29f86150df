package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"place-indexer/domain"
	"place-indexer/driver"
	"place-indexer/port"

	"github.com/jackc/pgx/v5/pgconn"
)

// foreignKeyViolation is the Postgres SQLSTATE raised when the referenced
// place was removed between the existence check and the insert.
const foreignKeyViolation = "23503"

type ObservationDriver interface {
	InsertObservation(ctx context.Context, in driver.NewObservationRow) (*driver.ObservationRow, error)
	ListObservations(ctx context.Context, placeID string, limit, offset int) ([]driver.ObservationRow, error)
	ListPlaceObservationsSince(ctx context.Context, placeID string, since time.Time) ([]driver.ObservationRow, error)
	CountPlaceObservations(ctx context.Context, placeID string) (int, error)
}

type ObservationRepositoryGateway struct {
	driver ObservationDriver
}

var _ port.ObservationRepository = (*ObservationRepositoryGateway)(nil)

func NewObservationRepositoryGateway(driver ObservationDriver) *ObservationRepositoryGateway {
	return &ObservationRepositoryGateway{driver: driver}
}

func (g *ObservationRepositoryGateway) InsertObservation(ctx context.Context, in domain.ObservationInput) (*domain.Observation, error) {
	if !validPlaceID(in.PlaceID) {
		return nil, domain.ErrPlaceNotFound
	}

	row := driver.NewObservationRow{
		PlaceID:           in.PlaceID,
		WifiSpeedDownload: in.WifiSpeedDownload,
		WifiSpeedUpload:   in.WifiSpeedUpload,
		WifiLatency:       in.WifiLatency,
		NoiseLevel:        in.NoiseLevel,
		OutletCount:       in.OutletCount,
		Crowdedness:       in.Crowdedness,
	}
	if in.UserID != "" {
		userID := in.UserID
		row.UserID = &userID
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		row.Notes = &notes
	}

	stored, err := g.driver.InsertObservation(ctx, row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, domain.ErrPlaceNotFound
		}
		return nil, repositoryError("InsertObservation", err)
	}

	obs := observationFromRow(*stored)
	return &obs, nil
}

func (g *ObservationRepositoryGateway) ListObservations(ctx context.Context, placeID string, limit, offset int) ([]domain.Observation, error) {
	if placeID != "" && !validPlaceID(placeID) {
		return []domain.Observation{}, nil
	}
	rows, err := g.driver.ListObservations(ctx, placeID, limit, offset)
	if err != nil {
		return nil, repositoryError("ListObservations", err)
	}
	return observationsFromRows(rows), nil
}

func (g *ObservationRepositoryGateway) ListPlaceObservationsSince(ctx context.Context, placeID string, since time.Time) ([]domain.Observation, error) {
	if !validPlaceID(placeID) {
		return []domain.Observation{}, nil
	}
	rows, err := g.driver.ListPlaceObservationsSince(ctx, placeID, since)
	if err != nil {
		return nil, repositoryError("ListPlaceObservationsSince", err)
	}
	return observationsFromRows(rows), nil
}

func (g *ObservationRepositoryGateway) CountPlaceObservations(ctx context.Context, placeID string) (int, error) {
	if !validPlaceID(placeID) {
		return 0, nil
	}
	n, err := g.driver.CountPlaceObservations(ctx, placeID)
	if err != nil {
		return 0, repositoryError("CountPlaceObservations", err)
	}
	return n, nil
}

func observationsFromRows(rows []driver.ObservationRow) []domain.Observation {
	out := make([]domain.Observation, 0, len(rows))
	for _, r := range rows {
		out = append(out, observationFromRow(r))
	}
	return out
}

func observationFromRow(r driver.ObservationRow) domain.Observation {
	return domain.Observation{
		ID:                r.ID,
		PlaceID:           r.PlaceID,
		UserID:            r.UserID,
		WifiSpeedDownload: r.WifiSpeedDownload,
		WifiSpeedUpload:   r.WifiSpeedUpload,
		WifiLatency:       r.WifiLatency,
		NoiseLevel:        r.NoiseLevel,
		OutletCount:       r.OutletCount,
		Crowdedness:       r.Crowdedness,
		Notes:             r.Notes,
		AuthorName:        r.AuthorName,
		CreatedAt:         r.CreatedAt,
	}
}
