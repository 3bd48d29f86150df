package port

import (
	"context"
	"time"

	"place-indexer/domain"
)

// PlaceRepository is the read side of the authoritative store.
type PlaceRepository interface {
	// GetPlaceByID returns domain.ErrPlaceNotFound when no row exists.
	GetPlaceByID(ctx context.Context, id string) (*domain.Place, error)
	// ListIndexablePlaces returns every place with its resolved location.
	// Places whose coordinate could not be resolved come back with a nil
	// location so the caller can count and log them. Rows that are not
	// valid places are left out and their ids returned as rejected.
	ListIndexablePlaces(ctx context.Context) (places []*domain.Place, rejected []string, err error)
	// ListPlaces is the plain listing ordered by workability score,
	// nulls last. It returns the page and the total match count.
	ListPlaces(ctx context.Context, filter domain.PlaceFilter) ([]*domain.Place, int64, error)
	// NearbyPlaces is the radius query. Results are ordered by distance
	// and carry it in meters.
	NearbyPlaces(ctx context.Context, filter domain.PlaceFilter, policy domain.AmenityPolicy) ([]NearbyPlace, int64, error)
	PlaceExists(ctx context.Context, id string) (bool, error)
}

// NearbyPlace pairs a place with its distance from the query center.
type NearbyPlace struct {
	Place          *domain.Place
	DistanceMeters float64
}

// ObservationRepository stores crowdsourced readings.
type ObservationRepository interface {
	InsertObservation(ctx context.Context, in domain.ObservationInput) (*domain.Observation, error)
	// ListObservations returns newest first. An empty placeID lists all.
	ListObservations(ctx context.Context, placeID string, limit, offset int) ([]domain.Observation, error)
	ListPlaceObservationsSince(ctx context.Context, placeID string, since time.Time) ([]domain.Observation, error)
	CountPlaceObservations(ctx context.Context, placeID string) (int, error)
}
