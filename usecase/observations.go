package usecase

import (
	"context"
	"errors"
	"fmt"

	"place-indexer/domain"
	"place-indexer/port"
)

const (
	DefaultObservationLimit = 20
	MaxObservationLimit     = 100
)

type ObservationsUsecase struct {
	places       port.PlaceRepository
	observations port.ObservationRepository
	cache        port.PlaceCache
}

// NewObservationsUsecase accepts a nil cache.
func NewObservationsUsecase(places port.PlaceRepository, observations port.ObservationRepository, cache port.PlaceCache) *ObservationsUsecase {
	return &ObservationsUsecase{
		places:       places,
		observations: observations,
		cache:        cache,
	}
}

// Create validates in, checks the place exists and stores the reading.
// It returns domain.ErrInvalidObservation or domain.ErrPlaceNotFound for
// client errors.
func (u *ObservationsUsecase) Create(ctx context.Context, in domain.ObservationInput) (*domain.Observation, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	exists, err := u.places.PlaceExists(ctx, in.PlaceID)
	if err != nil {
		return nil, fmt.Errorf("check place: %w", err)
	}
	if !exists {
		return nil, domain.ErrPlaceNotFound
	}

	obs, err := u.observations.InsertObservation(ctx, in)
	if err != nil {
		if errors.Is(err, domain.ErrPlaceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("insert observation: %w", err)
	}

	if u.cache != nil {
		u.cache.Invalidate(in.PlaceID)
	}
	return obs, nil
}

// List returns observations newest first. limit defaults to 20 and is
// capped at 100; a negative offset is treated as 0.
func (u *ObservationsUsecase) List(ctx context.Context, placeID string, limit, offset int) ([]domain.Observation, error) {
	if limit <= 0 {
		limit = DefaultObservationLimit
	}
	if limit > MaxObservationLimit {
		limit = MaxObservationLimit
	}
	if offset < 0 {
		offset = 0
	}

	obs, err := u.observations.ListObservations(ctx, placeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return obs, nil
}
