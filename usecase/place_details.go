package usecase

import (
	"context"
	"fmt"
	"time"

	"place-indexer/domain"
	"place-indexer/port"

	"golang.org/x/sync/errgroup"
)

type PlaceDetailsUsecase struct {
	places       port.PlaceRepository
	observations port.ObservationRepository
	cache        port.PlaceCache
	now          func() time.Time
}

// NewPlaceDetailsUsecase accepts a nil cache.
func NewPlaceDetailsUsecase(places port.PlaceRepository, observations port.ObservationRepository, cache port.PlaceCache) *PlaceDetailsUsecase {
	return &PlaceDetailsUsecase{
		places:       places,
		observations: observations,
		cache:        cache,
		now:          time.Now,
	}
}

// Execute returns the place, stats over the last domain.StatsWindow and
// up to domain.RecentObservationLimit recent observations.
func (u *PlaceDetailsUsecase) Execute(ctx context.Context, id string) (*domain.PlaceDetails, error) {
	if u.cache != nil {
		if details, ok := u.cache.Get(id); ok {
			return details, nil
		}
	}

	place, err := u.places.GetPlaceByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		total  int
		recent []domain.Observation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := u.observations.CountPlaceObservations(gctx, id)
		if err != nil {
			return fmt.Errorf("count observations: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		obs, err := u.observations.ListPlaceObservationsSince(gctx, id, u.now().Add(-domain.StatsWindow))
		if err != nil {
			return fmt.Errorf("recent observations: %w", err)
		}
		recent = obs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	list := recent
	if len(list) > domain.RecentObservationLimit {
		list = list[:domain.RecentObservationLimit]
	}

	details := &domain.PlaceDetails{
		Place:              domain.PlaceResultFromPlace(place),
		Stats:              domain.SummarizeObservations(total, recent),
		RecentObservations: list,
	}
	if u.cache != nil {
		u.cache.Add(id, details)
	}
	return details, nil
}
