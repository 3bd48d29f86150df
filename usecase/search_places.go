package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"place-indexer/domain"
	"place-indexer/logger"
	"place-indexer/port"
	"place-indexer/utils/otel"
)

// SearchPlacesUsecase routes a place read to the store or the index and
// returns one normalized result shape from either.
type SearchPlacesUsecase struct {
	places port.PlaceRepository
	index  port.SearchEngine
	policy domain.AmenityPolicy
}

func NewSearchPlacesUsecase(places port.PlaceRepository, index port.SearchEngine, policy domain.AmenityPolicy) *SearchPlacesUsecase {
	if policy == "" {
		policy = domain.AmenityFromRecordOrObservations
	}
	return &SearchPlacesUsecase{
		places: places,
		index:  index,
		policy: policy,
	}
}

// Execute serves filter from the index when a geo, category, amenity or
// score dimension is active, and from the store listing otherwise.
func (u *SearchPlacesUsecase) Execute(ctx context.Context, filter domain.PlaceFilter) (*domain.PlaceSearchResult, error) {
	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}

	route := filter.Routing()
	ctx = logger.WithQueryRoute(ctx, string(route))
	start := time.Now()
	defer func() { otel.Metrics.RecordSearch(ctx, time.Since(start), string(route)) }()

	if route == domain.RouteIndex {
		return u.searchIndex(ctx, filter)
	}
	return u.searchStore(ctx, filter, start)
}

// ExecuteStore always reads from the store. A geo radius selects the
// distance-ordered nearby query, where the amenity policy applies.
func (u *SearchPlacesUsecase) ExecuteStore(ctx context.Context, filter domain.PlaceFilter) (*domain.PlaceSearchResult, error) {
	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}

	ctx = logger.WithQueryRoute(ctx, string(domain.RouteStore))
	start := time.Now()
	defer func() { otel.Metrics.RecordSearch(ctx, time.Since(start), string(domain.RouteStore)) }()

	return u.searchStore(ctx, filter, start)
}

func normalizeFilter(filter *domain.PlaceFilter) error {
	if err := filter.Normalize(); err != nil {
		return domain.NewSearchError(err.Error(), fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err))
	}
	return nil
}

func (u *SearchPlacesUsecase) searchStore(ctx context.Context, filter domain.PlaceFilter, start time.Time) (*domain.PlaceSearchResult, error) {
	var (
		results []domain.PlaceResult
		total   int64
	)

	if filter.HasGeo() {
		nearby, n, err := u.places.NearbyPlaces(ctx, filter, u.policy)
		if err != nil {
			otel.Metrics.RecordError(ctx, "search_store")
			return nil, domain.NewSearchError("nearby query failed", err)
		}
		results = make([]domain.PlaceResult, 0, len(nearby))
		for _, np := range nearby {
			r := domain.PlaceResultFromPlace(np.Place)
			d := np.DistanceMeters
			r.DistanceMeters = &d
			results = append(results, r)
		}
		total = n
	} else {
		places, n, err := u.places.ListPlaces(ctx, filter)
		if err != nil {
			otel.Metrics.RecordError(ctx, "search_store")
			return nil, domain.NewSearchError("place listing failed", err)
		}
		results = make([]domain.PlaceResult, 0, len(places))
		for _, p := range places {
			results = append(results, domain.PlaceResultFromPlace(p))
		}
		total = n
	}

	return &domain.PlaceSearchResult{
		Places:       results,
		Found:        total,
		Page:         filter.Page,
		PerPage:      filter.PerPage,
		TotalPages:   domain.TotalPagesFor(total, filter.PerPage),
		Facets:       []domain.Facet{},
		SearchTimeMs: time.Since(start).Milliseconds(),
		Source:       domain.RouteStore,
	}, nil
}

func (u *SearchPlacesUsecase) searchIndex(ctx context.Context, filter domain.PlaceFilter) (*domain.PlaceSearchResult, error) {
	resp, err := u.index.Search(ctx, filter)
	if err != nil {
		otel.Metrics.RecordError(ctx, "search_index")
		logger.GlobalContext.LogError(ctx, "search_index", err)
		return nil, domain.NewSearchError("search request failed", err)
	}

	results := make([]domain.PlaceResult, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, placeResultFromHit(hit))
	}

	return &domain.PlaceSearchResult{
		Places:       results,
		Found:        resp.TotalHits,
		Page:         filter.Page,
		PerPage:      filter.PerPage,
		TotalPages:   domain.TotalPagesFor(resp.TotalHits, filter.PerPage),
		Facets:       facetsFrom(resp.Facets),
		SearchTimeMs: resp.ProcessingTimeMs,
		Source:       domain.RouteIndex,
	}, nil
}

func placeResultFromHit(hit domain.IndexHit) domain.PlaceResult {
	doc := hit.Document
	lat, lng := doc.Geo.Lat, doc.Geo.Lng
	r := domain.PlaceResult{
		ID:               doc.ID,
		Name:             doc.Name,
		Categories:       doc.Categories,
		WorkabilityScore: doc.WorkabilityScore,
		WifiAvailable:    domain.FromNullable(doc.WifiAvailable),
		OutletsAvailable: domain.FromNullable(doc.OutletsAvailable),
		PlaceLat:         &lat,
		PlaceLng:         &lng,
		DistanceMeters:   hit.DistanceMeters,
		Highlights:       hit.Highlights,
		TextMatchScore:   hit.RankingScore,
	}
	if doc.Address != "" {
		addr := doc.Address
		r.Address = &addr
	}
	return r
}

// facetsFrom orders fields by name and buckets by count, then value.
func facetsFrom(dist map[string]map[string]int64) []domain.Facet {
	fields := make([]string, 0, len(dist))
	for field := range dist {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	facets := make([]domain.Facet, 0, len(fields))
	for _, field := range fields {
		counts := make([]domain.FacetCount, 0, len(dist[field]))
		for value, n := range dist[field] {
			counts = append(counts, domain.FacetCount{Value: value, Count: n})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].Count != counts[j].Count {
				return counts[i].Count > counts[j].Count
			}
			return counts[i].Value < counts[j].Value
		})
		facets = append(facets, domain.Facet{FieldName: field, Counts: counts})
	}
	return facets
}
