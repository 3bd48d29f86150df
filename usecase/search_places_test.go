package usecase

import (
	"context"
	"net/http"
	"testing"

	"place-indexer/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPlaces_Routing(t *testing.T) {
	geo := &domain.GeoRadius{Center: domain.GeoPoint{Lat: 40.73, Lng: -73.99}, RadiusMeters: 2000}

	tests := []struct {
		name      string
		filter    domain.PlaceFilter
		wantRoute domain.Route
	}{
		{name: "no filters", filter: domain.PlaceFilter{}, wantRoute: domain.RouteStore},
		{name: "text only", filter: domain.PlaceFilter{Query: "espresso"}, wantRoute: domain.RouteStore},
		{name: "wifi", filter: domain.PlaceFilter{RequireWifi: true}, wantRoute: domain.RouteIndex},
		{name: "category", filter: domain.PlaceFilter{Categories: []string{"library"}}, wantRoute: domain.RouteIndex},
		{name: "score", filter: domain.PlaceFilter{MinScore: 0.5}, wantRoute: domain.RouteIndex},
		{name: "geo", filter: domain.PlaceFilter{Geo: geo}, wantRoute: domain.RouteIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakePlaceRepo(newTestPlace("p-1", placeOpts{located: true, wifi: domain.True}))
			index := newFakeSearchEngine()
			u := NewSearchPlacesUsecase(repo, index, domain.AmenityFromRecordOrObservations)

			result, err := u.Execute(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRoute, result.Source)

			if tt.wantRoute == domain.RouteStore {
				assert.Zero(t, index.searchCalls, "store route never calls the index")
				assert.Equal(t, 1, repo.listCalls)
			} else {
				assert.Equal(t, 1, index.searchCalls)
				assert.Zero(t, repo.listCalls+repo.nearbyCalls)
			}
		})
	}
}

func TestSearchPlaces_StoreListing(t *testing.T) {
	repo := newFakePlaceRepo(manyPlaces(5, 0)...)
	u := NewSearchPlacesUsecase(repo, newFakeSearchEngine(), "")

	result, err := u.Execute(context.Background(), domain.PlaceFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Found)
	assert.Equal(t, 3, result.TotalPages)
	require.Len(t, result.Places, 2)
	assert.Equal(t, "p-002", result.Places[0].ID)
	assert.Nil(t, result.Places[0].DistanceMeters)
	assert.NotNil(t, result.Facets)
}

func TestSearchPlaces_Defaults(t *testing.T) {
	repo := newFakePlaceRepo()
	u := NewSearchPlacesUsecase(repo, newFakeSearchEngine(), "")

	result, err := u.Execute(context.Background(), domain.PlaceFilter{PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, domain.MaxPerPage, result.PerPage)
}

func TestSearchPlaces_IndexResultsNormalized(t *testing.T) {
	index := newFakeSearchEngine()
	wifi := true
	score := 0.8
	index.docs["p-1"] = domain.IndexDocument{
		ID:               "p-1",
		Name:             "Blue Bottle",
		Categories:       []string{"cafe"},
		Address:          "1 Main St",
		WorkabilityScore: &score,
		WifiAvailable:    &wifi,
		Geo:              domain.GeoPoint{Lat: 40.73, Lng: -73.99},
	}
	index.facets = map[string]map[string]int64{
		"wifi_available": {"true": 1},
		"categories":     {"library": 2, "cafe": 2, "coworking": 5},
	}
	u := NewSearchPlacesUsecase(newFakePlaceRepo(), index, "")

	result, err := u.Execute(context.Background(), domain.PlaceFilter{RequireWifi: true})
	require.NoError(t, err)
	require.Len(t, result.Places, 1)

	p := result.Places[0]
	assert.Equal(t, domain.True, p.WifiAvailable)
	assert.Equal(t, domain.Unknown, p.OutletsAvailable, "missing flag stays unknown")
	require.NotNil(t, p.Address)
	assert.Equal(t, "1 Main St", *p.Address)
	assert.Equal(t, 40.73, *p.PlaceLat)
	assert.Equal(t, int64(3), result.SearchTimeMs)

	require.Len(t, result.Facets, 2)
	assert.Equal(t, "categories", result.Facets[0].FieldName)
	assert.Equal(t, []domain.FacetCount{
		{Value: "coworking", Count: 5},
		{Value: "cafe", Count: 2},
		{Value: "library", Count: 2},
	}, result.Facets[0].Counts)
}

func TestSearchPlaces_Errors(t *testing.T) {
	t.Run("invalid filter is a 400", func(t *testing.T) {
		u := NewSearchPlacesUsecase(newFakePlaceRepo(), newFakeSearchEngine(), "")

		_, err := u.Execute(context.Background(), domain.PlaceFilter{MinScore: 3})
		var se *domain.SearchError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadRequest, se.StatusCode)
		assert.ErrorIs(t, err, domain.ErrInvalidFilter)
	})

	t.Run("page past the offset limit is a 400", func(t *testing.T) {
		repo := newFakePlaceRepo()
		u := NewSearchPlacesUsecase(repo, newFakeSearchEngine(), "")

		_, err := u.ExecuteStore(context.Background(), domain.PlaceFilter{Page: 1<<62 + 7, PerPage: 50})
		var se *domain.SearchError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadRequest, se.StatusCode)
		assert.Zero(t, repo.listCalls)
	})

	t.Run("engine status passes through", func(t *testing.T) {
		index := newFakeSearchEngine()
		index.searchErr = &domain.SearchEngineError{Op: "Search", Err: "unavailable", StatusCode: http.StatusServiceUnavailable}
		u := NewSearchPlacesUsecase(newFakePlaceRepo(), index, "")

		_, err := u.Execute(context.Background(), domain.PlaceFilter{RequireOutlets: true})
		var se *domain.SearchError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	})

	t.Run("transport failure without status is a 500", func(t *testing.T) {
		repo := newFakePlaceRepo()
		repo.err = &domain.RepositoryError{Op: "ListPlaces", Err: "connection reset"}
		u := NewSearchPlacesUsecase(repo, newFakeSearchEngine(), "")

		_, err := u.Execute(context.Background(), domain.PlaceFilter{})
		var se *domain.SearchError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	})
}

// A place whose record says no outlets but which has an observation with
// outlets is found by the store radius query and not by the index.
func TestSearchPlaces_AmenityEvidenceDiffersByPath(t *testing.T) {
	place := newTestPlace("p-9", placeOpts{located: true, outlets: domain.False})
	repo := newFakePlaceRepo(place)
	repo.evidence["p-9"] = true

	index := newFakeSearchEngine()
	doc, err := domain.ToIndexDocument(place)
	require.NoError(t, err)
	index.docs["p-9"] = doc

	u := NewSearchPlacesUsecase(repo, index, domain.AmenityFromRecordOrObservations)
	filter := domain.PlaceFilter{
		RequireOutlets: true,
		Geo:            &domain.GeoRadius{Center: domain.GeoPoint{Lat: 40.73, Lng: -73.99}, RadiusMeters: 2000},
	}

	fromStore, err := u.ExecuteStore(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, fromStore.Places, 1)
	assert.Equal(t, "p-9", fromStore.Places[0].ID)
	assert.Equal(t, domain.False, fromStore.Places[0].OutletsAvailable)
	require.NotNil(t, fromStore.Places[0].DistanceMeters)
	assert.Equal(t, domain.AmenityFromRecordOrObservations, repo.lastPolicy)

	fromIndex, err := u.Execute(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteIndex, fromIndex.Source)
	assert.Empty(t, fromIndex.Places)

	recordOnly := NewSearchPlacesUsecase(repo, index, domain.AmenityFromRecord)
	strict, err := recordOnly.ExecuteStore(context.Background(), filter)
	require.NoError(t, err)
	assert.Empty(t, strict.Places)
}
