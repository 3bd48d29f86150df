package gateway

import (
	"context"
	"fmt"

	"place-indexer/domain"
	"place-indexer/driver"
	"place-indexer/logger"
	"place-indexer/port"

	"github.com/google/uuid"
)

type PlaceDriver interface {
	GetPlaceByID(ctx context.Context, id string) (*driver.PlaceRow, error)
	ListAllPlaces(ctx context.Context) ([]driver.PlaceRow, error)
	ListPlaces(ctx context.Context, f driver.SQLFilter, orderBy string, limit, offset int) ([]driver.PlaceRow, int64, error)
	NearbyPlaces(ctx context.Context, f driver.SQLFilter, limit, offset int) ([]driver.NearbyPlaceRow, int64, error)
	PlaceExists(ctx context.Context, id string) (bool, error)
}

type PlaceRepositoryGateway struct {
	driver PlaceDriver
}

var _ port.PlaceRepository = (*PlaceRepositoryGateway)(nil)

func NewPlaceRepositoryGateway(driver PlaceDriver) *PlaceRepositoryGateway {
	return &PlaceRepositoryGateway{driver: driver}
}

// validPlaceID reports whether id can address a row. Place ids are UUIDs,
// so anything else cannot exist and is treated as not found.
func validPlaceID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (g *PlaceRepositoryGateway) GetPlaceByID(ctx context.Context, id string) (*domain.Place, error) {
	if !validPlaceID(id) {
		return nil, domain.ErrPlaceNotFound
	}

	row, err := g.driver.GetPlaceByID(ctx, id)
	if err != nil {
		return nil, repositoryError("GetPlaceByID", err)
	}
	if row == nil {
		return nil, domain.ErrPlaceNotFound
	}

	place, err := placeFromRow(*row)
	if err != nil {
		return nil, &domain.RepositoryError{
			Op:    "GetPlaceByID",
			Err:   "failed to convert place to domain: id=" + row.ID + ", " + err.Error(),
			Cause: err,
		}
	}
	return place, nil
}

func (g *PlaceRepositoryGateway) ListIndexablePlaces(ctx context.Context) ([]*domain.Place, []string, error) {
	rows, err := g.driver.ListAllPlaces(ctx)
	if err != nil {
		return nil, nil, repositoryError("ListIndexablePlaces", err)
	}

	places := make([]*domain.Place, 0, len(rows))
	var rejected []string
	for _, row := range rows {
		place, err := placeFromRow(row)
		if err != nil {
			logger.Logger.WarnContext(ctx, "rejecting unreadable place row",
				"place_id", row.ID,
				"error", err)
			rejected = append(rejected, row.ID)
			continue
		}
		places = append(places, place)
	}
	return places, rejected, nil
}

func (g *PlaceRepositoryGateway) ListPlaces(ctx context.Context, filter domain.PlaceFilter) ([]*domain.Place, int64, error) {
	sqlFilter := driver.RenderSQLFilter(filter, domain.AmenityFromRecord)

	rows, total, err := g.driver.ListPlaces(ctx, sqlFilter, driver.RenderSQLOrder(filter), filter.PerPage, filter.Offset())
	if err != nil {
		return nil, 0, repositoryError("ListPlaces", err)
	}

	places := make([]*domain.Place, 0, len(rows))
	for _, row := range rows {
		place, err := placeFromRow(row)
		if err != nil {
			return nil, 0, &domain.RepositoryError{
				Op:    "ListPlaces",
				Err:   "failed to convert place to domain: id=" + row.ID + ", " + err.Error(),
				Cause: err,
			}
		}
		places = append(places, place)
	}
	return places, total, nil
}

func (g *PlaceRepositoryGateway) NearbyPlaces(ctx context.Context, filter domain.PlaceFilter, policy domain.AmenityPolicy) ([]port.NearbyPlace, int64, error) {
	if filter.Geo == nil {
		return nil, 0, &domain.RepositoryError{
			Op:    "NearbyPlaces",
			Err:   "a geo radius is required",
			Cause: domain.ErrInvalidFilter,
		}
	}

	rows, total, err := g.driver.NearbyPlaces(ctx, driver.RenderSQLFilter(filter, policy), filter.PerPage, filter.Offset())
	if err != nil {
		return nil, 0, repositoryError("NearbyPlaces", err)
	}

	out := make([]port.NearbyPlace, 0, len(rows))
	for _, row := range rows {
		place, err := placeFromRow(row.PlaceRow)
		if err != nil {
			return nil, 0, &domain.RepositoryError{
				Op:    "NearbyPlaces",
				Err:   "failed to convert place to domain: id=" + row.ID + ", " + err.Error(),
				Cause: err,
			}
		}
		out = append(out, port.NearbyPlace{Place: place, DistanceMeters: row.DistanceMeters})
	}
	return out, total, nil
}

func (g *PlaceRepositoryGateway) PlaceExists(ctx context.Context, id string) (bool, error) {
	if !validPlaceID(id) {
		return false, nil
	}
	ok, err := g.driver.PlaceExists(ctx, id)
	if err != nil {
		return false, repositoryError("PlaceExists", err)
	}
	return ok, nil
}

func placeFromRow(r driver.PlaceRow) (*domain.Place, error) {
	attrs := domain.PlaceAttrs{
		ID:               r.ID,
		OSMID:            deref(r.OSMID),
		Name:             r.Name,
		Categories:       r.Categories,
		Address:          deref(r.Address),
		Website:          deref(r.Website),
		Phone:            deref(r.Phone),
		OpeningHours:     deref(r.OpeningHours),
		WifiAvailable:    domain.FromNullable(r.WifiAvailable),
		OutletsAvailable: domain.FromNullable(r.OutletsAvailable),
		WorkabilityScore: r.WorkabilityScore,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.Lat != nil && r.Lng != nil {
		attrs.Location = &domain.GeoPoint{Lat: *r.Lat, Lng: *r.Lng}
	}

	place, err := domain.NewPlace(attrs)
	if err != nil {
		return nil, fmt.Errorf("invalid place row: %w", err)
	}
	return place, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
