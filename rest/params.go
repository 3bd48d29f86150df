package rest

import (
	"fmt"
	"strconv"
	"strings"

	"place-indexer/config"
	"place-indexer/domain"
	"place-indexer/utils"

	"github.com/labstack/echo/v4"
)

// radiusUnit converts the radius query parameter to meters.
type radiusUnit struct {
	toMeters float64
	fallback float64
}

var (
	radiusKilometers = radiusUnit{toMeters: 1000, fallback: config.DefaultSearchRadiusKm}
	radiusMeters     = radiusUnit{toMeters: 1, fallback: config.DefaultNearbyRadiusMeters}
)

// parsePlaceFilter reads the shared place query parameters. A geo radius
// is only set when both lat and lng are present.
func parsePlaceFilter(c echo.Context, unit radiusUnit) (domain.PlaceFilter, error) {
	query, err := utils.SanitizeQuery(c.QueryParam("q"))
	if err != nil {
		return domain.PlaceFilter{}, err
	}

	filter := domain.PlaceFilter{
		Query:          query,
		RequireWifi:    c.QueryParam("wifi") == "true",
		RequireOutlets: c.QueryParam("outlets") == "true",
		Highlight:      c.QueryParam("highlight") == "true",
	}

	if raw := c.QueryParam("categories"); raw != "" {
		filter.Categories = strings.Split(raw, ",")
	}

	if filter.MinScore, err = floatParam(c, "minScore", 0); err != nil {
		return filter, err
	}
	if filter.Page, err = intParam(c, "page", domain.DefaultPage); err != nil {
		return filter, err
	}
	if filter.PerPage, err = intParam(c, "per_page", domain.DefaultPerPage); err != nil {
		return filter, err
	}
	if filter.Sort, err = domain.ParseSort(c.QueryParam("sort_by")); err != nil {
		return filter, err
	}

	lat, lng := c.QueryParam("lat"), c.QueryParam("lng")
	if lat != "" && lng != "" {
		center := domain.GeoPoint{}
		if center.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
			return filter, fmt.Errorf("invalid lat %q", lat)
		}
		if center.Lng, err = strconv.ParseFloat(lng, 64); err != nil {
			return filter, fmt.Errorf("invalid lng %q", lng)
		}
		radius, err := floatParam(c, "radius", unit.fallback)
		if err != nil {
			return filter, err
		}
		filter.Geo = &domain.GeoRadius{Center: center, RadiusMeters: radius * unit.toMeters}
	}

	return filter, nil
}

func intParam(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func floatParam(c echo.Context, name string, fallback float64) (float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}
