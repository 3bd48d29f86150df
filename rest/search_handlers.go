package rest

import (
	"errors"
	"net/http"

	"place-indexer/domain"
	"place-indexer/logger"

	"github.com/labstack/echo/v4"
)

func (h *Handler) handleSearchPlaces(c echo.Context) error {
	filter, err := parsePlaceFilter(c, radiusKilometers)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := logger.WithOperation(c.Request().Context(), "search_places")
	result, err := h.search.Execute(ctx, filter)
	if err != nil {
		return h.searchErrorResponse(c, err)
	}

	logger.FromContext(ctx).Info("search ok",
		"route", string(result.Source),
		"found", result.Found,
		"count", len(result.Places))
	return c.JSON(http.StatusOK, result)
}

// handleListPlaces always reads the store. With lat and lng the radius is
// in meters and results are ordered by distance.
func (h *Handler) handleListPlaces(c echo.Context) error {
	filter, err := parsePlaceFilter(c, radiusMeters)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := logger.WithOperation(c.Request().Context(), "list_places")
	result, err := h.search.ExecuteStore(ctx, filter)
	if err != nil {
		return h.searchErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"places": result.Places,
		"total":  result.Found,
	})
}

func (h *Handler) handlePlaceDetails(c echo.Context) error {
	id := c.Param("id")
	ctx := logger.WithPlaceID(c.Request().Context(), id)

	details, err := h.details.Execute(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPlaceNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Place not found"})
		}
		return h.errorResponse(c, err, "Failed to fetch place details", "place_details")
	}
	return c.JSON(http.StatusOK, details)
}

// searchErrorResponse keeps the engine's message and status, unlike
// errorResponse which uses a fixed message.
func (h *Handler) searchErrorResponse(c echo.Context, err error) error {
	message := "Search failed"
	var se *domain.SearchError
	if errors.As(err, &se) && se.Message != "" {
		message = se.Message
	}
	return h.errorResponse(c, err, message, "search")
}

func (h *Handler) handleListCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"categories": domain.KnownCategories})
}
