package rest

import (
	"errors"
	"net/http"
	"strconv"

	"place-indexer/domain"
	authmw "place-indexer/internal/auth/middleware"
	"place-indexer/logger"

	"github.com/labstack/echo/v4"
)

type createObservationRequest struct {
	PlaceID           string   `json:"placeId"`
	WifiSpeedDownload *float64 `json:"wifiSpeedDownload"`
	WifiSpeedUpload   *float64 `json:"wifiSpeedUpload"`
	WifiLatency       *float64 `json:"wifiLatency"`
	NoiseLevel        *float64 `json:"noiseLevel"`
	OutletCount       *int     `json:"outletCount"`
	Crowdedness       *int     `json:"crowdedness"`
	Notes             string   `json:"notes"`
}

// toInput treats zero readings as not reported.
func (r createObservationRequest) toInput() domain.ObservationInput {
	return domain.ObservationInput{
		PlaceID:           r.PlaceID,
		WifiSpeedDownload: nonZero(r.WifiSpeedDownload),
		WifiSpeedUpload:   nonZero(r.WifiSpeedUpload),
		WifiLatency:       nonZero(r.WifiLatency),
		NoiseLevel:        nonZero(r.NoiseLevel),
		OutletCount:       nonZero(r.OutletCount),
		Crowdedness:       nonZero(r.Crowdedness),
		Notes:             r.Notes,
	}
}

func nonZero[T int | float64](v *T) *T {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func (h *Handler) handleCreateObservation(c echo.Context) error {
	var req createObservationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request")
	}

	in := req.toInput()
	if user, ok := authmw.UserFromContext(c.Request().Context()); ok {
		in.UserID = user.UserID.String()
	}

	ctx := logger.WithPlaceID(c.Request().Context(), in.PlaceID)
	obs, err := h.observations.Create(ctx, in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPlaceNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Place not found"})
		case errors.Is(err, domain.ErrInvalidObservation):
			return badRequest(c, err.Error())
		default:
			return h.errorResponse(c, err, "Failed to create observation", "create_observation")
		}
	}

	logger.FromContext(ctx).Info("observation created", "observation_id", obs.ID)
	return c.JSON(http.StatusCreated, map[string]any{"observation": obs})
}

// handleListObservations ignores unparsable limit and offset values.
func (h *Handler) handleListObservations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	obs, err := h.observations.List(c.Request().Context(), c.QueryParam("placeId"), limit, offset)
	if err != nil {
		return h.errorResponse(c, err, "Failed to fetch observations", "list_observations")
	}
	if obs == nil {
		obs = []domain.Observation{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"observations": obs,
		"total":        len(obs),
	})
}
