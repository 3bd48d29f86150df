package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"place-indexer/domain"
	authmw "place-indexer/internal/auth/middleware"
	"place-indexer/logger"

	"github.com/labstack/echo/v4"
)

// PlaceSearcher serves place reads. Execute routes between the store and
// the index; ExecuteStore always reads the store.
type PlaceSearcher interface {
	Execute(ctx context.Context, filter domain.PlaceFilter) (*domain.PlaceSearchResult, error)
	ExecuteStore(ctx context.Context, filter domain.PlaceFilter) (*domain.PlaceSearchResult, error)
}

type ChangeIngestor interface {
	Execute(ctx context.Context, n domain.ChangeNotification) (*domain.SyncResult, error)
}

type PlaceDetailer interface {
	Execute(ctx context.Context, id string) (*domain.PlaceDetails, error)
}

type ObservationService interface {
	Create(ctx context.Context, in domain.ObservationInput) (*domain.Observation, error)
	List(ctx context.Context, placeID string, limit, offset int) ([]domain.Observation, error)
}

type FullSyncer interface {
	FullSync(ctx context.Context) (*domain.FullSyncResult, error)
}

// Handler contains all HTTP handlers for the place indexer
type Handler struct {
	search       PlaceSearcher
	ingest       ChangeIngestor
	details      PlaceDetailer
	observations ObservationService
	sync         FullSyncer
	devMode      bool
	now          func() time.Time
}

// NewHandler creates a new Handler. devMode adds error details to 5xx
// responses.
func NewHandler(search PlaceSearcher, ingest ChangeIngestor, details PlaceDetailer, observations ObservationService, sync FullSyncer, devMode bool) *Handler {
	return &Handler{
		search:       search,
		ingest:       ingest,
		details:      details,
		observations: observations,
		sync:         sync,
		devMode:      devMode,
		now:          time.Now,
	}
}

// RegisterRoutes mounts every endpoint on e. readLimit wraps the public
// read endpoints and may be nil.
func (h *Handler) RegisterRoutes(e *echo.Echo, auth *authmw.AuthMiddleware, readLimit echo.MiddlewareFunc) {
	reads := []echo.MiddlewareFunc{}
	if readLimit != nil {
		reads = append(reads, readLimit)
	}

	e.GET("/health", h.health)

	hooks := e.Group("/webhooks")
	hooks.POST("/places-sync", h.handlePlacesSync, auth.WebhookAuth())
	hooks.GET("/places-sync", h.handlePlacesSyncHealth)

	v1 := e.Group("/v1")
	v1.GET("/search/places", h.handleSearchPlaces, reads...)
	v1.GET("/places", h.handleListPlaces, reads...)
	v1.GET("/places/:id", h.handlePlaceDetails, reads...)
	v1.GET("/categories", h.handleListCategories)
	v1.GET("/observations", h.handleListObservations, reads...)
	v1.POST("/observations", h.handleCreateObservation, auth.OptionalAuth())
	v1.POST("/admin/sync", h.handleAdminSync, auth.RequireServiceAuth())
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// errorStatus maps a domain error to its HTTP status.
func errorStatus(err error) int {
	var se *domain.SearchError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	switch {
	case errors.Is(err, domain.ErrPlaceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidObservation),
		errors.Is(err, domain.ErrInvalidFilter),
		errors.Is(err, domain.ErrMalformedEvent):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse logs err and writes {error, details?}. details is only
// filled for 5xx responses in dev mode.
func (h *Handler) errorResponse(c echo.Context, err error, message, operation string) error {
	status := errorStatus(err)
	log := logger.FromContext(c.Request().Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "operation", operation, "status", status, "error", err)
	} else {
		log.Warn("request rejected", "operation", operation, "status", status, "error", err)
	}

	body := map[string]any{"error": message}
	if h.devMode && status >= http.StatusInternalServerError {
		body["details"] = err.Error()
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}
