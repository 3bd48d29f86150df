package rest

import (
	"errors"
	"net/http"

	"place-indexer/domain"
	"place-indexer/logger"

	"github.com/labstack/echo/v4"
)

// handleAdminSync runs a full rebuild inside the request. A run that fails
// after some batches were imported returns the partial summary with 500.
func (h *Handler) handleAdminSync(c echo.Context) error {
	ctx := logger.WithOperation(c.Request().Context(), "admin_full_sync")

	result, err := h.sync.FullSync(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "Full sync already in progress"})
		}
		logger.FromContext(ctx).Error("full sync failed", "error", err)
		body := map[string]any{"error": "Full sync failed"}
		if result != nil {
			body["result"] = result
		}
		if h.devMode {
			body["details"] = err.Error()
		}
		return c.JSON(http.StatusInternalServerError, body)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"result":      result,
		"duration_ms": result.Duration.Milliseconds(),
	})
}
