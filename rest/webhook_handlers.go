package rest

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"place-indexer/domain"
	"place-indexer/logger"

	"github.com/labstack/echo/v4"
)

// webhookPayload is the database webhook body. record holds the new row
// and old_record the previous one on UPDATE and DELETE.
type webhookPayload struct {
	Table     string         `json:"table"`
	Type      string         `json:"type"`
	Record    map[string]any `json:"record"`
	OldRecord map[string]any `json:"old_record"`
}

func (p webhookPayload) placeID() string {
	if id := recordID(p.Record); id != "" {
		return id
	}
	return recordID(p.OldRecord)
}

func recordID(record map[string]any) string {
	switch v := record["id"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func (h *Handler) handlePlacesSync(c echo.Context) error {
	var payload webhookPayload
	if err := c.Bind(&payload); err != nil {
		return badRequest(c, "Invalid webhook payload")
	}

	ctx := logger.WithOperation(c.Request().Context(), "webhook_sync")
	log := logger.FromContext(ctx)
	log.Info("webhook received", "change_type", payload.Type, "table", payload.Table)

	n := domain.ChangeNotification{
		Table:   payload.Table,
		Type:    domain.ChangeType(payload.Type),
		PlaceID: payload.placeID(),
	}

	result, err := h.ingest.Execute(ctx, n)
	switch {
	case err == nil:
		log.Info("webhook processed", "place_id", result.PlaceID, "action", string(result.Action))
		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"action":  result.Action,
			"placeId": n.PlaceID,
		})
	case errors.Is(err, domain.ErrIgnoredEvent):
		return c.JSON(http.StatusOK, map[string]string{"message": "Not a places table event"})
	case errors.Is(err, domain.ErrMalformedEvent):
		log.Warn("webhook payload without place id")
		return badRequest(c, "No place ID found")
	case errors.Is(err, domain.ErrUnknownChangeType):
		return c.JSON(http.StatusOK, map[string]string{"message": "Unknown event type"})
	default:
		log.Error("webhook processing failed", "place_id", n.PlaceID, "error", err)
		body := map[string]any{"error": "Webhook processing failed"}
		if h.devMode {
			body["details"] = err.Error()
		}
		return c.JSON(http.StatusInternalServerError, body)
	}
}

func (h *Handler) handlePlacesSyncHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"endpoint":  "places-sync",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})
}
