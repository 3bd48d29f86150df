package consumer

import (
	"context"
	"errors"
	"log/slog"

	"place-indexer/domain"
	"place-indexer/logger"
	"place-indexer/utils/otel"
)

// ChangeIngestor applies a change notification to the index.
type ChangeIngestor interface {
	Execute(ctx context.Context, n domain.ChangeNotification) (*domain.SyncResult, error)
}

// ChangeEventHandler feeds stream events into the incremental sync.
// Events that can never succeed (other tables, no id, unknown type) are
// acknowledged and logged; transport failures are returned so the message
// stays pending.
type ChangeEventHandler struct {
	ingest ChangeIngestor
	logger *slog.Logger
}

func NewChangeEventHandler(ingest ChangeIngestor, logger *slog.Logger) *ChangeEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeEventHandler{ingest: ingest, logger: logger}
}

func (h *ChangeEventHandler) HandleEvent(ctx context.Context, event Event) error {
	if event.EventID != "" {
		ctx = logger.WithEventID(ctx, event.EventID)
	}

	n := domain.ChangeNotification{
		Table:   event.Table,
		Type:    domain.ChangeType(event.EventType),
		PlaceID: event.PlaceID,
	}
	if n.Table == "" {
		n.Table = domain.PlacesTable
	}

	result, err := h.ingest.Execute(ctx, n)
	switch {
	case err == nil:
		h.logger.InfoContext(ctx, "change event applied",
			"message_id", event.MessageID,
			"place_id", result.PlaceID,
			"action", string(result.Action),
		)
		return nil
	case errors.Is(err, domain.ErrIgnoredEvent):
		h.logger.DebugContext(ctx, "change event ignored",
			"message_id", event.MessageID,
			"table", event.Table,
		)
		return nil
	case errors.Is(err, domain.ErrMalformedEvent), errors.Is(err, domain.ErrUnknownChangeType):
		h.logger.WarnContext(ctx, "dropping unprocessable change event",
			"message_id", event.MessageID,
			"event_type", event.EventType,
			"place_id", event.PlaceID,
			"error", err,
		)
		return nil
	default:
		otel.Metrics.RecordError(ctx, "consume_change")
		return err
	}
}
