package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "place-indexer"

// Metrics holds the process-wide instruments. It is nil until InitMetrics
// runs; every recording method is a no-op on a nil receiver.
var Metrics *PlaceIndexerMetrics

type PlaceIndexerMetrics struct {
	SyncedTotal    metric.Int64Counter
	SkippedTotal   metric.Int64Counter
	DeletedTotal   metric.Int64Counter
	ErrorsTotal    metric.Int64Counter
	BatchDuration  metric.Float64Histogram
	SearchDuration metric.Float64Histogram
}

// InitMetrics creates the instruments on the global meter provider. With
// OTel disabled that provider is a no-op.
func InitMetrics() error {
	meter := otel.Meter(meterName)

	syncedTotal, err := meter.Int64Counter("place_indexer_synced_total",
		metric.WithDescription("Documents written to the search index"),
	)
	if err != nil {
		return err
	}

	skippedTotal, err := meter.Int64Counter("place_indexer_skipped_total",
		metric.WithDescription("Places skipped during sync (unresolved coordinate, stale, rejected)"),
	)
	if err != nil {
		return err
	}

	deletedTotal, err := meter.Int64Counter("place_indexer_deleted_total",
		metric.WithDescription("Documents removed from the search index"),
	)
	if err != nil {
		return err
	}

	errorsTotal, err := meter.Int64Counter("place_indexer_errors_total",
		metric.WithDescription("Sync and search errors"),
	)
	if err != nil {
		return err
	}

	batchDuration, err := meter.Float64Histogram("place_indexer_batch_duration_seconds",
		metric.WithDescription("Import batch duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	searchDuration, err := meter.Float64Histogram("place_indexer_search_duration_seconds",
		metric.WithDescription("Place search duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	Metrics = &PlaceIndexerMetrics{
		SyncedTotal:    syncedTotal,
		SkippedTotal:   skippedTotal,
		DeletedTotal:   deletedTotal,
		ErrorsTotal:    errorsTotal,
		BatchDuration:  batchDuration,
		SearchDuration: searchDuration,
	}
	return nil
}

func (m *PlaceIndexerMetrics) RecordSynced(ctx context.Context, n int, mode string) {
	if m == nil || n <= 0 {
		return
	}
	m.SyncedTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("mode", mode)))
}

func (m *PlaceIndexerMetrics) RecordSkipped(ctx context.Context, n int, reason string) {
	if m == nil || n <= 0 {
		return
	}
	m.SkippedTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *PlaceIndexerMetrics) RecordDeleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.DeletedTotal.Add(ctx, 1)
}

func (m *PlaceIndexerMetrics) RecordError(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func (m *PlaceIndexerMetrics) RecordBatch(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.BatchDuration.Record(ctx, d.Seconds())
}

func (m *PlaceIndexerMetrics) RecordSearch(ctx context.Context, d time.Duration, route string) {
	if m == nil {
		return
	}
	m.SearchDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("route", route)))
}
