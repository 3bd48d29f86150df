package driver

import (
	"context"
	"time"
)

const observationColumns = `o.id, o.place_id, o.user_id, o.wifi_speed_download, o.wifi_speed_upload,
	o.wifi_latency, o.noise_level, o.outlet_count, o.crowdedness, o.notes, o.created_at, pr.full_name`

func observationScanTargets(r *ObservationRow) []any {
	return []any{
		&r.ID, &r.PlaceID, &r.UserID, &r.WifiSpeedDownload, &r.WifiSpeedUpload,
		&r.WifiLatency, &r.NoiseLevel, &r.OutletCount, &r.Crowdedness, &r.Notes, &r.CreatedAt, &r.AuthorName,
	}
}

func (d *DatabaseDriver) InsertObservation(ctx context.Context, in NewObservationRow) (*ObservationRow, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO observations (
			place_id, user_id, wifi_speed_download, wifi_speed_upload, wifi_latency,
			noise_level, outlet_count, crowdedness, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	row := ObservationRow{
		PlaceID:           in.PlaceID,
		UserID:            in.UserID,
		WifiSpeedDownload: in.WifiSpeedDownload,
		WifiSpeedUpload:   in.WifiSpeedUpload,
		WifiLatency:       in.WifiLatency,
		NoiseLevel:        in.NoiseLevel,
		OutletCount:       in.OutletCount,
		Crowdedness:       in.Crowdedness,
		Notes:             in.Notes,
	}
	err := d.pool.QueryRow(ctx, query,
		in.PlaceID, in.UserID, in.WifiSpeedDownload, in.WifiSpeedUpload, in.WifiLatency,
		in.NoiseLevel, in.OutletCount, in.Crowdedness, in.Notes,
	).Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return nil, &DriverError{Op: "InsertObservation", Err: err.Error(), Cause: err}
	}
	return &row, nil
}

// ListObservations returns newest first; an empty placeID lists all places.
func (d *DatabaseDriver) ListObservations(ctx context.Context, placeID string, limit, offset int) ([]ObservationRow, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + observationColumns + `
		FROM observations o
		LEFT JOIN profiles pr ON pr.id = o.user_id
		WHERE ($1 = '' OR o.place_id::text = $1)
		ORDER BY o.created_at DESC, o.id
		LIMIT $2 OFFSET $3`

	return d.queryObservations(ctx, "ListObservations", query, placeID, limit, offset)
}

func (d *DatabaseDriver) ListPlaceObservationsSince(ctx context.Context, placeID string, since time.Time) ([]ObservationRow, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + observationColumns + `
		FROM observations o
		LEFT JOIN profiles pr ON pr.id = o.user_id
		WHERE o.place_id = $1 AND o.created_at > $2
		ORDER BY o.created_at DESC, o.id`

	return d.queryObservations(ctx, "ListPlaceObservationsSince", query, placeID, since)
}

func (d *DatabaseDriver) CountPlaceObservations(ctx context.Context, placeID string) (int, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var n int
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM observations WHERE place_id = $1`, placeID).Scan(&n); err != nil {
		return 0, &DriverError{Op: "CountPlaceObservations", Err: err.Error(), Cause: err}
	}
	return n, nil
}

func (d *DatabaseDriver) queryObservations(ctx context.Context, op, query string, args ...any) ([]ObservationRow, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &DriverError{Op: op, Err: err.Error(), Cause: err}
	}
	defer rows.Close()

	var out []ObservationRow
	for rows.Next() {
		var row ObservationRow
		if err := rows.Scan(observationScanTargets(&row)...); err != nil {
			return nil, &DriverError{Op: op, Err: err.Error(), Cause: err}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &DriverError{Op: op, Err: err.Error(), Cause: err}
	}
	return out, nil
}
