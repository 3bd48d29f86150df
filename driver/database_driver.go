package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxIface is the subset of *pgxpool.Pool the driver uses. pgxmock pools
// satisfy it as well.
type PgxIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

type DatabaseDriver struct {
	pool         PgxIface
	queryTimeout time.Duration
	listTimeout  time.Duration
}

// NewDatabaseDriver bounds each query by queryTimeout and full-table reads
// by listTimeout. A non-positive listTimeout falls back to queryTimeout.
func NewDatabaseDriver(pool PgxIface, queryTimeout, listTimeout time.Duration) *DatabaseDriver {
	if listTimeout <= 0 {
		listTimeout = queryTimeout
	}
	return &DatabaseDriver{pool: pool, queryTimeout: queryTimeout, listTimeout: listTimeout}
}

// OpenPool parses dsn, connects and pings.
func OpenPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &DriverError{Op: "OpenPool", Err: "failed to parse database URL: " + err.Error(), Cause: err}
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &DriverError{Op: "OpenPool", Err: "failed to create database pool: " + err.Error(), Cause: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &DriverError{Op: "OpenPool", Err: "failed to ping database: " + err.Error(), Cause: err}
	}
	return pool, nil
}

func (d *DatabaseDriver) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

func (d *DatabaseDriver) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *DatabaseDriver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return boundedContext(ctx, d.queryTimeout)
}

func (d *DatabaseDriver) withListTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return boundedContext(ctx, d.listTimeout)
}

func boundedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

const placeColumns = `p.id, p.osm_id, p.name, p.categories, p.address, p.website, p.phone,
	p.opening_hours, p.wifi_available, p.outlets_available, p.workability_score,
	p.created_at, p.updated_at,
	ST_Y(p.location::geometry) AS lat, ST_X(p.location::geometry) AS lng`

func placeScanTargets(r *PlaceRow) []any {
	return []any{
		&r.ID, &r.OSMID, &r.Name, &r.Categories, &r.Address, &r.Website, &r.Phone,
		&r.OpeningHours, &r.WifiAvailable, &r.OutletsAvailable, &r.WorkabilityScore,
		&r.CreatedAt, &r.UpdatedAt, &r.Lat, &r.Lng,
	}
}

// GetPlaceByID returns (nil, nil) when no row matches.
func (d *DatabaseDriver) GetPlaceByID(ctx context.Context, id string) (*PlaceRow, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + placeColumns + ` FROM places p WHERE p.id = $1`

	var row PlaceRow
	if err := d.pool.QueryRow(ctx, query, id).Scan(placeScanTargets(&row)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &DriverError{Op: "GetPlaceByID", Err: err.Error(), Cause: err}
	}
	return &row, nil
}

// ListAllPlaces reads every place, including those without a location.
func (d *DatabaseDriver) ListAllPlaces(ctx context.Context) ([]PlaceRow, error) {
	ctx, cancel := d.withListTimeout(ctx)
	defer cancel()

	query := `SELECT ` + placeColumns + ` FROM places p ORDER BY p.id`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, &DriverError{Op: "ListAllPlaces", Err: err.Error(), Cause: err}
	}
	defer rows.Close()

	var out []PlaceRow
	for rows.Next() {
		var row PlaceRow
		if err := rows.Scan(placeScanTargets(&row)...); err != nil {
			return nil, &DriverError{Op: "ListAllPlaces", Err: err.Error(), Cause: err}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &DriverError{Op: "ListAllPlaces", Err: err.Error(), Cause: err}
	}
	return out, nil
}

// ListPlaces runs a filtered listing. The count query and the page query
// share the rendered WHERE clause.
func (d *DatabaseDriver) ListPlaces(ctx context.Context, f SQLFilter, orderBy string, limit, offset int) ([]PlaceRow, int64, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var total int64
	countQuery := `SELECT COUNT(*) FROM places p WHERE ` + f.Where
	if err := d.pool.QueryRow(ctx, countQuery, f.Args...).Scan(&total); err != nil {
		return nil, 0, &DriverError{Op: "ListPlaces", Err: "count: " + err.Error(), Cause: err}
	}
	if total == 0 {
		return nil, 0, nil
	}

	args := append(append([]any{}, f.Args...), limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM places p WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		placeColumns, f.Where, orderBy, len(f.Args)+1, len(f.Args)+2)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, &DriverError{Op: "ListPlaces", Err: err.Error(), Cause: err}
	}
	defer rows.Close()

	var out []PlaceRow
	for rows.Next() {
		var row PlaceRow
		if err := rows.Scan(placeScanTargets(&row)...); err != nil {
			return nil, 0, &DriverError{Op: "ListPlaces", Err: err.Error(), Cause: err}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &DriverError{Op: "ListPlaces", Err: err.Error(), Cause: err}
	}
	return out, total, nil
}

// NearbyPlaces runs a radius query ordered by distance. f must have been
// rendered from a filter with a geo radius.
func (d *DatabaseDriver) NearbyPlaces(ctx context.Context, f SQLFilter, limit, offset int) ([]NearbyPlaceRow, int64, error) {
	if f.DistanceExpr == "" {
		return nil, 0, &DriverError{Op: "NearbyPlaces", Err: "filter has no geo center"}
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var total int64
	countQuery := `SELECT COUNT(*) FROM places p WHERE ` + f.Where
	if err := d.pool.QueryRow(ctx, countQuery, f.Args...).Scan(&total); err != nil {
		return nil, 0, &DriverError{Op: "NearbyPlaces", Err: "count: " + err.Error(), Cause: err}
	}
	if total == 0 {
		return nil, 0, nil
	}

	args := append(append([]any{}, f.Args...), limit, offset)
	query := fmt.Sprintf(`SELECT %s, %s AS distance_meters FROM places p WHERE %s
		ORDER BY distance_meters ASC, p.id LIMIT $%d OFFSET $%d`,
		placeColumns, f.DistanceExpr, f.Where, len(f.Args)+1, len(f.Args)+2)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, &DriverError{Op: "NearbyPlaces", Err: err.Error(), Cause: err}
	}
	defer rows.Close()

	var out []NearbyPlaceRow
	for rows.Next() {
		var row NearbyPlaceRow
		targets := append(placeScanTargets(&row.PlaceRow), &row.DistanceMeters)
		if err := rows.Scan(targets...); err != nil {
			return nil, 0, &DriverError{Op: "NearbyPlaces", Err: err.Error(), Cause: err}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &DriverError{Op: "NearbyPlaces", Err: err.Error(), Cause: err}
	}
	return out, total, nil
}

func (d *DatabaseDriver) PlaceExists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM places WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, &DriverError{Op: "PlaceExists", Err: err.Error(), Cause: err}
	}
	return exists, nil
}
