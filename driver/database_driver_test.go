package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"place-indexer/domain"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placeColumnNames = []string{
	"id", "osm_id", "name", "categories", "address", "website", "phone",
	"opening_hours", "wifi_available", "outlets_available", "workability_score",
	"created_at", "updated_at", "lat", "lng",
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }
func floatPtr(f float64) *float64 { return &f }

func placeValues(id, name string, outlets *bool, lat, lng *float64) []any {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return []any{
		id, nil, name, []string{"cafe"}, strPtr("1 Test St"), nil, nil,
		nil, boolPtr(true), outlets, floatPtr(0.7),
		ts, ts, lat, lng,
	}
}

func TestDatabaseDriver_GetPlaceByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := NewDatabaseDriver(mock, time.Second, time.Minute)

	mock.ExpectQuery("SELECT p.id").
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows(placeColumnNames).
			AddRow(placeValues("p-1", "Blue Bottle", nil, floatPtr(40.73), floatPtr(-73.99))...))

	row, err := d.GetPlaceByID(context.Background(), "p-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Blue Bottle", row.Name)
	assert.Nil(t, row.OutletsAvailable)
	require.NotNil(t, row.Lat)
	assert.Equal(t, 40.73, *row.Lat)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseDriver_GetPlaceByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := NewDatabaseDriver(mock, time.Second, time.Minute)

	mock.ExpectQuery("SELECT p.id").
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)

	row, err := d.GetPlaceByID(context.Background(), "gone")
	require.NoError(t, err)
	assert.Nil(t, row)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseDriver_GetPlaceByID_TransportError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := NewDatabaseDriver(mock, time.Second, time.Minute)
	mock.ExpectQuery("SELECT p.id").WithArgs("p-1").WillReturnError(errors.New("connection reset"))

	_, err = d.GetPlaceByID(context.Background(), "p-1")
	var de *DriverError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "GetPlaceByID", de.Op)
}

func TestDatabaseDriver_ListAllPlaces_KeepsUnlocatedRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := NewDatabaseDriver(mock, time.Second, time.Minute)

	mock.ExpectQuery("SELECT p.id").
		WillReturnRows(pgxmock.NewRows(placeColumnNames).
			AddRow(placeValues("p-1", "A", nil, floatPtr(1), floatPtr(2))...).
			AddRow(placeValues("p-2", "B", nil, nil, nil)...))

	rows, err := d.ListAllPlaces(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[1].Lat)

	require.NoError(t, mock.ExpectationsWereMet())
}

// deadlineRecorder captures the context deadline of each Query call.
type deadlineRecorder struct {
	pgxmock.PgxPoolIface
	deadline    time.Time
	hasDeadline bool
}

func (r *deadlineRecorder) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	r.deadline, r.hasDeadline = ctx.Deadline()
	return r.PgxPoolIface.Query(ctx, sql, args...)
}

func TestDatabaseDriver_ListAllPlaces_BoundedByListTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := &deadlineRecorder{PgxPoolIface: mock}
	d := NewDatabaseDriver(rec, time.Second, time.Minute)

	mock.ExpectQuery("SELECT p.id").
		WillReturnRows(pgxmock.NewRows(placeColumnNames))

	start := time.Now()
	_, err = d.ListAllPlaces(context.Background())
	require.NoError(t, err)

	require.True(t, rec.hasDeadline)
	assert.WithinDuration(t, start.Add(time.Minute), rec.deadline, 5*time.Second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseDriver_ListTimeoutDefaultsToQueryTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := &deadlineRecorder{PgxPoolIface: mock}
	d := NewDatabaseDriver(rec, time.Second, 0)

	mock.ExpectQuery("SELECT p.id").
		WillReturnRows(pgxmock.NewRows(placeColumnNames))

	start := time.Now()
	_, err = d.ListAllPlaces(context.Background())
	require.NoError(t, err)

	require.True(t, rec.hasDeadline)
	assert.WithinDuration(t, start.Add(time.Second), rec.deadline, time.Second)
}

func TestDatabaseDriver_ListPlaces(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := NewDatabaseDriver(mock, time.Second, time.Minute)
	f := RenderSQLFilter(domain.PlaceFilter{Categories: []string{"cafe"}}, domain.AmenityFromRecord)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs([]string{"cafe"}).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`ORDER BY p.workability_score DESC NULLS LAST, p.id LIMIT \$2 OFFSET \$3`).
		WithArgs([]string{"cafe"}, 2, 0).
		WillReturnRows(pgxmock.NewRows(placeColumnNames).
			AddRow(placeValues("p-1", "A", nil, floatPtr(1), floatPtr(2))...).
			AddRow(placeValues("p-2", "B", nil, floatPtr(1), floatPtr(2))...))

	rows, total, err := d.ListPlaces(context.Background(), f, RenderSQLOrder(domain.PlaceFilter{}), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 2)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseDriver_ListPlaces_EmptySkipsPageQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := NewDatabaseDriver(mock, time.Second, time.Minute)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

	rows, total, err := d.ListPlaces(context.Background(), RenderSQLFilter(domain.PlaceFilter{}, domain.AmenityFromRecord), RenderSQLOrder(domain.PlaceFilter{}), 50, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)

	require.NoError(t, mock.ExpectationsWereMet())
}

// A place whose record says no outlets is still returned by the radius
// query when an observation evidences outlets; the SQL carries the EXISTS
// clause and the driver passes such rows through untouched.
func TestDatabaseDriver_NearbyPlaces_ObservationEvidence(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := NewDatabaseDriver(mock, time.Second, time.Minute)
	f := RenderSQLFilter(domain.PlaceFilter{
		RequireOutlets: true,
		Geo:            &domain.GeoRadius{Center: domain.GeoPoint{Lat: 40.73, Lng: -73.99}, RadiusMeters: 2000},
	}, domain.AmenityFromRecordOrObservations)

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM places p WHERE .*o\.outlet_count > 0`).
		WithArgs(-73.99, 40.73, 2000.0).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	cols := append(append([]string{}, placeColumnNames...), "distance_meters")
	values := append(placeValues("p-9", "Outlet Haven", boolPtr(false), floatPtr(40.731), floatPtr(-73.991)), 140.5)
	mock.ExpectQuery(`(?s)AS distance_meters FROM places p WHERE .*ORDER BY distance_meters ASC`).
		WithArgs(-73.99, 40.73, 2000.0, 100, 0).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(values...))

	rows, total, err := d.NearbyPlaces(context.Background(), f, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "p-9", rows[0].ID)
	require.NotNil(t, rows[0].OutletsAvailable)
	assert.False(t, *rows[0].OutletsAvailable)
	assert.Equal(t, 140.5, rows[0].DistanceMeters)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseDriver_NearbyPlaces_RequiresGeo(t *testing.T) {
	d := NewDatabaseDriver(nil, time.Second, time.Minute)

	_, _, err := d.NearbyPlaces(context.Background(), RenderSQLFilter(domain.PlaceFilter{}, domain.AmenityFromRecord), 10, 0)
	assert.Error(t, err)
}

func TestDatabaseDriver_PlaceExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := NewDatabaseDriver(mock, time.Second, time.Minute)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := d.PlaceExists(context.Background(), "p-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseDriver_InsertObservation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := NewDatabaseDriver(mock, time.Second, time.Minute)
	created := time.Date(2024, 7, 1, 8, 30, 0, 0, time.UTC)
	outlets := 3
	in := NewObservationRow{PlaceID: "p-1", OutletCount: &outlets}

	mock.ExpectQuery("INSERT INTO observations").
		WithArgs("p-1", in.UserID, in.WifiSpeedDownload, in.WifiSpeedUpload, in.WifiLatency,
			in.NoiseLevel, in.OutletCount, in.Crowdedness, in.Notes).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("obs-1", created))

	row, err := d.InsertObservation(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "obs-1", row.ID)
	assert.Equal(t, created, row.CreatedAt)
	assert.Equal(t, 3, *row.OutletCount)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseDriver_ListObservations(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := NewDatabaseDriver(mock, time.Second, time.Minute)
	created := time.Date(2024, 7, 1, 8, 30, 0, 0, time.UTC)

	cols := []string{"id", "place_id", "user_id", "wifi_speed_download", "wifi_speed_upload",
		"wifi_latency", "noise_level", "outlet_count", "crowdedness", "notes", "created_at", "full_name"}
	mock.ExpectQuery("FROM observations o").
		WithArgs("p-1", 20, 0).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("obs-1", "p-1", nil, floatPtr(55.1), nil, nil, floatPtr(48), nil, nil, strPtr("quiet"), created, nil))

	rows, err := d.ListObservations(context.Background(), "p-1", 20, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 55.1, *rows[0].WifiSpeedDownload)
	assert.Nil(t, rows[0].AuthorName)

	require.NoError(t, mock.ExpectationsWereMet())
}
