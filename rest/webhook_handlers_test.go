package rest

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"place-indexer/domain"
	"place-indexer/internal/auth"
	authmw "place-indexer/internal/auth/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacesSyncWebhook(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		result     *domain.SyncResult
		err        error
		wantStatus int
		wantBody   map[string]any
		wantID     string
	}{
		{
			name:       "insert",
			body:       `{"table":"places","type":"INSERT","record":{"id":"p1"}}`,
			result:     &domain.SyncResult{Action: domain.ActionUpserted, PlaceID: "p1"},
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"success": true, "action": "upserted", "placeId": "p1"},
			wantID:     "p1",
		},
		{
			name:       "delete falls back to old_record",
			body:       `{"table":"places","type":"DELETE","record":null,"old_record":{"id":"p2"}}`,
			result:     &domain.SyncResult{Action: domain.ActionDeleted, PlaceID: "p2"},
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"success": true, "action": "deleted", "placeId": "p2"},
			wantID:     "p2",
		},
		{
			name:       "other table",
			body:       `{"table":"observations","type":"INSERT","record":{"id":"o1"}}`,
			err:        domain.ErrIgnoredEvent,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"message": "Not a places table event"},
			wantID:     "o1",
		},
		{
			name:       "missing id",
			body:       `{"table":"places","type":"UPDATE","record":{}}`,
			err:        domain.ErrMalformedEvent,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": "No place ID found"},
		},
		{
			name:       "unknown type",
			body:       `{"table":"places","type":"TRUNCATE","record":{"id":"p1"}}`,
			err:        fmt.Errorf("%w: %q", domain.ErrUnknownChangeType, "TRUNCATE"),
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"message": "Unknown event type"},
			wantID:     "p1",
		},
		{
			name:       "sync failure hides details",
			body:       `{"table":"places","type":"UPDATE","record":{"id":"p1"}}`,
			err:        errors.New("index unreachable"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": "Webhook processing failed"},
			wantID:     "p1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			f.ingest.result, f.ingest.err = tt.result, tt.err

			rec := f.do(http.MethodPost, "/webhooks/places-sync", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, decode(t, rec))
			assert.Equal(t, tt.wantID, f.ingest.got.PlaceID)
		})
	}
}

func TestPlacesSyncWebhook_DetailsInDevMode(t *testing.T) {
	f := newFixture(t, true)
	f.ingest.err = errors.New("index unreachable")

	rec := f.do(http.MethodPost, "/webhooks/places-sync", `{"table":"places","type":"UPDATE","record":{"id":"p1"}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "index unreachable", decode(t, rec)["details"])
}

func TestPlacesSyncWebhook_InvalidJSON(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodPost, "/webhooks/places-sync", `{"table":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlacesSyncWebhook_Health(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodGet, "/webhooks/places-sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"status":    "ok",
		"endpoint":  "places-sync",
		"timestamp": "2024-05-01T12:00:00Z",
	}, decode(t, rec))
}

func TestPlacesSyncWebhook_SecretConfigured(t *testing.T) {
	ingest := &fakeIngestor{result: &domain.SyncResult{Action: domain.ActionUpserted, PlaceID: "p1"}}
	h := NewHandler(&fakeSearcher{}, ingest, &fakeDetailer{}, &fakeObservations{}, &fakeSyncer{}, false)
	e := echo.New()
	h.RegisterRoutes(e, authmw.NewAuthMiddleware(nil, auth.NewVerifier("hook-secret"), ""), nil)
	f := &fixture{e: e}

	body := `{"table":"places","type":"INSERT","record":{"id":"p1"}}`

	rec := f.do(http.MethodPost, "/webhooks/places-sync", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, ingest.got.PlaceID)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "db"}).SignedString([]byte("hook-secret"))
	require.NoError(t, err)
	rec = f.do(http.MethodPost, "/webhooks/places-sync", body, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", ingest.got.PlaceID)
}
