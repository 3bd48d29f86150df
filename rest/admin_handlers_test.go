package rest

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"place-indexer/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminSync(t *testing.T) {
	t.Run("requires service token", func(t *testing.T) {
		f := newFixture(t, false)

		assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/v1/admin/sync", "").Code)
		assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/v1/admin/sync", "", "X-Service-Token", "guess").Code)
		assert.Zero(t, f.sync.calls)
	})

	t.Run("completed", func(t *testing.T) {
		f := newFixture(t, false)
		f.sync.result = &domain.FullSyncResult{RunID: "run-1", Total: 10, Synced: 9, Skipped: 1, Batches: 1, Duration: 1500 * time.Millisecond}

		rec := f.do(http.MethodPost, "/v1/admin/sync", "", "X-Service-Token", testServiceToken)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, 1500.0, body["duration_ms"])
		assert.Equal(t, 9.0, body["result"].(map[string]any)["synced"])
	})

	t.Run("already running", func(t *testing.T) {
		f := newFixture(t, false)
		f.sync.err = domain.ErrSyncInProgress

		rec := f.do(http.MethodPost, "/v1/admin/sync", "", "X-Service-Token", testServiceToken)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("partial failure", func(t *testing.T) {
		f := newFixture(t, false)
		f.sync.result = &domain.FullSyncResult{RunID: "run-2", Total: 200, Synced: 100, Failed: 100, Batches: 2}
		f.sync.err = errors.New("import batch 2: timeout")

		rec := f.do(http.MethodPost, "/v1/admin/sync", "", "X-Service-Token", testServiceToken)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, 100.0, body["result"].(map[string]any)["synced"])
		assert.NotContains(t, body, "details")
	})
}
