package config

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultIndexName = "places"

	// DefaultSearchRadiusKm applies to /v1/search/places.
	DefaultSearchRadiusKm = 5.0
	// DefaultNearbyRadiusMeters applies to /v1/places.
	DefaultNearbyRadiusMeters = 5000.0
)

// Service constants with env var override support.
var (
	IndexBatchSize    = intEnv("INDEXER_BATCH_SIZE", 100)
	IndexBatchTimeout = durationEnv("INDEXER_BATCH_TIMEOUT", 30*time.Second)
	SyncLockTTL       = durationEnv("INDEXER_LOCK_TTL", 10*time.Minute)
	HTTPAddr          = stringEnv("HTTP_ADDR", ":9300")
	DBTimeout         = durationEnv("DB_TIMEOUT", 10*time.Second)
	DBListTimeout     = durationEnv("DB_LIST_TIMEOUT", 2*time.Minute)
	MeiliTimeout      = durationEnv("MEILI_TIMEOUT", 15*time.Second)
	StartupTimeout    = durationEnv("STARTUP_TIMEOUT", 2*time.Minute)
)

func stringEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func intEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func floatEnv(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func durationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
