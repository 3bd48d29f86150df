package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"place-indexer/domain"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Meilisearch MeilisearchConfig
	Redis       RedisConfig
	Indexer     IndexerConfig
	HTTP        HTTPConfig
	Query       QueryConfig
	Security    SecurityConfig
	Cache       CacheConfig
}

type AppConfig struct {
	Env string
}

// IsDevelopment gates error details in HTTP responses.
func (a AppConfig) IsDevelopment() bool {
	return strings.EqualFold(a.Env, "development")
}

// DatabaseConfig holds the store connection settings. ListTimeout bounds
// full-table reads such as the full sync listing.
type DatabaseConfig struct {
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	MaxConns    int32
	Timeout     time.Duration
	ListTimeout time.Duration
	SSL         SSLConfig
}

type SSLConfig struct {
	Mode     string
	RootCert string
	Cert     string
	Key      string
}

type MeilisearchConfig struct {
	Host      string
	APIKey    string
	IndexName string
	Timeout   time.Duration
}

// RedisConfig covers the full-sync lock. An empty LockURL selects the
// in-process lock. The change stream is configured by consumer.ConfigFromEnv.
type RedisConfig struct {
	LockURL string
	LockKey string
	LockTTL time.Duration
}

type IndexerConfig struct {
	BatchSize      int
	BatchTimeout   time.Duration
	StalenessGuard bool
}

type HTTPConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
}

type QueryConfig struct {
	AmenityPolicy domain.AmenityPolicy
}

type SecurityConfig struct {
	WebhookSecret string
	JWTSecret     string
	ServiceToken  string
}

type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// Load reads the process environment. Every missing required variable is
// reported in the returned error.
func Load() (*Config, error) {
	var errs []error
	required := func(key string) string {
		v, err := getEnvRequired(key)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	dbConfig := DatabaseConfig{
		Host:        required("DB_HOST"),
		Port:        getEnvOrDefault("DB_PORT", "5432"),
		Name:        required("DB_NAME"),
		User:        required("DB_USER"),
		Password:    required("DB_PASSWORD"),
		MaxConns:    int32(intEnv("DB_MAX_CONNS", 10)),
		Timeout:     DBTimeout,
		ListTimeout: DBListTimeout,
		SSL: SSLConfig{
			Mode:     getEnvOrDefault("DB_SSL_MODE", "prefer"),
			RootCert: getEnvOrDefault("DB_SSL_ROOT_CERT", ""),
			Cert:     getEnvOrDefault("DB_SSL_CERT", ""),
			Key:      getEnvOrDefault("DB_SSL_KEY", ""),
		},
	}
	if err := dbConfig.ValidateSSLConfig(); err != nil {
		errs = append(errs, fmt.Errorf("SSL configuration error: %w", err))
	}

	policy, err := domain.ParseAmenityPolicy(getEnvOrDefault("QUERY_AMENITY_EVIDENCE", ""))
	if err != nil {
		errs = append(errs, err)
	}

	staleness, err := boolEnv("INDEXER_STALENESS_GUARD", true)
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		App: AppConfig{
			Env: getEnvOrDefault("APP_ENV", "production"),
		},
		Database: dbConfig,
		Meilisearch: MeilisearchConfig{
			Host:      required("MEILISEARCH_HOST"),
			APIKey:    getEnvOrDefault("MEILISEARCH_API_KEY", ""),
			IndexName: getEnvOrDefault("MEILISEARCH_INDEX", DefaultIndexName),
			Timeout:   MeiliTimeout,
		},
		Redis: RedisConfig{
			LockURL: getEnvOrDefault("REDIS_LOCK_URL", ""),
			LockKey: getEnvOrDefault("REDIS_LOCK_KEY", "place-indexer:full-sync"),
			LockTTL: SyncLockTTL,
		},
		Indexer: IndexerConfig{
			BatchSize:      IndexBatchSize,
			BatchTimeout:   IndexBatchTimeout,
			StalenessGuard: staleness,
		},
		HTTP: HTTPConfig{
			Addr:              HTTPAddr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       durationEnv("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      durationEnv("HTTP_WRITE_TIMEOUT", 60*time.Second),
			RateLimitRPS:      floatEnv("RATE_LIMIT_RPS", 20),
			RateLimitBurst:    intEnv("RATE_LIMIT_BURST", 40),
		},
		Query: QueryConfig{
			AmenityPolicy: policy,
		},
		Security: SecurityConfig{
			WebhookSecret: getEnvOrDefault("WEBHOOK_SECRET", ""),
			JWTSecret:     getEnvOrDefault("AUTH_JWT_SECRET", ""),
			ServiceToken:  getEnvOrDefault("ADMIN_SERVICE_TOKEN", ""),
		},
		Cache: CacheConfig{
			Size: intEnv("DETAIL_CACHE_SIZE", 1000),
			TTL:  durationEnv("DETAIL_CACHE_TTL", time.Minute),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	slog.Info("Configuration loaded",
		"app_env", cfg.App.Env,
		"db_host", cfg.Database.Host,
		"db_sslmode", cfg.Database.SSL.Mode,
		"meilisearch_host", cfg.Meilisearch.Host,
		"meilisearch_index", cfg.Meilisearch.IndexName,
		"redis_lock", cfg.Redis.LockURL != "",
		"amenity_policy", string(cfg.Query.AmenityPolicy),
	)

	return cfg, nil
}

// ConnectionString renders the keyword/value DSN pgx accepts.
func (c *DatabaseConfig) ConnectionString() string {
	baseConn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, quoteDSNValue(c.Password), c.Name, c.SSL.Mode,
	)

	if c.SSL.RootCert != "" {
		baseConn += fmt.Sprintf(" sslrootcert=%s", c.SSL.RootCert)
	}
	if c.SSL.Cert != "" {
		baseConn += fmt.Sprintf(" sslcert=%s", c.SSL.Cert)
	}
	if c.SSL.Key != "" {
		baseConn += fmt.Sprintf(" sslkey=%s", c.SSL.Key)
	}

	return baseConn
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (c *DatabaseConfig) ValidateSSLConfig() error {
	switch c.SSL.Mode {
	case "disable":
		return fmt.Errorf("SSL disable mode is not allowed")
	case "allow", "prefer":
		slog.Warn("database SSL is opportunistic", "mode", c.SSL.Mode)
		return nil
	case "require":
		return nil
	case "verify-ca", "verify-full":
		if c.SSL.RootCert == "" {
			return fmt.Errorf("SSL root certificate required for mode %s", c.SSL.Mode)
		}
		return nil
	default:
		return fmt.Errorf("invalid SSL mode: %s", c.SSL.Mode)
	}
}

// readSecretFile returns the trimmed content of the file named by
// KEY_FILE, if set and readable.
func readSecretFile(key string) (string, bool) {
	path := os.Getenv(key + "_FILE")
	if path == "" {
		return "", false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("failed to read secret file", "key", key, "path", path, "error", err)
		return "", false
	}
	return strings.TrimSpace(string(content)), true
}

func getEnvRequired(key string) (string, error) {
	if v, ok := readSecretFile(key); ok && v != "" {
		return v, nil
	}
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v, ok := readSecretFile(key); ok {
		return v
	}
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func boolEnv(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
