// Package consumer reads place change notifications from a Redis Stream
// and hands them to the incremental sync.
package consumer

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultStreamKey is the stream the store's change trigger relays to.
	DefaultStreamKey = "places:changes"
	// DefaultGroup is shared by every place-indexer replica so each change
	// is synced once.
	DefaultGroup = "place-indexer"
)

// Config controls the change stream consumer. It is off unless
// CONSUMER_ENABLED is set; the webhook covers deployments without Redis.
type Config struct {
	RedisURL     string
	StreamKey    string
	GroupName    string
	ConsumerName string
	// BatchSize caps the notifications read per XREADGROUP call.
	BatchSize int64
	// BlockTimeout bounds one XREADGROUP wait so Stop is noticed.
	BlockTimeout time.Duration
	// ClaimIdleTime is how long a change delivered to a replica may stay
	// unacknowledged before this replica takes it over. Zero disables
	// reclaiming.
	ClaimIdleTime time.Duration
	Enabled       bool
}

// DefaultConfig names the consumer after the host and pid so restarted
// replicas do not inherit each other's pending entries.
func DefaultConfig() Config {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "place-indexer"
	}
	return Config{
		RedisURL:      "redis://localhost:6379",
		StreamKey:     DefaultStreamKey,
		GroupName:     DefaultGroup,
		ConsumerName:  fmt.Sprintf("%s-%d", host, os.Getpid()),
		BatchSize:     10,
		BlockTimeout:  5 * time.Second,
		ClaimIdleTime: 30 * time.Second,
	}
}

// ConfigFromEnv overlays CONSUMER_* and REDIS_STREAM_URL on DefaultConfig.
// Unparsable numbers and durations keep the default.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	setString(&cfg.RedisURL, "REDIS_STREAM_URL")
	setString(&cfg.StreamKey, "CONSUMER_STREAM_KEY")
	setString(&cfg.GroupName, "CONSUMER_GROUP")
	setString(&cfg.ConsumerName, "CONSUMER_NAME")
	setDuration(&cfg.BlockTimeout, "CONSUMER_BLOCK_TIMEOUT")
	setDuration(&cfg.ClaimIdleTime, "CONSUMER_CLAIM_IDLE")

	if v := os.Getenv("CONSUMER_BATCH_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("CONSUMER_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}
	return cfg
}

// Validate checks an enabled config. A disabled one is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.StreamKey == "" {
		errs = append(errs, errors.New("stream key is required"))
	}
	if c.GroupName == "" {
		errs = append(errs, errors.New("consumer group is required"))
	}
	if c.ConsumerName == "" {
		errs = append(errs, errors.New("consumer name is required"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.BlockTimeout < 0 || c.ClaimIdleTime < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
