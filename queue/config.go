package queue

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything a Storage needs beyond the broker connection
// itself. DefaultConfig returns a fully populated Config, and NewStorage
// uses it when given a nil Config; the fields of a non-nil Config are used
// as they are, zero values included.
type Config struct {
	// Namespace prefixes every stream and subject this Storage owns.
	Namespace string

	// MaxDeliver bounds delivery attempts before a message is routed to
	// the DLQ (or Term'd, if EnableDLQ is false).
	MaxDeliver int

	// AckWait is the broker's processing lease per delivery.
	AckWait time.Duration

	// NumReplicas is the stream replication factor.
	NumReplicas int

	// EnableDLQ controls whether exhausted/aborted messages are routed to
	// a dead-letter stream (true) or simply Term'd (false).
	EnableDLQ bool

	// MaxAckPending caps outstanding unacked messages per consumer.
	MaxAckPending int

	// FetchExpiry bounds how long a single priority fetch may block.
	FetchExpiry time.Duration

	// BatchSize is the maximum number of messages requested per fetch.
	BatchSize int

	// NakBackoff is indexed by min(attempt-1, len-1) to compute the delay
	// applied to a Nak for a transient failure.
	NakBackoff []time.Duration

	// EnableTracing controls W3C trace context injection on push. It does
	// not affect extraction: Context.ExtractedContext reads whatever trace
	// headers or trace_context a fetched message carries.
	EnableTracing bool

	// IdleSleep is how long the poller waits after an empty sweep across
	// all three priorities before trying again.
	IdleSleep time.Duration

	// AckChannelSize bounds the ack-decision channel between the worker
	// framework's response path and the ack coordinator.
	AckChannelSize int
}

// DefaultConfig returns a Config with the documented defaults (see
// the backend's external interface reference).
func DefaultConfig() *Config {
	return &Config{
		Namespace:     "apalis",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		NumReplicas:   1,
		EnableDLQ:     true,
		MaxAckPending: 100,
		FetchExpiry:   75 * time.Millisecond,
		BatchSize:     10,
		NakBackoff: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			15 * time.Second,
			30 * time.Second,
			60 * time.Second,
		},
		EnableTracing:  true,
		IdleSleep:      25 * time.Millisecond,
		AckChannelSize: 256,
	}
}

// LoadConfig builds a Config from NATSJOB_-prefixed environment variables,
// falling back to DefaultConfig for anything unset.
func LoadConfig() *Config {
	cfg := DefaultConfig()

	cfg.Namespace = getEnv("NATSJOB_NAMESPACE", cfg.Namespace)
	cfg.MaxDeliver = getEnvInt("NATSJOB_MAX_DELIVER", cfg.MaxDeliver)
	cfg.AckWait = getEnvDuration("NATSJOB_ACK_WAIT", cfg.AckWait)
	cfg.NumReplicas = getEnvInt("NATSJOB_NUM_REPLICAS", cfg.NumReplicas)
	cfg.EnableDLQ = getEnvBool("NATSJOB_ENABLE_DLQ", cfg.EnableDLQ)
	cfg.MaxAckPending = getEnvInt("NATSJOB_MAX_ACK_PENDING", cfg.MaxAckPending)
	cfg.FetchExpiry = getEnvDuration("NATSJOB_FETCH_EXPIRY", cfg.FetchExpiry)
	cfg.BatchSize = getEnvInt("NATSJOB_BATCH_SIZE", cfg.BatchSize)
	cfg.EnableTracing = getEnvBool("NATSJOB_ENABLE_TRACING", cfg.EnableTracing)
	cfg.IdleSleep = getEnvDuration("NATSJOB_IDLE_SLEEP", cfg.IdleSleep)
	cfg.AckChannelSize = getEnvInt("NATSJOB_ACK_CHANNEL_SIZE", cfg.AckChannelSize)

	if raw := os.Getenv("NATSJOB_NAK_BACKOFF"); raw != "" {
		if parsed := parseDurationList(raw); len(parsed) > 0 {
			cfg.NakBackoff = parsed
		}
	}

	return cfg
}

// backoffFor returns the Nak delay for the given delivery attempt (1-indexed).
func (c *Config) backoffFor(attempt int) time.Duration {
	if len(c.NakBackoff) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.NakBackoff) {
		idx = len(c.NakBackoff) - 1
	}
	return c.NakBackoff[idx]
}

func parseDurationList(raw string) []time.Duration {
	parts := strings.Split(raw, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
