// Package config loads the ambient, process-level configuration shared by
// the demo commands: broker connection, dashboard/archiver settings, and
// tracing. Queue-internal tuning (max_deliver, ack_wait, nak_backoff, ...)
// lives in queue.Config and is loaded separately by queue.LoadConfig.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application-level configuration for the demo commands.
type Config struct {
	NATS    NATSConfig
	Archive ArchiveConfig
	HTTP    HTTPConfig
	Metrics MetricsConfig
	Tracing TracingConfig
}

// NATSConfig holds broker connection settings.
type NATSConfig struct {
	URL string
}

// ArchiveConfig holds the optional Postgres DLQ archiver's connection
// settings. Archiving is disabled when DSN is empty.
type ArchiveConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// HTTPConfig holds the observability dashboard's HTTP server settings.
type HTTPConfig struct {
	Port         int
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MetricsConfig holds the Prometheus exposition endpoint settings.
type MetricsConfig struct {
	Port int
	Path string
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// Load builds a Config from environment variables, falling back to
// defaults suited to local development.
func Load() *Config {
	return &Config{
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Archive: ArchiveConfig{
			DSN:             getEnv("ARCHIVE_DSN", ""),
			MaxOpenConns:    getEnvInt("ARCHIVE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("ARCHIVE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("ARCHIVE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		HTTP: HTTPConfig{
			Port:         getEnvInt("DASHBOARD_PORT", 8080),
			CORSOrigins:  getEnvList("DASHBOARD_CORS_ORIGINS", []string{"*"}),
			ReadTimeout:  getEnvDuration("DASHBOARD_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("DASHBOARD_WRITE_TIMEOUT", 30*time.Second),
		},
		Metrics: MetricsConfig{
			Port: getEnvInt("METRICS_PORT", 9090),
			Path: getEnv("METRICS_PATH", "/metrics"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", true),
			ServiceName: getEnv("SERVICE_NAME", "jetqueue"),
			Endpoint:    getEnv("OTLP_ENDPOINT", "localhost:4318"),
		},
	}
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	out := make([]string, 0)
	start := 0
	for i := 0; i <= len(value); i++ {
		if i == len(value) || value[i] == ',' {
			if i > start {
				out = append(out, value[start:i])
			}
			start = i + 1
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
