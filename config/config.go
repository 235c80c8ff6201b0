// Package config loads and validates the configuration for a host process
// that drives engine.Execution: where the durable message log lives, how the
// service directory is reached, and how telemetry is wired up.
package config

import "time"

// Config is the umbrella configuration object returned by Load.
type Config struct {
	configPath string

	// Engine controls replay-driver behavior that is not spec-mandated but
	// host-tunable (snapshot cadence, default timeouts).
	Engine EngineConfig `yaml:"engine"`

	// Directory configures how named services are resolved to endpoints.
	Directory DirectoryConfig `yaml:"directory"`

	// Store configures the durable message-log backend.
	Store StoreConfig `yaml:"store"`

	// Telemetry configures logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig tunes the replay driver.
type EngineConfig struct {
	// SnapshotEvery, when non-zero, asks the host to persist an
	// EntityStateChanged after this many completed top-level requests,
	// rather than only at interaction suspension points.
	SnapshotEvery int `yaml:"snapshot_every"`

	// MethodTimeout bounds how long a single Complete call may run before
	// the host cancels its context. Zero means no timeout.
	MethodTimeout time.Duration `yaml:"method_timeout"`
}

// DirectoryConfig configures service directory resolution.
type DirectoryConfig struct {
	// StaticEndpoints maps a service name directly to a dial target,
	// bypassing the remote directory for services known at deploy time.
	StaticEndpoints map[string]string `yaml:"static_endpoints"`

	// RemoteAddr is the gRPC address of a remote service directory, used
	// for names not present in StaticEndpoints.
	RemoteAddr string `yaml:"remote_addr"`

	// CacheTTL controls how long a resolved endpoint is cached before
	// being refreshed from the remote directory.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// RefreshQPS caps how often the background refresher may call the
	// remote directory per second.
	RefreshQPS float64 `yaml:"refresh_qps"`

	// RedisAddr, when set, backs the directory cache with Redis instead
	// of the in-process memory cache, so multiple host instances share
	// resolved endpoints.
	RedisAddr string `yaml:"redis_addr"`
}

// StoreConfig configures the durable message-log backend.
type StoreConfig struct {
	// MongoURI is the connection string for the example MongoDB-backed
	// message-log store.
	MongoURI string `yaml:"mongo_uri"`

	// Database and Collection name where messages are appended.
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// TelemetryConfig configures logging, metrics, and tracing.
type TelemetryConfig struct {
	// Debug makes cmd/rund use the Clue/OpenTelemetry-backed logger, tracer,
	// and metrics instead of the Noop implementations.
	Debug bool `yaml:"debug"`

	// Format selects the log encoding ("text" or "json").
	Format string `yaml:"format"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint. cmd/rund does not
	// read it; it chooses between Noop and Clue-backed telemetry by Debug alone.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// ConfigPath returns the path Config was loaded from, empty for defaults.
func (c *Config) ConfigPath() string { return c.configPath }

// Default returns a Config suitable for local development: no remote
// directory, no durable store, noop telemetry.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MethodTimeout: 30 * time.Second,
		},
		Directory: DirectoryConfig{
			CacheTTL:   5 * time.Minute,
			RefreshQPS: 1,
		},
		Telemetry: TelemetryConfig{
			Format: "text",
		},
	}
}
