package domain

import "time"

// Config holds the complete risk-engine configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Scoring thresholds and windows
	Scoring ScoringConfig `json:"scoring"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ScoringConfig holds the risk-cascade thresholds and lookback windows.
type ScoringConfig struct {
	// SuspiciousWindow is the lookback for RECENT_SUSPICIOUS_ACTIVITY.
	SuspiciousWindow time.Duration `json:"suspiciousWindow"`

	// FailedLoginWindow is the lookback for MULTIPLE_FAILED_LOGINS.
	FailedLoginWindow time.Duration `json:"failedLoginWindow"`

	// FailedLoginThreshold is the count at or above which
	// MULTIPLE_FAILED_LOGINS fires.
	FailedLoginThreshold int64 `json:"failedLoginThreshold"`

	// MinHabitCount is the histogram count below which a weekday/hour
	// is considered unusual.
	MinHabitCount int64 `json:"minHabitCount"`

	// BaselineCacheTTL bounds how long a baseline may be served from
	// cache. Writes invalidate explicitly; the TTL is a backstop.
	BaselineCacheTTL time.Duration `json:"baselineCacheTTL"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"

	// TierEnterprise includes multi-node, SSO, etc.
	TierEnterprise Tier = "enterprise"
)

// DefaultScoringConfig returns the standard cascade thresholds.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		SuspiciousWindow:     7 * 24 * time.Hour,
		FailedLoginWindow:    24 * time.Hour,
		FailedLoginThreshold: 3,
		MinHabitCount:        3,
		BaselineCacheTTL:     5 * time.Minute,
	}
}

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./secura-risk.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Scoring: DefaultScoringConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "secura-risk",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "secura_risk",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
