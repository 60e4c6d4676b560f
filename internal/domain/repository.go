// Package domain defines the core interfaces and types for the
// account-takeover risk engine.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Baseline operations. SaveBaseline is an upsert keyed by user.
	GetBaseline(ctx context.Context, tenantID string, userID string) (*UserBaseline, error)
	SaveBaseline(ctx context.Context, tenantID string, baseline *UserBaseline) error

	// Suspicious-activity operations
	SaveSuspiciousActivity(ctx context.Context, tenantID string, rec *SuspiciousActivityRecord) error
	GetSuspiciousActivity(ctx context.Context, tenantID string, id string) (*SuspiciousActivityRecord, error)
	ListSuspiciousActivities(ctx context.Context, tenantID string, filter SuspiciousActivityFilter, page, pageSize int) ([]*SuspiciousActivityRecord, int64, error)
	CountSuspiciousActivities(ctx context.Context, tenantID string, userID string, since time.Time) (int64, error)
	UpdateSuspiciousActivityReview(ctx context.Context, tenantID string, rec *SuspiciousActivityRecord) error

	// Monitoring operations. Upsert keyed by user: one record per user.
	SaveMonitoringState(ctx context.Context, tenantID string, state *MonitoringState) error
	GetMonitoringState(ctx context.Context, tenantID string, userID string) (*MonitoringState, error)
	DeleteExpiredMonitoringStates(ctx context.Context, before time.Time) (int64, error)

	// Login events
	SaveLoginEvent(ctx context.Context, tenantID string, event *LoginEvent) error
	CountFailedLogins(ctx context.Context, tenantID string, userID string, since time.Time) (int64, error)

	// Escalation rule configuration
	SaveEscalationRule(ctx context.Context, tenantID string, rule *EscalationRule) error
	GetEscalationRule(ctx context.Context, tenantID string, ruleID string) (*EscalationRule, error)
	ListEscalationRules(ctx context.Context, tenantID string) ([]*EscalationRule, error)

	// Audit log
	SaveAuditEntry(ctx context.Context, tenantID string, entry *AuditEntry) error
	ListAuditEntries(ctx context.Context, tenantID string, userID string, limit int) ([]*AuditEntry, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
