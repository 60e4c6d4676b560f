package domain

import "time"

// Audit actions recorded by the engine.
const (
	AuditActionAssessed           = "activity.assessed"
	AuditActionSuspiciousCreated  = "suspicious.created"
	AuditActionSuspiciousReviewed = "suspicious.reviewed"
	AuditActionMonitoringEnabled  = "monitoring.enabled"
	AuditActionMonitoringDisabled = "monitoring.disabled"
	AuditActionLoginRecorded      = "login.recorded"
)

// AuditEntry is one append-only audit record. Entries are published on the
// event bus fire-and-forget and persisted by the audit worker; a failure on
// this path never surfaces to the caller.
type AuditEntry struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	ActorID   string            `json:"actorId"`
	UserID    string            `json:"userId"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
