package repository

// Schema definitions for the risk engine database.
// Compatible with both SQLite and PostgreSQL.

const schemaBaselines = `
CREATE TABLE IF NOT EXISTS baselines (
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    first_seen_at TIMESTAMP NOT NULL,
    last_seen_at TIMESTAMP NOT NULL,
    known_ips TEXT NOT NULL,
    known_device_classes TEXT NOT NULL,
    known_browsers TEXT NOT NULL,
    known_locations TEXT NOT NULL,
    day_histogram TEXT NOT NULL,
    hour_histogram TEXT NOT NULL,
    PRIMARY KEY (tenant_id, user_id)
);
`

const schemaSuspiciousActivities = `
CREATE TABLE IF NOT EXISTS suspicious_activities (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    activity_type TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    ip TEXT NOT NULL,
    user_agent TEXT,
    location TEXT,
    details TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    reviewed_at TIMESTAMP,
    reviewed_by TEXT,
    review_notes TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_suspicious_tenant ON suspicious_activities(tenant_id);
CREATE INDEX IF NOT EXISTS idx_suspicious_user ON suspicious_activities(tenant_id, user_id);
CREATE INDEX IF NOT EXISTS idx_suspicious_status ON suspicious_activities(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_suspicious_created ON suspicious_activities(tenant_id, created_at);
`

const schemaMonitoringStates = `
CREATE TABLE IF NOT EXISTS monitoring_states (
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    level TEXT NOT NULL,
    reason TEXT,
    enabled_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    enabled_by TEXT NOT NULL,
    disabled_at TIMESTAMP,
    disabled_by TEXT,
    PRIMARY KEY (tenant_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_monitoring_expires ON monitoring_states(expires_at);
`

const schemaLoginEvents = `
CREATE TABLE IF NOT EXISTS login_events (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    ip TEXT NOT NULL,
    user_agent TEXT,
    success INTEGER NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_login_events_user ON login_events(tenant_id, user_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_login_events_success ON login_events(tenant_id, user_id, success, timestamp);
`

const schemaEscalationRules = `
CREATE TABLE IF NOT EXISTS escalation_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    factor TEXT NOT NULL,
    min_level TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_escalation_rules_tenant ON escalation_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_escalation_rules_enabled ON escalation_rules(tenant_id, enabled);
`

const schemaAuditLog = `
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    user_id TEXT,
    action TEXT NOT NULL,
    details TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_tenant ON audit_log(tenant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_audit_log_user ON audit_log(tenant_id, user_id, created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaBaselines,
		schemaSuspiciousActivities,
		schemaMonitoringStates,
		schemaLoginEvents,
		schemaEscalationRules,
		schemaAuditLog,
	}
}
