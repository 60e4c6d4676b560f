package domain

import "time"

// MonitoringLevel is the intensity of admin-imposed scrutiny.
type MonitoringLevel string

const (
	MonitoringBasic    MonitoringLevel = "BASIC"
	MonitoringEnhanced MonitoringLevel = "ENHANCED"
)

// Valid reports whether the level is one of the known values.
func (l MonitoringLevel) Valid() bool {
	return l == MonitoringBasic || l == MonitoringEnhanced
}

// SystemActor identifies monitoring enabled by the engine itself rather
// than a human admin.
const SystemActor = "system"

// MonitoringState is the zero-or-one active heightened-scrutiny record per
// user. Enable replaces it in place (upsert keyed by user); disable
// soft-closes it; expiry is passive.
type MonitoringState struct {
	TenantID   string          `json:"tenantId"`
	UserID     string          `json:"userId"`
	Level      MonitoringLevel `json:"level"`
	Reason     string          `json:"reason"`
	EnabledAt  time.Time       `json:"enabledAt"`
	ExpiresAt  time.Time       `json:"expiresAt"`
	EnabledBy  string          `json:"enabledBy"`
	DisabledAt *time.Time      `json:"disabledAt,omitempty"`
	DisabledBy string          `json:"disabledBy,omitempty"`
}

// ActiveAt reports whether the record is in force at the given instant.
// A record past its expiry or explicitly disabled is inactive and ignored
// by the scorer.
func (m *MonitoringState) ActiveAt(now time.Time) bool {
	if m == nil {
		return false
	}
	if m.DisabledAt != nil {
		return false
	}
	return now.Before(m.ExpiresAt)
}
