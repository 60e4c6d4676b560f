package domain

import (
	"time"
)

// ActivityType tags the kind of account operation being assessed.
type ActivityType string

const (
	ActivityLogin            ActivityType = "LOGIN"
	ActivityPasswordChange   ActivityType = "PASSWORD_CHANGE"
	ActivityEmailChange      ActivityType = "EMAIL_CHANGE"
	ActivitySecuritySettings ActivityType = "SECURITY_SETTINGS_CHANGE"
	ActivityPaymentMethod    ActivityType = "PAYMENT_METHOD_CHANGE"
)

// Sensitive reports whether the activity type belongs to the fixed set of
// operations that always floor the risk level at MEDIUM.
func (t ActivityType) Sensitive() bool {
	switch t {
	case ActivityPasswordChange, ActivityEmailChange, ActivitySecuritySettings, ActivityPaymentMethod:
		return true
	}
	return false
}

// UserAgent holds the parsed user-agent supplied by the caller.
// The engine does not parse raw UA strings itself.
type UserAgent struct {
	Browser     string `json:"browser"`
	OS          string `json:"os"`
	DeviceClass string `json:"deviceClass"`
}

// GeoLocation holds the geo-derived location supplied by the caller.
type GeoLocation struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city,omitempty"`
}

// Key returns the "{country}/{region}" form stored in baselines and
// compared against knownLocations. Empty when no location was supplied,
// so a missing location never pollutes the known set.
func (g GeoLocation) Key() string {
	if g.Country == "" && g.Region == "" {
		return ""
	}
	return g.Country + "/" + g.Region
}

// ActivityContext is the normalized request context the engine scores.
// It is produced by the authentication/session layer, never by this engine.
type ActivityContext struct {
	UserID    string      `json:"userId"`
	IP        string      `json:"ip"`
	UserAgent UserAgent   `json:"userAgent"`
	Location  GeoLocation `json:"location"`
	Timestamp time.Time   `json:"timestamp"`
}

// LoginEvent records a login attempt, successful or not. Failed attempts in
// the trailing 24 hours feed the MULTIPLE_FAILED_LOGINS factor.
type LoginEvent struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	UserID    string    `json:"userId"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}
