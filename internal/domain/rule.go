package domain

import "time"

// EscalationRule is an admin-configured CEL expression evaluated after the
// built-in cascade. A rule that evaluates to true appends its factor tag to
// the assessment and floors the level at MinLevel. Built-in factors and
// overrides always run first; custom rules can only escalate, never lower.
type EscalationRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// Expression is a CEL expression over the activity context
	// (ip, browser, device_class, country, hour, weekday, activity_type,
	// factors, failed_logins, baseline_age_days).
	Expression string `json:"expression"`

	// Factor is the tag appended when the rule triggers.
	Factor RiskFactor `json:"factor"`

	// MinLevel floors the assessment level when the rule triggers.
	MinLevel RiskLevel `json:"minLevel"`

	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
