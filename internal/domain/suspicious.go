package domain

import (
	"fmt"
	"time"
)

// ReviewStatus is the workflow state of a suspicious-activity record.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "PENDING"
	StatusApproved ReviewStatus = "APPROVED"
	StatusRejected ReviewStatus = "REJECTED"
	StatusFlagged  ReviewStatus = "FLAGGED"
)

// Valid reports whether the status is one of the known values.
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFlagged:
		return true
	}
	return false
}

// ReviewAction is an admin decision on a suspicious-activity record.
type ReviewAction string

const (
	ActionApprove ReviewAction = "APPROVE"
	ActionReject  ReviewAction = "REJECT"
	ActionFlag    ReviewAction = "FLAG"
)

// TargetStatus maps an action to the status it produces.
func (a ReviewAction) TargetStatus() (ReviewStatus, error) {
	switch a {
	case ActionApprove:
		return StatusApproved, nil
	case ActionReject:
		return StatusRejected, nil
	case ActionFlag:
		return StatusFlagged, nil
	}
	return "", fmt.Errorf("unknown review action %q", a)
}

// SuspiciousDetails captures why a record was created: the factor list plus
// the context the scorer saw. Serialized as JSON at the persistence edge.
type SuspiciousDetails struct {
	Factors []RiskFactor      `json:"factors"`
	Context map[string]string `json:"context,omitempty"`
}

// SuspiciousActivityRecord is the persisted, admin-reviewable artifact of
// any non-LOW-risk activity.
type SuspiciousActivityRecord struct {
	ID           string            `json:"id"`
	TenantID     string            `json:"tenantId"`
	UserID       string            `json:"userId"`
	ActivityType ActivityType      `json:"activityType"`
	RiskLevel    RiskLevel         `json:"riskLevel"`
	IP           string            `json:"ip"`
	UserAgent    string            `json:"userAgent"`
	Location     string            `json:"location"`
	Details      SuspiciousDetails `json:"details"`
	Status       ReviewStatus      `json:"status"`
	ReviewedAt   *time.Time        `json:"reviewedAt,omitempty"`
	ReviewedBy   string            `json:"reviewedBy,omitempty"`
	ReviewNotes  string            `json:"reviewNotes,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// SuspiciousActivityFilter narrows a listing. All set fields are conjunctive.
type SuspiciousActivityFilter struct {
	UserID    string
	Status    ReviewStatus
	RiskLevel *RiskLevel
}
