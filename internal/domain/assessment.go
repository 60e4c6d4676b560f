package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RiskLevel classifies an activity. The zero value is LOW.
//
// Levels are ordered numerically so that escalation is an integer max,
// never a string comparison.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

var riskLevelNames = map[RiskLevel]string{
	RiskLow:    "LOW",
	RiskMedium: "MEDIUM",
	RiskHigh:   "HIGH",
}

func (l RiskLevel) String() string {
	if name, ok := riskLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("RiskLevel(%d)", int(l))
}

// AtLeast returns the higher of l and floor.
func (l RiskLevel) AtLeast(floor RiskLevel) RiskLevel {
	if l < floor {
		return floor
	}
	return l
}

func (l RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *RiskLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseRiskLevel converts the wire form back to a level.
func ParseRiskLevel(name string) (RiskLevel, error) {
	for level, n := range riskLevelNames {
		if n == name {
			return level, nil
		}
	}
	return RiskLow, fmt.Errorf("unknown risk level %q", name)
}

// RiskFactor names one specific deviation from baseline or one aggravating
// condition. The factor set is what an admin sees when reviewing a flagged
// record, so every rule in the cascade maps to exactly one tag.
type RiskFactor string

const (
	FactorNewIP              RiskFactor = "NEW_IP"
	FactorNewDevice          RiskFactor = "NEW_DEVICE"
	FactorNewBrowser         RiskFactor = "NEW_BROWSER"
	FactorNewLocation        RiskFactor = "NEW_LOCATION"
	FactorUnusualDay         RiskFactor = "UNUSUAL_DAY"
	FactorUnusualTime        RiskFactor = "UNUSUAL_TIME"
	FactorRecentSuspicious   RiskFactor = "RECENT_SUSPICIOUS_ACTIVITY"
	FactorUnderMonitoring    RiskFactor = "ACCOUNT_UNDER_MONITORING"
	FactorMultipleFailed     RiskFactor = "MULTIPLE_FAILED_LOGINS"
	FactorNoBaseline         RiskFactor = "NO_USER_BASELINE"
	FactorAssessmentError    RiskFactor = "ASSESSMENT_ERROR"
	FactorSensitiveOperation RiskFactor = "SENSITIVE_OPERATION"
)

// RiskAssessment is the outcome of scoring one activity. It is ephemeral:
// embedded in logs and suspicious-activity records, never stored on its own.
type RiskAssessment struct {
	UserID               string       `json:"userId"`
	ActivityType         ActivityType `json:"activityType"`
	Level                RiskLevel    `json:"riskLevel"`
	Factors              []RiskFactor `json:"riskFactors"`
	RequiresVerification bool         `json:"requiresVerification"`
	AssessedAt           time.Time    `json:"assessedAt"`
}

// HasFactor reports whether the assessment carries the given factor.
func (a *RiskAssessment) HasFactor(f RiskFactor) bool {
	for _, have := range a.Factors {
		if have == f {
			return true
		}
	}
	return false
}

// VerificationMethod is a step-up verification channel the caller can demand.
type VerificationMethod string

const (
	MethodEmail VerificationMethod = "email"
	MethodTOTP  VerificationMethod = "totp"
)

// VerificationRequirement is the Verification Gate decision.
type VerificationRequirement struct {
	Allow           bool                 `json:"allow"`
	RequiredMethods []VerificationMethod `json:"requiredMethods,omitempty"`
}
