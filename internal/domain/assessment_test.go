package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRiskLevelOrdering(t *testing.T) {
	// The comparison is numeric, not lexical: "HIGH" < "LOW" as strings,
	// which is exactly the trap the ordered enum avoids.
	if !(RiskLow < RiskMedium && RiskMedium < RiskHigh) {
		t.Fatal("levels must be ordered LOW < MEDIUM < HIGH")
	}

	t.Run("AtLeast", func(t *testing.T) {
		if RiskLow.AtLeast(RiskMedium) != RiskMedium {
			t.Error("LOW floored at MEDIUM should be MEDIUM")
		}
		if RiskHigh.AtLeast(RiskMedium) != RiskHigh {
			t.Error("HIGH floored at MEDIUM should stay HIGH")
		}
		if RiskMedium.AtLeast(RiskMedium) != RiskMedium {
			t.Error("floor at own level is identity")
		}
	})
}

func TestRiskLevelJSON(t *testing.T) {
	t.Run("MarshalsAsString", func(t *testing.T) {
		data, err := json.Marshal(RiskHigh)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(data) != `"HIGH"` {
			t.Errorf("expected \"HIGH\", got %s", data)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		for _, level := range []RiskLevel{RiskLow, RiskMedium, RiskHigh} {
			data, _ := json.Marshal(level)
			var back RiskLevel
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal %s failed: %v", data, err)
			}
			if back != level {
				t.Errorf("round trip changed %v to %v", level, back)
			}
		}
	})

	t.Run("RejectsUnknown", func(t *testing.T) {
		var level RiskLevel
		if err := json.Unmarshal([]byte(`"CRITICAL"`), &level); err == nil {
			t.Error("expected error for unknown level name")
		}
	})
}

func TestParseRiskLevel(t *testing.T) {
	level, err := ParseRiskLevel("MEDIUM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level != RiskMedium {
		t.Errorf("expected MEDIUM, got %v", level)
	}

	if _, err := ParseRiskLevel("medium"); err == nil {
		t.Error("parsing is case-sensitive; lowercase should fail")
	}
}

func TestActivityTypeSensitive(t *testing.T) {
	sensitive := []ActivityType{
		ActivityPasswordChange,
		ActivityEmailChange,
		ActivitySecuritySettings,
		ActivityPaymentMethod,
	}
	for _, at := range sensitive {
		if !at.Sensitive() {
			t.Errorf("%s should be sensitive", at)
		}
	}
	if ActivityLogin.Sensitive() {
		t.Error("LOGIN is not sensitive")
	}
}

func TestReviewActionTargetStatus(t *testing.T) {
	cases := map[ReviewAction]ReviewStatus{
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
		ActionFlag:    StatusFlagged,
	}
	for action, want := range cases {
		got, err := action.TargetStatus()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", action, err)
		}
		if got != want {
			t.Errorf("%s: expected %s, got %s", action, want, got)
		}
	}

	if _, err := ReviewAction("ESCALATE").TargetStatus(); err == nil {
		t.Error("unknown action should error")
	}
}

func TestMonitoringStateActiveAt(t *testing.T) {
	now := mustTime(t, "2026-03-01T12:00:00Z")

	t.Run("NilIsInactive", func(t *testing.T) {
		var state *MonitoringState
		if state.ActiveAt(now) {
			t.Error("nil state must be inactive")
		}
	})

	t.Run("WithinWindow", func(t *testing.T) {
		state := &MonitoringState{ExpiresAt: now.Add(24 * time.Hour)}
		if !state.ActiveAt(now) {
			t.Error("state before expiry should be active")
		}
	})

	t.Run("ExpiredIsPassivelyInactive", func(t *testing.T) {
		state := &MonitoringState{ExpiresAt: now.Add(-time.Minute)}
		if state.ActiveAt(now) {
			t.Error("expired state must be inactive without any sweep")
		}
	})

	t.Run("DisabledIsInactive", func(t *testing.T) {
		disabled := now.Add(-time.Hour)
		state := &MonitoringState{
			ExpiresAt:  now.Add(24 * time.Hour),
			DisabledAt: &disabled,
		}
		if state.ActiveAt(now) {
			t.Error("soft-closed state must be inactive")
		}
	})
}
