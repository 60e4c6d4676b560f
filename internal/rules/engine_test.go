package rules

import (
	"testing"
	"time"

	"github.com/ukallavi/Secura-sub000/internal/domain"
)

func testRule(id, expr string) *domain.EscalationRule {
	return &domain.EscalationRule{
		ID:         id,
		TenantID:   "*",
		Name:       id,
		Version:    "1.0.0",
		Expression: expr,
		Factor:     domain.RiskFactor("CUSTOM_" + id),
		MinLevel:   domain.RiskMedium,
		Enabled:    true,
	}
}

func testInput() *Input {
	return &Input{
		Context: &domain.ActivityContext{
			UserID:    "user-1",
			IP:        "203.0.113.10",
			UserAgent: domain.UserAgent{Browser: "Firefox", OS: "Linux", DeviceClass: "desktop"},
			Location:  domain.GeoLocation{Country: "US", Region: "CA"},
			// Tuesday 03:00 UTC
			Timestamp: time.Date(2026, 1, 6, 3, 0, 0, 0, time.UTC),
		},
		ActivityType:    domain.ActivityLogin,
		Factors:         []domain.RiskFactor{domain.FactorNewIP},
		FailedLogins:    2,
		BaselineAgeDays: 90,
	}
}

func TestEngineCompilation(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer engine.Close()

	t.Run("ValidExpression", func(t *testing.T) {
		if err := engine.ValidateRule(testRule("night", "hour < 6")); err != nil {
			t.Errorf("valid rule rejected: %v", err)
		}
	})

	t.Run("SyntaxError", func(t *testing.T) {
		if err := engine.ValidateRule(testRule("broken", "hour <")); err == nil {
			t.Error("syntax error should be rejected at compile time")
		}
	})

	t.Run("NonBoolOutput", func(t *testing.T) {
		if err := engine.ValidateRule(testRule("arith", "hour + 1")); err == nil {
			t.Error("non-bool expression should be rejected")
		}
	})

	t.Run("MissingFactorTag", func(t *testing.T) {
		rule := testRule("untagged", "hour < 6")
		rule.Factor = ""
		if err := engine.ValidateRule(rule); err == nil {
			t.Error("rule without a factor tag should be rejected")
		}
	})

	t.Run("ValidateDoesNotLoad", func(t *testing.T) {
		if engine.RulesCount() != 0 {
			t.Errorf("ValidateRule must not load rules, have %d", engine.RulesCount())
		}
	})
}

func TestEngineEvaluation(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer engine.Close()

	if err := engine.LoadRules([]*domain.EscalationRule{
		testRule("night-login", `hour < 6 && activity_type == "LOGIN"`),
		testRule("blocked-country", `country == "XX"`),
		testRule("factor-combo", `"NEW_IP" in factors && failed_logins >= 2`),
	}); err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}

	t.Run("MatchingRulesTrigger", func(t *testing.T) {
		matches := engine.EvaluateAll(testInput())

		triggered := make(map[string]bool)
		for _, m := range matches {
			triggered[m.RuleID] = true
		}

		if !triggered["night-login"] {
			t.Error("night-login should trigger at 03:00")
		}
		if !triggered["factor-combo"] {
			t.Error("factor-combo should trigger with NEW_IP and 2 failures")
		}
		if triggered["blocked-country"] {
			t.Error("blocked-country should not trigger for US")
		}
	})

	t.Run("MatchCarriesFactorAndFloor", func(t *testing.T) {
		matches := engine.EvaluateAll(testInput())
		for _, m := range matches {
			if m.Factor == "" {
				t.Errorf("rule %s produced an empty factor", m.RuleID)
			}
			if m.MinLevel != domain.RiskMedium {
				t.Errorf("rule %s lost its level floor", m.RuleID)
			}
		}
	})

	t.Run("DisabledRulesSkipped", func(t *testing.T) {
		disabled := testRule("disabled", "true")
		disabled.Enabled = false

		fresh, _ := NewEngine()
		defer fresh.Close()
		if err := fresh.LoadRules([]*domain.EscalationRule{disabled}); err != nil {
			t.Fatalf("LoadRules failed: %v", err)
		}
		if fresh.RulesCount() != 0 {
			t.Errorf("disabled rule must not load, have %d", fresh.RulesCount())
		}
	})
}

func TestEngineReload(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer engine.Close()

	if err := engine.LoadRule(testRule("old", "true")); err != nil {
		t.Fatalf("LoadRule failed: %v", err)
	}

	if err := engine.ReloadRules([]*domain.EscalationRule{testRule("new", "true")}); err != nil {
		t.Fatalf("ReloadRules failed: %v", err)
	}

	loaded := engine.GetLoadedRules()
	if len(loaded) != 1 || loaded[0].ID != "new" {
		t.Errorf("reload should replace the rule set, got %d rules", len(loaded))
	}

	t.Run("ReloadRejectsBadRuleAtomically", func(t *testing.T) {
		err := engine.ReloadRules([]*domain.EscalationRule{
			testRule("fine", "true"),
			testRule("broken", "hour <"),
		})
		if err == nil {
			t.Fatal("expected reload to fail on broken rule")
		}
		// Previous rule set stays in place
		if engine.RulesCount() != 1 {
			t.Errorf("failed reload must keep the old set, have %d rules", engine.RulesCount())
		}
	})
}
