package gate

import (
	"testing"

	"github.com/ukallavi/Secura-sub000/internal/domain"
)

func TestDecide(t *testing.T) {
	t.Run("AllowWhenNoVerificationRequired", func(t *testing.T) {
		decision := Decide(&domain.RiskAssessment{
			Level:                domain.RiskLow,
			RequiresVerification: false,
		})
		if !decision.Allow {
			t.Error("expected allow")
		}
		if len(decision.RequiredMethods) != 0 {
			t.Errorf("allowed decision must not demand methods, got %v", decision.RequiredMethods)
		}
	})

	t.Run("MediumRequiresEmail", func(t *testing.T) {
		decision := Decide(&domain.RiskAssessment{
			Level:                domain.RiskMedium,
			RequiresVerification: true,
		})
		if decision.Allow {
			t.Error("expected verification challenge")
		}
		if len(decision.RequiredMethods) != 1 || decision.RequiredMethods[0] != domain.MethodEmail {
			t.Errorf("expected [email], got %v", decision.RequiredMethods)
		}
	})

	t.Run("HighRequiresEmailAndTOTP", func(t *testing.T) {
		decision := Decide(&domain.RiskAssessment{
			Level:                domain.RiskHigh,
			RequiresVerification: true,
		})
		if decision.Allow {
			t.Error("expected verification challenge")
		}
		want := []domain.VerificationMethod{domain.MethodEmail, domain.MethodTOTP}
		if len(decision.RequiredMethods) != 2 || decision.RequiredMethods[0] != want[0] || decision.RequiredMethods[1] != want[1] {
			t.Errorf("expected %v, got %v", want, decision.RequiredMethods)
		}
	})

	t.Run("MediumWithoutVerificationAllows", func(t *testing.T) {
		// MEDIUM with a single factor does not cross the verification
		// threshold; the gate follows the assessment, not the level.
		decision := Decide(&domain.RiskAssessment{
			Level:                domain.RiskMedium,
			RequiresVerification: false,
		})
		if !decision.Allow {
			t.Error("gate must follow requiresVerification, not the level alone")
		}
	})
}
