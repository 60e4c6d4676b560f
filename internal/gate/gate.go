// Package gate maps a risk assessment to a step-up verification decision.
package gate

import "github.com/ukallavi/Secura-sub000/internal/domain"

// Decide converts an assessment into the caller-facing verification
// requirement. Pure function of the assessment; holds no state.
//
// MEDIUM risk asks for an email challenge, HIGH risk asks for email plus
// TOTP. The caller chooses how to present the challenge; the engine only
// names the methods.
func Decide(assessment *domain.RiskAssessment) domain.VerificationRequirement {
	if !assessment.RequiresVerification {
		return domain.VerificationRequirement{Allow: true}
	}

	methods := []domain.VerificationMethod{domain.MethodEmail}
	if assessment.Level == domain.RiskHigh {
		methods = append(methods, domain.MethodTOTP)
	}

	return domain.VerificationRequirement{
		Allow:           false,
		RequiredMethods: methods,
	}
}
