// Package scorer implements the risk-assessment cascade.
//
// The cascade is a fixed, ordered list of deterministic rules rather
// than a statistical model: an admin reviewing a flagged record can see
// exactly which rule fired. Factors accumulate first, then the level is
// derived from the factor set plus the hard overrides.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ukallavi/Secura-sub000/internal/audit"
	"github.com/ukallavi/Secura-sub000/internal/baseline"
	"github.com/ukallavi/Secura-sub000/internal/domain"
	"github.com/ukallavi/Secura-sub000/internal/repository"
	"github.com/ukallavi/Secura-sub000/internal/rules"
	"github.com/ukallavi/Secura-sub000/internal/signals"
)

// Service runs risk assessments.
type Service struct {
	baselines *baseline.Service
	signals   *signals.Service
	repo      domain.Repository
	rules     *rules.Engine
	audit     *audit.Sink
	cfg       domain.ScoringConfig
	tracer    trace.Tracer

	// now is swappable in tests
	now func() time.Time
}

// NewService creates a scorer. The rules engine and audit sink are
// optional; a nil engine skips the custom-rule step and a nil sink skips
// audit publication.
func NewService(
	baselines *baseline.Service,
	sigs *signals.Service,
	repo domain.Repository,
	engine *rules.Engine,
	sink *audit.Sink,
	cfg domain.ScoringConfig,
) *Service {
	return &Service{
		baselines: baselines,
		signals:   sigs,
		repo:      repo,
		rules:     engine,
		audit:     sink,
		cfg:       cfg,
		tracer:    otel.Tracer("secura-risk/scorer"),
		now:       time.Now,
	}
}

// Assess scores one activity. It never returns an error: any failure
// reading baseline, monitoring, suspicious-activity or failed-login data
// produces riskLevel=LOW with the single factor ASSESSMENT_ERROR, logged
// at error severity. The engine fails open so an infrastructure hiccup
// cannot lock out legitimate users; this applies uniformly, including to
// sensitive operations.
func (s *Service) Assess(ctx context.Context, tenantID string, actx *domain.ActivityContext, activityType domain.ActivityType) *domain.RiskAssessment {
	ctx, span := s.tracer.Start(ctx, "scorer.assess",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("activity.type", string(activityType)),
		))
	defer span.End()

	assessment, err := s.assess(ctx, tenantID, actx, activityType)
	if err != nil {
		slog.ErrorContext(ctx, "risk assessment failed, failing open",
			"tenant_id", tenantID,
			"user_id", actx.UserID,
			"activity_type", activityType,
			"error", err)
		assessment = &domain.RiskAssessment{
			UserID:       actx.UserID,
			ActivityType: activityType,
			Level:        domain.RiskLow,
			Factors:      []domain.RiskFactor{domain.FactorAssessmentError},
			AssessedAt:   s.now().UTC(),
		}
		span.SetAttributes(attribute.Bool("risk.fail_open", true))
		return assessment
	}

	span.SetAttributes(
		attribute.String("risk.level", assessment.Level.String()),
		attribute.Int("risk.factor_count", len(assessment.Factors)),
	)

	// The baseline stays current regardless of outcome. A failed merge
	// must not block the caller.
	if _, err := s.baselines.Record(ctx, tenantID, actx); err != nil {
		slog.WarnContext(ctx, "baseline merge failed",
			"tenant_id", tenantID, "user_id", actx.UserID, "error", err)
	}

	if assessment.Level != domain.RiskLow {
		s.recordSuspicious(ctx, tenantID, actx, assessment)
	}

	if s.audit != nil {
		s.audit.Record(ctx, tenantID, &domain.AuditEntry{
			ActorID: domain.SystemActor,
			UserID:  actx.UserID,
			Action:  domain.AuditActionAssessed,
			Details: map[string]string{
				"activityType": string(activityType),
				"riskLevel":    assessment.Level.String(),
				"factorCount":  fmt.Sprintf("%d", len(assessment.Factors)),
			},
		})
	}

	return assessment
}

// assess runs the cascade and returns an error for any infrastructure
// failure; Assess converts that into the fail-open result.
func (s *Service) assess(ctx context.Context, tenantID string, actx *domain.ActivityContext, activityType domain.ActivityType) (*domain.RiskAssessment, error) {
	now := s.now().UTC()

	b, err := s.baselines.Get(ctx, tenantID, actx.UserID)
	if err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}

	if b == nil {
		// First contact with this user. A first-ever login is the normal
		// bootstrap path and stays LOW; a sensitive operation with no
		// baseline at all is anomalous and goes straight to HIGH.
		level := domain.RiskLow
		if activityType.Sensitive() {
			level = domain.RiskHigh
		}
		return s.finish(actx, activityType, level, []domain.RiskFactor{domain.FactorNoBaseline}, now), nil
	}

	var factors []domain.RiskFactor
	forceHigh := false
	floorMedium := false

	// A field the caller did not supply is skipped, never flagged as new.
	if actx.IP != "" && !b.KnownIPs.Contains(actx.IP) {
		factors = append(factors, domain.FactorNewIP)
	}
	if actx.UserAgent.DeviceClass != "" && !b.KnownDeviceClasses.Contains(actx.UserAgent.DeviceClass) {
		factors = append(factors, domain.FactorNewDevice)
	}
	if actx.UserAgent.Browser != "" && !b.KnownBrowsers.Contains(actx.UserAgent.Browser) {
		factors = append(factors, domain.FactorNewBrowser)
	}
	if key := actx.Location.Key(); key != "" && !b.KnownLocations.Contains(key) {
		factors = append(factors, domain.FactorNewLocation)
	}

	// Habit checks are informational only: they never raise the level
	// past LOW on their own, but they count toward the two-factor
	// verification threshold.
	if b.DayHistogram.Count(int(actx.Timestamp.Weekday())) < s.cfg.MinHabitCount {
		factors = append(factors, domain.FactorUnusualDay)
	}
	if b.HourHistogram.Count(actx.Timestamp.Hour()) < s.cfg.MinHabitCount {
		factors = append(factors, domain.FactorUnusualTime)
	}

	suspicious, err := s.signals.RecentSuspiciousCount(ctx, tenantID, actx.UserID, s.cfg.SuspiciousWindow)
	if err != nil {
		return nil, fmt.Errorf("count recent suspicious activity: %w", err)
	}
	if suspicious > 0 {
		factors = append(factors, domain.FactorRecentSuspicious)
		forceHigh = true
	}

	monitoring, err := s.activeMonitoring(ctx, tenantID, actx.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("load monitoring state: %w", err)
	}
	if monitoring != nil {
		factors = append(factors, domain.FactorUnderMonitoring)
		switch monitoring.Level {
		case domain.MonitoringEnhanced:
			forceHigh = true
		case domain.MonitoringBasic:
			floorMedium = true
		}
	}

	failed, err := s.signals.FailedLoginCount(ctx, tenantID, actx.UserID, s.cfg.FailedLoginWindow)
	if err != nil {
		return nil, fmt.Errorf("count failed logins: %w", err)
	}
	if failed >= s.cfg.FailedLoginThreshold {
		factors = append(factors, domain.FactorMultipleFailed)
		forceHigh = true
	}

	if activityType.Sensitive() {
		floorMedium = true
		if len(factors) > 0 {
			forceHigh = true
		}
	}

	level := domain.RiskLow
	for _, f := range factors {
		if f == domain.FactorNewIP || f == domain.FactorNewDevice || f == domain.FactorNewLocation {
			level = domain.RiskMedium
			break
		}
	}
	if floorMedium {
		level = level.AtLeast(domain.RiskMedium)
	}
	if forceHigh {
		level = domain.RiskHigh
	}

	if s.rules != nil {
		level, factors = s.applyCustomRules(actx, activityType, level, factors, failed, b, now)
	}

	return s.finish(actx, activityType, level, factors, now), nil
}

// applyCustomRules evaluates the operator-defined escalation rules. A
// triggered rule contributes its factor tag and floors the level at the
// rule's minimum; custom rules can only escalate, never downgrade.
func (s *Service) applyCustomRules(actx *domain.ActivityContext, activityType domain.ActivityType, level domain.RiskLevel, factors []domain.RiskFactor, failedLogins int64, b *domain.UserBaseline, now time.Time) (domain.RiskLevel, []domain.RiskFactor) {
	ageDays := int64(now.Sub(b.FirstSeenAt).Hours() / 24)

	matches := s.rules.EvaluateAll(&rules.Input{
		Context:         actx,
		ActivityType:    activityType,
		Factors:         factors,
		FailedLogins:    failedLogins,
		BaselineAgeDays: ageDays,
	})

	for _, m := range matches {
		present := false
		for _, f := range factors {
			if f == m.Factor {
				present = true
				break
			}
		}
		if !present {
			factors = append(factors, m.Factor)
		}
		level = level.AtLeast(m.MinLevel)
	}

	return level, factors
}

func (s *Service) finish(actx *domain.ActivityContext, activityType domain.ActivityType, level domain.RiskLevel, factors []domain.RiskFactor, now time.Time) *domain.RiskAssessment {
	return &domain.RiskAssessment{
		UserID:               actx.UserID,
		ActivityType:         activityType,
		Level:                level,
		Factors:              factors,
		RequiresVerification: level == domain.RiskHigh || (level == domain.RiskMedium && len(factors) >= 2),
		AssessedAt:           now,
	}
}

func (s *Service) activeMonitoring(ctx context.Context, tenantID, userID string, now time.Time) (*domain.MonitoringState, error) {
	state, err := s.repo.GetMonitoringState(ctx, tenantID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !state.ActiveAt(now) {
		return nil, nil
	}
	return state, nil
}

// recordSuspicious persists the reviewable artifact for a non-LOW
// assessment. The write is advisory: a failure is logged, the assessment
// stands. The count-then-create race with a concurrent assessment may
// under-count by one, which is acceptable for a defense-in-depth signal.
func (s *Service) recordSuspicious(ctx context.Context, tenantID string, actx *domain.ActivityContext, assessment *domain.RiskAssessment) {
	rec := &domain.SuspiciousActivityRecord{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		UserID:       actx.UserID,
		ActivityType: assessment.ActivityType,
		RiskLevel:    assessment.Level,
		IP:           actx.IP,
		UserAgent:    actx.UserAgent.Browser + "/" + actx.UserAgent.OS,
		Location:     actx.Location.Key(),
		Details: domain.SuspiciousDetails{
			Factors: assessment.Factors,
			Context: map[string]string{
				"deviceClass": actx.UserAgent.DeviceClass,
				"timestamp":   actx.Timestamp.UTC().Format(time.RFC3339),
			},
		},
		Status:    domain.StatusPending,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.SaveSuspiciousActivity(ctx, tenantID, rec); err != nil {
		slog.ErrorContext(ctx, "failed to persist suspicious activity",
			"tenant_id", tenantID, "user_id", actx.UserID, "error", err)
		return
	}

	if s.audit != nil {
		s.audit.AnnounceSuspicious(ctx, tenantID, rec)
		s.audit.Record(ctx, tenantID, &domain.AuditEntry{
			ActorID: domain.SystemActor,
			UserID:  actx.UserID,
			Action:  domain.AuditActionSuspiciousCreated,
			Details: map[string]string{
				"recordId":  rec.ID,
				"riskLevel": rec.RiskLevel.String(),
			},
		})
	}
}
