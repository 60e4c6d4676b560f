// Package signals provides the auxiliary signal reads consumed by the
// risk scorer: failed-login velocity and recent suspicious activity.
package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ukallavi/Secura-sub000/internal/domain"
)

// Service counts windowed events for users.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new signals service. cache may be nil.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// RecordLogin persists a login attempt. For failed attempts it also bumps
// a windowed cache counter and returns the count of failures the counter
// has seen in its current window, so callers can react immediately without
// a repository round trip. Returns 0 for successful attempts.
func (s *Service) RecordLogin(ctx context.Context, tenantID string, event *domain.LoginEvent, window time.Duration) (int64, error) {
	if tenantID == "" || event == nil || event.UserID == "" {
		return 0, fmt.Errorf("tenantID and userID are required")
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := s.repo.SaveLoginEvent(ctx, tenantID, event); err != nil {
		return 0, fmt.Errorf("failed to save login event: %w", err)
	}

	if event.Success || s.cache == nil {
		return 0, nil
	}

	count, err := s.cache.IncrementCounter(ctx, tenantID, "failed-login:"+event.UserID, window)
	if err != nil {
		// The counter is advisory; the repository remains the source of
		// truth for scoring.
		return 0, nil
	}
	return count, nil
}

// FailedLoginCount returns the number of failed logins for a user within
// the trailing window.
func (s *Service) FailedLoginCount(ctx context.Context, tenantID, userID string, window time.Duration) (int64, error) {
	if tenantID == "" || userID == "" {
		return 0, fmt.Errorf("tenantID and userID are required")
	}

	since := time.Now().Add(-window)
	return s.repo.CountFailedLogins(ctx, tenantID, userID, since)
}

// RecentSuspiciousCount returns the number of suspicious-activity records
// for a user within the trailing window.
func (s *Service) RecentSuspiciousCount(ctx context.Context, tenantID, userID string, window time.Duration) (int64, error) {
	if tenantID == "" || userID == "" {
		return 0, fmt.Errorf("tenantID and userID are required")
	}

	since := time.Now().Add(-window)
	return s.repo.CountSuspiciousActivities(ctx, tenantID, userID, since)
}
