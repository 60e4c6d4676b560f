// Package monitoring manages admin-imposed heightened scrutiny of users.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukallavi/Secura-sub000/internal/audit"
	"github.com/ukallavi/Secura-sub000/internal/domain"
	"github.com/ukallavi/Secura-sub000/internal/repository"
)

// Controller owns the time-boxed monitoring state.
type Controller struct {
	repo  domain.Repository
	audit *audit.Sink

	now func() time.Time
}

// NewController creates a monitoring controller.
func NewController(repo domain.Repository, sink *audit.Sink) *Controller {
	return &Controller{
		repo:  repo,
		audit: sink,
		now:   time.Now,
	}
}

// Enable places a user under monitoring, replacing any existing record in
// place. Re-enabling does not stack durations: the new expiry is computed
// from now, and the previous level/reason are overwritten.
func (c *Controller) Enable(ctx context.Context, tenantID, userID string, level domain.MonitoringLevel, reason string, durationDays int, actor string) (*domain.MonitoringState, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: unknown monitoring level %q", repository.ErrInvalidInput, level)
	}
	if durationDays <= 0 {
		return nil, fmt.Errorf("%w: durationDays must be positive", repository.ErrInvalidInput)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: userID is required", repository.ErrInvalidInput)
	}

	now := c.now().UTC()
	state := &domain.MonitoringState{
		TenantID:  tenantID,
		UserID:    userID,
		Level:     level,
		Reason:    reason,
		EnabledAt: now,
		ExpiresAt: now.Add(time.Duration(durationDays) * 24 * time.Hour),
		EnabledBy: actor,
	}

	if err := c.repo.SaveMonitoringState(ctx, tenantID, state); err != nil {
		return nil, fmt.Errorf("failed to save monitoring state: %w", err)
	}

	if c.audit != nil {
		c.audit.NotifyMonitoringChange(ctx, tenantID, state, true)
		c.audit.Record(ctx, tenantID, &domain.AuditEntry{
			ActorID: actor,
			UserID:  userID,
			Action:  domain.AuditActionMonitoringEnabled,
			Details: map[string]string{
				"level":     string(level),
				"reason":    reason,
				"expiresAt": state.ExpiresAt.Format(time.RFC3339),
			},
		})
	}

	return state, nil
}

// Disable soft-closes the active monitoring record. Returns ErrNotFound
// if the user has no monitoring in force right now; an expired or already
// disabled record does not count.
func (c *Controller) Disable(ctx context.Context, tenantID, userID, actor string) (*domain.MonitoringState, error) {
	state, err := c.repo.GetMonitoringState(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load monitoring state: %w", err)
	}

	now := c.now().UTC()
	if !state.ActiveAt(now) {
		return nil, repository.ErrNotFound
	}

	state.DisabledAt = &now
	state.DisabledBy = actor

	if err := c.repo.SaveMonitoringState(ctx, tenantID, state); err != nil {
		return nil, fmt.Errorf("failed to save monitoring state: %w", err)
	}

	if c.audit != nil {
		c.audit.NotifyMonitoringChange(ctx, tenantID, state, false)
		c.audit.Record(ctx, tenantID, &domain.AuditEntry{
			ActorID: actor,
			UserID:  userID,
			Action:  domain.AuditActionMonitoringDisabled,
			Details: map[string]string{"level": string(state.Level)},
		})
	}

	return state, nil
}

// Get returns the monitoring record for a user whether or not it is still
// active, or ErrNotFound if none was ever set.
func (c *Controller) Get(ctx context.Context, tenantID, userID string) (*domain.MonitoringState, error) {
	return c.repo.GetMonitoringState(ctx, tenantID, userID)
}

// Active returns the monitoring state currently in force for a user, or
// nil if none. Expiry is passive: a record past expiresAt is simply not
// returned.
func (c *Controller) Active(ctx context.Context, tenantID, userID string) (*domain.MonitoringState, error) {
	state, err := c.repo.GetMonitoringState(ctx, tenantID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !state.ActiveAt(c.now().UTC()) {
		return nil, nil
	}
	return state, nil
}

// SweepExpired reclaims storage for records whose expiry has passed. The
// sweep is an optimization only: readers already ignore expired records.
func (c *Controller) SweepExpired(ctx context.Context, before time.Time) (int64, error) {
	return c.repo.DeleteExpiredMonitoringStates(ctx, before)
}
