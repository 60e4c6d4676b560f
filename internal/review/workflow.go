// Package review implements the admin workflow over suspicious-activity
// records: listing with filters and resolving PENDING records.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukallavi/Secura-sub000/internal/audit"
	"github.com/ukallavi/Secura-sub000/internal/domain"
	"github.com/ukallavi/Secura-sub000/internal/repository"
)

// Workflow drives suspicious-activity review.
type Workflow struct {
	repo  domain.Repository
	audit *audit.Sink

	now func() time.Time
}

// NewWorkflow creates a review workflow.
func NewWorkflow(repo domain.Repository, sink *audit.Sink) *Workflow {
	return &Workflow{
		repo:  repo,
		audit: sink,
		now:   time.Now,
	}
}

// List returns a page of records matching the filter, newest first, plus
// the total match count across all pages. Filters are conjunctive.
func (w *Workflow) List(ctx context.Context, tenantID string, filter domain.SuspiciousActivityFilter, page, pageSize int) ([]*domain.SuspiciousActivityRecord, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", repository.ErrInvalidInput, filter.Status)
	}
	return w.repo.ListSuspiciousActivities(ctx, tenantID, filter, page, pageSize)
}

// Get returns one record by ID.
func (w *Workflow) Get(ctx context.Context, tenantID, id string) (*domain.SuspiciousActivityRecord, error) {
	return w.repo.GetSuspiciousActivity(ctx, tenantID, id)
}

// Review applies an admin decision to a record. APPROVE, REJECT and FLAG
// map to the corresponding status; reviewedAt/reviewedBy/reviewNotes are
// stamped and an audit entry is appended. Re-reviewing an already
// resolved record is not an error: the last review wins.
func (w *Workflow) Review(ctx context.Context, tenantID, id string, action domain.ReviewAction, notes, adminID string) (*domain.SuspiciousActivityRecord, error) {
	target, err := action.TargetStatus()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
	}
	if adminID == "" {
		return nil, fmt.Errorf("%w: adminID is required", repository.ErrInvalidInput)
	}

	rec, err := w.repo.GetSuspiciousActivity(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load suspicious activity: %w", err)
	}

	now := w.now().UTC()
	rec.Status = target
	rec.ReviewedAt = &now
	rec.ReviewedBy = adminID
	rec.ReviewNotes = notes

	if err := w.repo.UpdateSuspiciousActivityReview(ctx, tenantID, rec); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	if w.audit != nil {
		w.audit.Record(ctx, tenantID, &domain.AuditEntry{
			ActorID: adminID,
			UserID:  rec.UserID,
			Action:  domain.AuditActionSuspiciousReviewed,
			Details: map[string]string{
				"recordId": rec.ID,
				"action":   string(action),
				"status":   string(target),
			},
		})
	}

	return rec, nil
}
