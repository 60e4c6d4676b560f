// Package audit publishes the engine's best-effort side-channel events.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ukallavi/Secura-sub000/internal/domain"
)

// Sink sends audit entries and user notifications over the event bus.
// Every method is fire-and-forget: a publish failure is logged and
// counted, never returned, so the primary flow can never fail because
// the side channel did.
type Sink struct {
	bus domain.EventBus
}

// NewSink creates a new audit sink. bus may be nil, in which case every
// call is a no-op.
func NewSink(bus domain.EventBus) *Sink {
	return &Sink{bus: bus}
}

// Record publishes an audit entry.
func (s *Sink) Record(ctx context.Context, tenantID string, entry *domain.AuditEntry) {
	if s.bus == nil || entry == nil {
		return
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.TenantID = tenantID

	s.publish(ctx, tenantID, domain.TopicAudit, entry)
}

// NotifyMonitoringChange publishes a user-facing notice that monitoring
// was enabled or disabled on their account. Delivery (email, in-app) is
// the host's concern.
func (s *Sink) NotifyMonitoringChange(ctx context.Context, tenantID string, state *domain.MonitoringState, enabled bool) {
	if s.bus == nil || state == nil {
		return
	}

	notice := map[string]any{
		"userId":  state.UserID,
		"enabled": enabled,
		"level":   state.Level,
		"reason":  state.Reason,
	}
	s.publish(ctx, tenantID, domain.TopicNotification, notice)
}

// AnnounceSuspicious publishes a newly created suspicious-activity record
// for downstream consumers.
func (s *Sink) AnnounceSuspicious(ctx context.Context, tenantID string, rec *domain.SuspiciousActivityRecord) {
	if s.bus == nil || rec == nil {
		return
	}
	s.publish(ctx, tenantID, domain.TopicSuspiciousFlagged, rec)
}

func (s *Sink) publish(ctx context.Context, tenantID, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal side-channel event", "topic", topic, "error", err)
		return
	}

	if err := s.bus.Publish(ctx, tenantID, topic, data); err != nil {
		slog.Error("failed to publish side-channel event",
			"topic", topic,
			"tenant_id", tenantID,
			"error", err,
		)
	}
}
