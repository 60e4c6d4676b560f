// Package worker provides the async consumers behind the event bus: the
// audit persister and the periodic monitoring-expiry sweep.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ukallavi/Secura-sub000/internal/domain"
)

// Worker persists audit entries published on the bus and periodically
// reclaims storage for expired monitoring records. Neither job sits on
// the scoring path: the engine stays correct if the worker is down, it
// just accumulates unswept rows and unpersisted audit entries stay on
// the bus.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository

	// SweepInterval controls the monitoring-expiry sweep. Zero disables it.
	SweepInterval time.Duration

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to consume audit entries for.
	TenantIDs []string

	// SweepInterval between monitoring-expiry sweeps. Zero disables the
	// sweep; expiry stays passive either way.
	SweepInterval time.Duration
}

// NewWorker creates the background worker.
func NewWorker(bus domain.EventBus, repo domain.Repository) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes the audit consumer for each tenant and launches the
// sweep loop.
func (w *Worker) Start(cfg Config) error {
	for _, tenantID := range cfg.TenantIDs {
		sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicAudit, w.handleAuditMessage)
		if err != nil {
			slog.Error("failed to subscribe audit consumer",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
		w.subscriptions = append(w.subscriptions, sub)
	}

	if cfg.SweepInterval > 0 {
		w.SweepInterval = cfg.SweepInterval
		w.wg.Add(1)
		go w.sweepLoop()
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
		"sweep_interval", cfg.SweepInterval,
	)

	return nil
}

// handleAuditMessage persists one audit entry from the bus.
func (w *Worker) handleAuditMessage(ctx context.Context, msg *domain.Message) error {
	var entry domain.AuditEntry
	if err := json.Unmarshal(msg.Payload, &entry); err != nil {
		slog.Error("failed to parse audit entry",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	tenantID := entry.TenantID
	if tenantID == "" {
		tenantID = msg.TenantID
	}

	if err := w.repo.SaveAuditEntry(ctx, tenantID, &entry); err != nil {
		slog.Error("failed to persist audit entry",
			"audit_id", entry.ID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	slog.Debug("audit entry persisted",
		"audit_id", entry.ID,
		"action", entry.Action,
	)

	return nil
}

// sweepLoop deletes monitoring records past their expiry. Readers already
// treat expired records as inactive; the sweep only reclaims rows.
func (w *Worker) sweepLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			deleted, err := w.repo.DeleteExpiredMonitoringStates(w.ctx, time.Now().UTC())
			if err != nil {
				slog.Error("monitoring sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("swept expired monitoring records", "deleted", deleted)
			}
		}
	}
}

// Stop gracefully stops all consumers and the sweep loop.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
