package signals

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ukallavi/Secura-sub000/internal/cache"
	"github.com/ukallavi/Secura-sub000/internal/domain"
	"github.com/ukallavi/Secura-sub000/internal/repository"
)

func newTestService(t *testing.T) (*Service, domain.Repository) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "secura-signals-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return NewService(repo, cache.NewLRUCache(100)), repo
}

func TestRecordLogin(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	t.Run("SuccessfulLoginReturnsZero", func(t *testing.T) {
		count, err := svc.RecordLogin(ctx, "tenant-1", &domain.LoginEvent{
			UserID:  "user-1",
			IP:      "203.0.113.10",
			Success: true,
		}, 24*time.Hour)
		if err != nil {
			t.Fatalf("RecordLogin failed: %v", err)
		}
		if count != 0 {
			t.Errorf("successful login should not bump the failure counter, got %d", count)
		}
	})

	t.Run("FailedLoginsCountUp", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			count, err := svc.RecordLogin(ctx, "tenant-1", &domain.LoginEvent{
				UserID:  "user-1",
				IP:      "203.0.113.10",
				Success: false,
			}, 24*time.Hour)
			if err != nil {
				t.Fatalf("RecordLogin failed: %v", err)
			}
			if count != want {
				t.Errorf("expected counter %d, got %d", want, count)
			}
		}
	})

	t.Run("DefaultsIDAndTimestamp", func(t *testing.T) {
		event := &domain.LoginEvent{UserID: "user-2", Success: true}
		if _, err := svc.RecordLogin(ctx, "tenant-1", event, 24*time.Hour); err != nil {
			t.Fatalf("RecordLogin failed: %v", err)
		}
		if event.ID == "" {
			t.Error("expected generated event ID")
		}
		if event.Timestamp.IsZero() {
			t.Error("expected defaulted timestamp")
		}
	})

	t.Run("RejectsMissingUser", func(t *testing.T) {
		if _, err := svc.RecordLogin(ctx, "tenant-1", &domain.LoginEvent{}, time.Hour); err == nil {
			t.Error("expected error for missing userID")
		}
	})

	t.Run("RepositoryCountMatchesWindow", func(t *testing.T) {
		// An old failure outside the window, written directly.
		err := repo.SaveLoginEvent(ctx, "tenant-1", &domain.LoginEvent{
			ID:        "stale",
			UserID:    "user-1",
			Success:   false,
			Timestamp: time.Now().Add(-48 * time.Hour),
		})
		if err != nil {
			t.Fatalf("SaveLoginEvent failed: %v", err)
		}

		count, err := svc.FailedLoginCount(ctx, "tenant-1", "user-1", 24*time.Hour)
		if err != nil {
			t.Fatalf("FailedLoginCount failed: %v", err)
		}
		if count != 3 {
			t.Errorf("expected 3 failures inside the window, got %d", count)
		}
	})
}

func TestRecentSuspiciousCount(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	records := []struct {
		id  string
		age time.Duration
	}{
		{"sa-fresh", 24 * time.Hour},
		{"sa-week-old", 6 * 24 * time.Hour},
		{"sa-stale", 9 * 24 * time.Hour},
	}
	for _, r := range records {
		err := repo.SaveSuspiciousActivity(ctx, "tenant-1", &domain.SuspiciousActivityRecord{
			ID:           r.id,
			TenantID:     "tenant-1",
			UserID:       "user-1",
			ActivityType: domain.ActivityLogin,
			RiskLevel:    domain.RiskMedium,
			Status:       domain.StatusPending,
			CreatedAt:    time.Now().Add(-r.age),
		})
		if err != nil {
			t.Fatalf("SaveSuspiciousActivity failed: %v", err)
		}
	}

	count, err := svc.RecentSuspiciousCount(ctx, "tenant-1", "user-1", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("RecentSuspiciousCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 records inside 7 days, got %d", count)
	}
}
