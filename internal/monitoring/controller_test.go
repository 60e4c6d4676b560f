package monitoring

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ukallavi/Secura-sub000/internal/domain"
	"github.com/ukallavi/Secura-sub000/internal/repository"
)

const testTenant = "tenant-a"

func newTestController(t *testing.T) *Controller {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "secura-monitoring-*.db")
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

	return NewController(repo, nil)
}

func TestEnable(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesTimeBoxedState", func(t *testing.T) {
		c := newTestController(t)

		state, err := c.Enable(ctx, testTenant, "u-1", domain.MonitoringEnhanced, "fraud report", 30, "admin-1")
		if err != nil {
			t.Fatalf("failed to enable monitoring: %v", err)
		}
		if state.Level != domain.MonitoringEnhanced {
			t.Errorf("expected ENHANCED, got %s", state.Level)
		}
		wantExpiry := state.EnabledAt.Add(30 * 24 * time.Hour)
		if !state.ExpiresAt.Equal(wantExpiry) {
			t.Errorf("expected expiry %v, got %v", wantExpiry, state.ExpiresAt)
		}
		if !state.ActiveAt(time.Now()) {
			t.Error("freshly enabled state must be active")
		}
	})

	t.Run("ReEnableReplacesAndDoesNotStack", func(t *testing.T) {
		c := newTestController(t)

		if _, err := c.Enable(ctx, testTenant, "u-2", domain.MonitoringBasic, "first", 30, "admin-1"); err != nil {
			t.Fatalf("failed to enable: %v", err)
		}
		second, err := c.Enable(ctx, testTenant, "u-2", domain.MonitoringEnhanced, "second", 7, "admin-2")
		if err != nil {
			t.Fatalf("failed to re-enable: %v", err)
		}

		got, err := c.Get(ctx, testTenant, "u-2")
		if err != nil {
			t.Fatalf("failed to get state: %v", err)
		}
		if got.Level != domain.MonitoringEnhanced || got.Reason != "second" {
			t.Errorf("re-enable must overwrite level and reason, got %s %q", got.Level, got.Reason)
		}
		// The new window is 7 days from the second call, not 30+7.
		if !got.ExpiresAt.Equal(second.EnabledAt.Add(7 * 24 * time.Hour)) {
			t.Errorf("durations must not stack, got expiry %v", got.ExpiresAt)
		}
	})

	t.Run("RejectsInvalidInput", func(t *testing.T) {
		c := newTestController(t)

		cases := []struct {
			name     string
			userID   string
			level    domain.MonitoringLevel
			duration int
		}{
			{"UnknownLevel", "u-3", domain.MonitoringLevel("EXTREME"), 30},
			{"ZeroDuration", "u-3", domain.MonitoringBasic, 0},
			{"NegativeDuration", "u-3", domain.MonitoringBasic, -5},
			{"MissingUser", "", domain.MonitoringBasic, 30},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := c.Enable(ctx, testTenant, tc.userID, tc.level, "r", tc.duration, "admin-1")
				if !errors.Is(err, repository.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
			})
		}
	})
}

func TestDisable(t *testing.T) {
	ctx := context.Background()

	t.Run("SoftClosesActiveState", func(t *testing.T) {
		c := newTestController(t)

		if _, err := c.Enable(ctx, testTenant, "u-4", domain.MonitoringBasic, "r", 30, "admin-1"); err != nil {
			t.Fatalf("failed to enable: %v", err)
		}

		state, err := c.Disable(ctx, testTenant, "u-4", "admin-2")
		if err != nil {
			t.Fatalf("failed to disable: %v", err)
		}
		if state.DisabledAt == nil || state.DisabledBy != "admin-2" {
			t.Errorf("expected disabled stamp, got %+v", state)
		}

		// The record survives for audit; it is just no longer in force.
		got, err := c.Get(ctx, testTenant, "u-4")
		if err != nil {
			t.Fatalf("failed to get state: %v", err)
		}
		if got.DisabledAt == nil {
			t.Error("disable must persist")
		}

		active, err := c.Active(ctx, testTenant, "u-4")
		if err != nil {
			t.Fatalf("failed to query active state: %v", err)
		}
		if active != nil {
			t.Error("disabled state must not be active")
		}
	})

	t.Run("NotFoundWhenNeverEnabled", func(t *testing.T) {
		c := newTestController(t)

		_, err := c.Disable(ctx, testTenant, "u-none", "admin-1")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("NotFoundWhenExpired", func(t *testing.T) {
		c := newTestController(t)
		c.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
		if _, err := c.Enable(ctx, testTenant, "u-5", domain.MonitoringBasic, "r", 1, "admin-1"); err != nil {
			t.Fatalf("failed to enable: %v", err)
		}
		c.now = time.Now

		_, err := c.Disable(ctx, testTenant, "u-5", "admin-1")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expired state must not be disableable, got %v", err)
		}
	})

	t.Run("NotFoundWhenAlreadyDisabled", func(t *testing.T) {
		c := newTestController(t)

		if _, err := c.Enable(ctx, testTenant, "u-6", domain.MonitoringBasic, "r", 30, "admin-1"); err != nil {
			t.Fatalf("failed to enable: %v", err)
		}
		if _, err := c.Disable(ctx, testTenant, "u-6", "admin-1"); err != nil {
			t.Fatalf("failed to disable: %v", err)
		}

		_, err := c.Disable(ctx, testTenant, "u-6", "admin-1")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("second disable must report ErrNotFound, got %v", err)
		}
	})
}

func TestActive(t *testing.T) {
	ctx := context.Background()

	t.Run("NilWhenNeverEnabled", func(t *testing.T) {
		c := newTestController(t)
		state, err := c.Active(ctx, testTenant, "u-none")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != nil {
			t.Errorf("expected nil, got %+v", state)
		}
	})

	t.Run("NilAfterPassiveExpiry", func(t *testing.T) {
		c := newTestController(t)
		c.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
		if _, err := c.Enable(ctx, testTenant, "u-7", domain.MonitoringEnhanced, "r", 1, "admin-1"); err != nil {
			t.Fatalf("failed to enable: %v", err)
		}
		c.now = time.Now

		state, err := c.Active(ctx, testTenant, "u-7")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != nil {
			t.Error("expired state must not be in force")
		}

		// Get still returns the raw record.
		if _, err := c.Get(ctx, testTenant, "u-7"); err != nil {
			t.Errorf("expected raw record to remain readable, got %v", err)
		}
	})
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t)

	c.now = func() time.Time { return time.Now().Add(-72 * time.Hour) }
	if _, err := c.Enable(ctx, testTenant, "u-old", domain.MonitoringBasic, "r", 1, "admin-1"); err != nil {
		t.Fatalf("failed to enable: %v", err)
	}
	c.now = time.Now
	if _, err := c.Enable(ctx, testTenant, "u-fresh", domain.MonitoringBasic, "r", 30, "admin-1"); err != nil {
		t.Fatalf("failed to enable: %v", err)
	}

	n, err := c.SweepExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 reclaimed record, got %d", n)
	}

	if _, err := c.Get(ctx, testTenant, "u-old"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("swept record must be gone, got %v", err)
	}
	if _, err := c.Get(ctx, testTenant, "u-fresh"); err != nil {
		t.Errorf("active record must survive the sweep, got %v", err)
	}
}
