package baseline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ukallavi/Secura-sub000/internal/cache"
	"github.com/ukallavi/Secura-sub000/internal/domain"
	"github.com/ukallavi/Secura-sub000/internal/repository"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "secura-baseline-*.db")
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

	return NewService(repo, cache.NewLRUCache(100), time.Minute)
}

func activityAt(userID, ip string, ts time.Time) *domain.ActivityContext {
	return &domain.ActivityContext{
		UserID:    userID,
		IP:        ip,
		UserAgent: domain.UserAgent{Browser: "Firefox", OS: "Linux", DeviceClass: "desktop"},
		Location:  domain.GeoLocation{Country: "US", Region: "CA"},
		Timestamp: ts,
	}
}

func TestGetUnknownUser(t *testing.T) {
	svc := newTestService(t)

	b, err := svc.Get(context.Background(), "tenant-1", "never-seen")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if b != nil {
		t.Errorf("expected nil baseline for unknown user, got %+v", b)
	}
}

func TestRecordCreatesAndMerges(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 6, 14, 0, 0, 0, time.UTC)

	t.Run("FirstActivitySeeds", func(t *testing.T) {
		b, err := svc.Record(ctx, "tenant-1", activityAt("user-1", "203.0.113.10", ts))
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if !b.KnownIPs.Contains("203.0.113.10") {
			t.Error("first record should seed the IP set")
		}
	})

	t.Run("SubsequentActivityGrows", func(t *testing.T) {
		b, err := svc.Record(ctx, "tenant-1", activityAt("user-1", "198.51.100.7", ts.Add(24*time.Hour)))
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if !b.KnownIPs.Contains("203.0.113.10") || !b.KnownIPs.Contains("198.51.100.7") {
			t.Error("merge must grow the IP set, not replace it")
		}
	})

	t.Run("GetServesUpdatedBaseline", func(t *testing.T) {
		b, err := svc.Get(ctx, "tenant-1", "user-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if b == nil {
			t.Fatal("expected baseline after records")
		}
		if b.DayHistogram.Total() != 2 {
			t.Errorf("expected 2 recorded activities, got histogram total %d", b.DayHistogram.Total())
		}
	})
}

func TestConcurrentRecordsDoNotLoseUpdates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 6, 14, 0, 0, 0, time.UTC)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			// Every goroutine contributes a distinct IP and one histogram
			// increment at the same weekday/hour.
			ip := fmt.Sprintf("10.0.0.%d", i)
			if _, err := svc.Record(ctx, "tenant-1", activityAt("user-1", ip, base)); err != nil {
				t.Errorf("Record failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	b, err := svc.Get(ctx, "tenant-1", "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := len(b.KnownIPs); got != n {
		t.Errorf("expected %d distinct IPs after concurrent merges, got %d", n, got)
	}
	if got := b.HourHistogram.Count(14); got != n {
		t.Errorf("expected hour-14 count %d, got %d", n, got)
	}
}

func TestTenantBaselinesAreIsolated(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 6, 14, 0, 0, 0, time.UTC)

	if _, err := svc.Record(ctx, "tenant-1", activityAt("user-1", "203.0.113.10", ts)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	b, err := svc.Get(ctx, "tenant-2", "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if b != nil {
		t.Error("tenant-2 must not see tenant-1 baselines")
	}
}
