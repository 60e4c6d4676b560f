package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad time literal %s: %v", value, err)
	}
	return ts
}

func TestStringSet(t *testing.T) {
	t.Run("AddAndContains", func(t *testing.T) {
		s := NewStringSet("a")
		s.Add("b")
		s.Add("b")

		if !s.Contains("a") || !s.Contains("b") {
			t.Error("expected set to contain a and b")
		}
		if s.Contains("c") {
			t.Error("did not expect c")
		}
		if len(s) != 2 {
			t.Errorf("expected 2 members, got %d", len(s))
		}
	})

	t.Run("IgnoresEmptyString", func(t *testing.T) {
		s := NewStringSet()
		s.Add("")
		if len(s) != 0 {
			t.Errorf("empty string should not be stored, got %d members", len(s))
		}
	})

	t.Run("MarshalsAsSortedArray", func(t *testing.T) {
		s := NewStringSet("zebra", "apple")
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(data) != `["apple","zebra"]` {
			t.Errorf("expected sorted array, got %s", data)
		}

		var back StringSet
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if !back.Contains("zebra") || !back.Contains("apple") {
			t.Error("round trip lost members")
		}
	})
}

func TestHistogram(t *testing.T) {
	h := make(Histogram)
	h.Incr(3)
	h.Incr(3)
	h.Incr(5)

	if h.Count(3) != 2 {
		t.Errorf("expected bucket 3 count 2, got %d", h.Count(3))
	}
	if h.Count(0) != 0 {
		t.Errorf("expected empty bucket count 0, got %d", h.Count(0))
	}
	if h.Total() != 3 {
		t.Errorf("expected total 3, got %d", h.Total())
	}
}

func TestBaselineMerge(t *testing.T) {
	// Tuesday 14:00 UTC
	first := &ActivityContext{
		UserID: "user-1",
		IP:     "203.0.113.10",
		UserAgent: UserAgent{
			Browser:     "Firefox",
			OS:          "Linux",
			DeviceClass: "desktop",
		},
		Location:  GeoLocation{Country: "US", Region: "CA"},
		Timestamp: mustTime(t, "2026-01-06T14:00:00Z"),
	}

	b := NewBaseline("tenant-1", first)

	t.Run("SeedsFromFirstActivity", func(t *testing.T) {
		if !b.KnownIPs.Contains("203.0.113.10") {
			t.Error("expected IP in baseline")
		}
		if !b.KnownBrowsers.Contains("Firefox") {
			t.Error("expected browser in baseline")
		}
		if !b.KnownDeviceClasses.Contains("desktop") {
			t.Error("expected device class in baseline")
		}
		if !b.KnownLocations.Contains("US/CA") {
			t.Error("expected location key country/region in baseline")
		}
		if b.DayHistogram.Count(int(time.Tuesday)) != 1 {
			t.Error("expected Tuesday count 1")
		}
		if b.HourHistogram.Count(14) != 1 {
			t.Error("expected hour 14 count 1")
		}
		if !b.FirstSeenAt.Equal(first.Timestamp) || !b.LastSeenAt.Equal(first.Timestamp) {
			t.Error("seen-at bounds should equal first activity timestamp")
		}
	})

	t.Run("SetsGrowOnly", func(t *testing.T) {
		b.Merge(&ActivityContext{
			UserID:    "user-1",
			IP:        "198.51.100.7",
			UserAgent: UserAgent{Browser: "Chrome", DeviceClass: "mobile"},
			Location:  GeoLocation{Country: "DE", Region: "BE"},
			Timestamp: mustTime(t, "2026-01-07T09:00:00Z"),
		})

		if !b.KnownIPs.Contains("203.0.113.10") || !b.KnownIPs.Contains("198.51.100.7") {
			t.Error("merge must union IPs, never replace")
		}
		if !b.KnownLocations.Contains("US/CA") || !b.KnownLocations.Contains("DE/BE") {
			t.Error("merge must union locations")
		}
	})

	t.Run("HistogramTotalCountsMerges", func(t *testing.T) {
		if got := b.DayHistogram.Total(); got != 2 {
			t.Errorf("expected day histogram total 2 after 2 merges, got %d", got)
		}
		if got := b.HourHistogram.Total(); got != 2 {
			t.Errorf("expected hour histogram total 2 after 2 merges, got %d", got)
		}
	})

	t.Run("SeenAtBoundsAreMonotone", func(t *testing.T) {
		// Out-of-order activity: earlier than firstSeenAt
		early := mustTime(t, "2026-01-01T08:00:00Z")
		b.Merge(&ActivityContext{
			UserID:    "user-1",
			IP:        "203.0.113.10",
			Timestamp: early,
		})

		if !b.FirstSeenAt.Equal(early) {
			t.Errorf("firstSeenAt should move back to %v, got %v", early, b.FirstSeenAt)
		}
		if !b.LastSeenAt.Equal(mustTime(t, "2026-01-07T09:00:00Z")) {
			t.Errorf("lastSeenAt should not move backward, got %v", b.LastSeenAt)
		}
	})
}
