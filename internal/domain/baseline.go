package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// StringSet is an unordered membership set. Serialized as a sorted JSON
// array at the persistence edge only.
type StringSet map[string]struct{}

// NewStringSet creates a set seeded with the given values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts a value. Inserting an existing value is a no-op.
func (s StringSet) Add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

// Contains reports membership.
func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Values returns the members in sorted order.
func (s StringSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}

// Histogram counts occurrences per bucket (weekday 0-6 or hour 0-23).
type Histogram map[int]int64

// Incr bumps the count for a bucket.
func (h Histogram) Incr(bucket int) {
	h[bucket]++
}

// Count returns the occurrence count for a bucket.
func (h Histogram) Count(bucket int) int64 {
	return h[bucket]
}

// Total returns the sum of all bucket counts.
func (h Histogram) Total() int64 {
	var total int64
	for _, c := range h {
		total += c
	}
	return total
}

// UserBaseline is the accumulated normal-behavior profile for one user.
// Baselines only ever grow: sets gain members, histogram counts increase,
// lastSeenAt moves forward. They are never overwritten wholesale.
type UserBaseline struct {
	TenantID           string    `json:"tenantId"`
	UserID             string    `json:"userId"`
	FirstSeenAt        time.Time `json:"firstSeenAt"`
	LastSeenAt         time.Time `json:"lastSeenAt"`
	KnownIPs           StringSet `json:"knownIPs"`
	KnownDeviceClasses StringSet `json:"knownDeviceClasses"`
	KnownBrowsers      StringSet `json:"knownBrowsers"`
	KnownLocations     StringSet `json:"knownLocations"`
	DayHistogram       Histogram `json:"dayHistogram"`
	HourHistogram      Histogram `json:"hourHistogram"`
}

// NewBaseline seeds a baseline entirely from the first observed activity.
func NewBaseline(tenantID string, ctx *ActivityContext) *UserBaseline {
	b := &UserBaseline{
		TenantID:           tenantID,
		UserID:             ctx.UserID,
		FirstSeenAt:        ctx.Timestamp,
		LastSeenAt:         ctx.Timestamp,
		KnownIPs:           NewStringSet(),
		KnownDeviceClasses: NewStringSet(),
		KnownBrowsers:      NewStringSet(),
		KnownLocations:     NewStringSet(),
		DayHistogram:       make(Histogram),
		HourHistogram:      make(Histogram),
	}
	b.Merge(ctx)
	return b
}

// Merge folds an activity into the baseline. Safe to apply repeatedly:
// set unions are idempotent and the seen-at bounds are monotone. Histogram
// increments are the only non-idempotent part, which is what the testable
// property sum(histogram) == N counts on.
func (b *UserBaseline) Merge(ctx *ActivityContext) {
	b.KnownIPs.Add(ctx.IP)
	b.KnownDeviceClasses.Add(ctx.UserAgent.DeviceClass)
	b.KnownBrowsers.Add(ctx.UserAgent.Browser)
	b.KnownLocations.Add(ctx.Location.Key())

	b.DayHistogram.Incr(int(ctx.Timestamp.Weekday()))
	b.HourHistogram.Incr(ctx.Timestamp.Hour())

	if b.FirstSeenAt.IsZero() || ctx.Timestamp.Before(b.FirstSeenAt) {
		b.FirstSeenAt = ctx.Timestamp
	}
	if ctx.Timestamp.After(b.LastSeenAt) {
		b.LastSeenAt = ctx.Timestamp
	}
}
