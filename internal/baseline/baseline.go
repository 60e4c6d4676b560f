// Package baseline maintains per-user behavior profiles.
package baseline

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ukallavi/Secura-sub000/internal/domain"
	"github.com/ukallavi/Secura-sub000/internal/repository"
)

const lockStripes = 64

// Service owns all baseline reads and writes. Writes are whole-object
// read-modify-write against the repository, so concurrent merges for the
// same user are serialized through a striped per-user lock: correctness
// (no lost set members or histogram counts) over write throughput, which
// is fine because baseline writes are low-frequency relative to reads.
type Service struct {
	repo     domain.Repository
	cache    domain.Cache
	cacheTTL time.Duration

	locks [lockStripes]sync.Mutex
}

// NewService creates a baseline service. cache may be nil.
func NewService(repo domain.Repository, cache domain.Cache, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Get returns the user's baseline, or nil if the user has never been seen.
// Reads go through the cache; a cache failure falls through to the
// repository rather than failing the read.
func (s *Service) Get(ctx context.Context, tenantID string, userID string) (*domain.UserBaseline, error) {
	if s.cache != nil {
		if b, err := s.cache.GetBaseline(ctx, tenantID, userID); err == nil && b != nil {
			return b, nil
		}
	}

	b, err := s.repo.GetBaseline(ctx, tenantID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetBaseline(ctx, tenantID, userID, b, s.cacheTTL)
	}

	return b, nil
}

// Record folds an activity into the user's baseline, creating the baseline
// on first sight, and persists the result. The cache entry is explicitly
// replaced on every write; it never goes stale implicitly.
func (s *Service) Record(ctx context.Context, tenantID string, actx *domain.ActivityContext) (*domain.UserBaseline, error) {
	lock := s.lockFor(tenantID, actx.UserID)
	lock.Lock()
	defer lock.Unlock()

	// Load from the repository, not the cache: the merge must start from
	// the latest persisted state or concurrent updates would be lost.
	b, err := s.repo.GetBaseline(ctx, tenantID, actx.UserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		b = domain.NewBaseline(tenantID, actx)
	case err != nil:
		return nil, err
	default:
		b.Merge(actx)
	}

	if err := s.repo.SaveBaseline(ctx, tenantID, b); err != nil {
		if s.cache != nil {
			_ = s.cache.DeleteBaseline(ctx, tenantID, actx.UserID)
		}
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetBaseline(ctx, tenantID, actx.UserID, b, s.cacheTTL)
	}

	return b, nil
}

func (s *Service) lockFor(tenantID, userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(tenantID))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockStripes]
}
