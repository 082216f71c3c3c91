// Package history provides previous-score lookup for tier-change detection.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Munns729/open-radar-sub001/internal/domain"
	"github.com/Munns729/open-radar-sub001/internal/repository"
)

const scoreCacheTTL = 30 * time.Minute

// Service resolves the most recent persisted score for a company under a
// thesis, consulting the cache before the repository.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new history service. The cache may be nil, in which
// case every lookup goes to the repository.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// PreviousScore returns the last persisted score for a company under a thesis
// version, or nil if the company has never been scored under it.
func (s *Service) PreviousScore(ctx context.Context, tenantID, thesisID string, version int, companyID string) (*domain.ScoreResult, error) {
	if tenantID == "" || companyID == "" {
		return nil, fmt.Errorf("tenantID and companyID are required")
	}

	if s.cache != nil {
		cached, err := s.cache.GetLatestScore(ctx, tenantID, thesisID, companyID)
		// The cache holds the latest score across versions; after a rollout it
		// may still carry the prior version. Comparisons are version-scoped,
		// so a stale entry falls through to the repository.
		if err == nil && cached != nil && cached.ThesisVersion == version {
			return cached, nil
		}
	}

	if s.repo == nil {
		return nil, fmt.Errorf("no data source available")
	}

	result, err := s.repo.GetScoreResult(ctx, tenantID, companyID, thesisID, version)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get score result: %w", err)
	}

	return result, nil
}

// Record stores a freshly computed score as the latest for its company so
// subsequent tier comparisons see it without a repository round trip.
func (s *Service) Record(ctx context.Context, tenantID string, result *domain.ScoreResult) {
	if s.cache == nil || result == nil {
		return
	}
	_ = s.cache.SetLatestScore(ctx, tenantID, result, scoreCacheTTL)
}

// TierChanged reports whether the new result lands in a different tier than
// the previous one. A first-ever score counts as a change when it lands in
// any tier other than the catch-all.
func TierChanged(previous, current *domain.ScoreResult) bool {
	if current == nil {
		return false
	}
	if previous == nil {
		return current.Tier != domain.TierUnclassified
	}
	return previous.Tier != current.Tier
}
