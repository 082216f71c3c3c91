package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Munns729/open-radar-sub001/internal/cache"
	"github.com/Munns729/open-radar-sub001/internal/domain"
	"github.com/Munns729/open-radar-sub001/internal/repository"
)

// scoreRepo stubs the repository with a fixed set of score results.
type scoreRepo struct {
	domain.Repository

	mu     sync.Mutex
	scores map[string]*domain.ScoreResult
	calls  int
}

func (r *scoreRepo) GetScoreResult(ctx context.Context, tenantID, companyID, thesisID string, version int) (*domain.ScoreResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	res, ok := r.scores[companyID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return res, nil
}

func testResult(companyID, tier string, score int) *domain.ScoreResult {
	return &domain.ScoreResult{
		CompanyID:     companyID,
		ThesisID:      "thesis-001",
		ThesisVersion: 1,
		Score:         score,
		Tier:          tier,
		Timestamp:     time.Now().UTC(),
	}
}

func TestPreviousScore(t *testing.T) {
	ctx := context.Background()

	t.Run("RepoFallback", func(t *testing.T) {
		repo := &scoreRepo{scores: map[string]*domain.ScoreResult{
			"co-001": testResult("co-001", "1B", 55),
		}}
		svc := NewService(repo, nil)

		got, err := svc.PreviousScore(ctx, "tenant-001", "thesis-001", 1, "co-001")
		if err != nil {
			t.Fatalf("PreviousScore failed: %v", err)
		}
		if got == nil || got.Score != 55 {
			t.Errorf("expected score 55, got %+v", got)
		}
	})

	t.Run("NeverScoredReturnsNil", func(t *testing.T) {
		repo := &scoreRepo{scores: map[string]*domain.ScoreResult{}}
		svc := NewService(repo, nil)

		got, err := svc.PreviousScore(ctx, "tenant-001", "thesis-001", 1, "co-unknown")
		if err != nil {
			t.Fatalf("expected nil error for unscored company, got %v", err)
		}
		if got != nil {
			t.Errorf("expected nil result, got %+v", got)
		}
	})

	t.Run("CacheSkipsRepository", func(t *testing.T) {
		repo := &scoreRepo{scores: map[string]*domain.ScoreResult{}}
		c := cache.NewLRUCache(10)
		svc := NewService(repo, c)

		svc.Record(ctx, "tenant-001", testResult("co-002", "2", 35))

		got, err := svc.PreviousScore(ctx, "tenant-001", "thesis-001", 1, "co-002")
		if err != nil {
			t.Fatalf("PreviousScore failed: %v", err)
		}
		if got == nil || got.Tier != "2" {
			t.Errorf("expected cached tier 2, got %+v", got)
		}
		if repo.calls != 0 {
			t.Errorf("expected no repository calls on cache hit, got %d", repo.calls)
		}
	})

	t.Run("StaleVersionInCacheFallsThrough", func(t *testing.T) {
		repo := &scoreRepo{scores: map[string]*domain.ScoreResult{}}
		c := cache.NewLRUCache(10)
		svc := NewService(repo, c)

		// A v1 result is still warm in the cache after the rollout to v2.
		svc.Record(ctx, "tenant-001", testResult("co-003", "1B", 60))

		got, err := svc.PreviousScore(ctx, "tenant-001", "thesis-001", 2, "co-003")
		if err != nil {
			t.Fatalf("PreviousScore failed: %v", err)
		}
		if got != nil {
			t.Errorf("version 1 cache entry leaked into a version 2 lookup: %+v", got)
		}
		if repo.calls != 1 {
			t.Errorf("expected repository fallback on stale cache entry, got %d calls", repo.calls)
		}

		// The matching version still serves from cache.
		got, err = svc.PreviousScore(ctx, "tenant-001", "thesis-001", 1, "co-003")
		if err != nil {
			t.Fatalf("PreviousScore failed: %v", err)
		}
		if got == nil || got.Score != 60 {
			t.Errorf("expected cached version 1 result, got %+v", got)
		}
	})

	t.Run("RequiresIdentifiers", func(t *testing.T) {
		svc := NewService(&scoreRepo{}, nil)
		if _, err := svc.PreviousScore(ctx, "", "thesis-001", 1, "co-001"); err == nil {
			t.Error("expected error for empty tenant ID")
		}
		if _, err := svc.PreviousScore(ctx, "tenant-001", "thesis-001", 1, ""); err == nil {
			t.Error("expected error for empty company ID")
		}
	})
}

func TestTierChanged(t *testing.T) {
	tests := []struct {
		name     string
		previous *domain.ScoreResult
		current  *domain.ScoreResult
		want     bool
	}{
		{"NilCurrent", testResult("c", "1A", 80), nil, false},
		{"FirstScoreIntoTier", nil, testResult("c", "1B", 55), true},
		{"FirstScoreUnclassified", nil, testResult("c", domain.TierUnclassified, 5), false},
		{"SameTier", testResult("c", "2", 30), testResult("c", "2", 38), false},
		{"Promotion", testResult("c", "2", 30), testResult("c", "1B", 52), true},
		{"Demotion", testResult("c", "1A", 80), testResult("c", "3", 12), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TierChanged(tt.previous, tt.current); got != tt.want {
				t.Errorf("TierChanged() = %v, want %v", got, tt.want)
			}
		})
	}
}
