package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Munns729/open-radar-sub001/internal/domain"
	"github.com/Munns729/open-radar-sub001/internal/engine"
)

func numPtr(f float64) *float64 { return &f }

func batchThesis() *domain.Thesis {
	return &domain.Thesis{
		ID:       "thesis-001",
		TenantID: "tenant-001",
		Version:  2,
		Filters: []domain.Filter{
			{Field: "sector", Op: domain.OpIn, Values: []any{"industrial"}, OnMissing: domain.MissingExclude},
		},
		Rules: []domain.ScoringRule{
			{
				ID: "r-revenue", Points: 25, MoatType: "scale",
				Condition:      &domain.Condition{Kind: domain.CondFieldBetween, Field: "revenue_m", Min: numPtr(10), Max: numPtr(100)},
				RequiresFields: []string{"revenue_m"},
			},
		},
		TierThresholds: []domain.TierThreshold{
			{MinScore: 20, Label: "1"},
		},
		CompletenessThreshold: 0.5,
	}
}

func makeCompanies(n int) []*domain.Company {
	companies := make([]*domain.Company, n)
	for i := 0; i < n; i++ {
		companies[i] = &domain.Company{
			ID:       fmt.Sprintf("co-%03d", i),
			TenantID: "tenant-001",
			Fields: map[string]any{
				"sector":    "industrial",
				"revenue_m": float64(10 + i),
			},
		}
	}
	return companies
}

// fakeRepo records score persistence and can fail on demand.
type fakeRepo struct {
	mu          sync.Mutex
	saved       []*domain.ScoreResult
	saveCalls   int
	deleteCalls int
	failSaves   bool
}

func (r *fakeRepo) SaveCompany(ctx context.Context, tenantID string, c *domain.Company) error {
	return nil
}
func (r *fakeRepo) GetCompany(ctx context.Context, tenantID, id string) (*domain.Company, error) {
	return nil, fmt.Errorf("not implemented")
}
func (r *fakeRepo) ListCompanies(ctx context.Context, tenantID string) ([]*domain.Company, error) {
	return nil, nil
}
func (r *fakeRepo) SaveThesis(ctx context.Context, tenantID string, th *domain.Thesis) error {
	return nil
}
func (r *fakeRepo) GetThesis(ctx context.Context, tenantID, id string, version int) (*domain.Thesis, error) {
	return nil, fmt.Errorf("not implemented")
}
func (r *fakeRepo) GetActiveThesis(ctx context.Context, tenantID, id string) (*domain.Thesis, error) {
	return nil, fmt.Errorf("not implemented")
}
func (r *fakeRepo) ListTheses(ctx context.Context, tenantID string) ([]*domain.Thesis, error) {
	return nil, nil
}
func (r *fakeRepo) ActivateThesis(ctx context.Context, tenantID, id string, version int) error {
	return nil
}
func (r *fakeRepo) SaveScoreResults(ctx context.Context, tenantID string, results []*domain.ScoreResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.failSaves {
		return fmt.Errorf("disk full")
	}
	r.saved = append(r.saved, results...)
	return nil
}
func (r *fakeRepo) GetScoreResult(ctx context.Context, tenantID, companyID, thesisID string, version int) (*domain.ScoreResult, error) {
	return nil, fmt.Errorf("not implemented")
}
func (r *fakeRepo) ListScoreResults(ctx context.Context, tenantID, thesisID string, version int) ([]*domain.ScoreResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved, nil
}
func (r *fakeRepo) DeleteScores(ctx context.Context, tenantID, thesisID string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	r.saved = nil
	return nil
}
func (r *fakeRepo) Ping(ctx context.Context) error { return nil }
func (r *fakeRepo) Close() error                   { return nil }

// fakeBus records published messages.
type fakeBus struct {
	mu        sync.Mutex
	published map[string]int
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string]int)}
}

func (b *fakeBus) Publish(ctx context.Context, tenantID, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[topic]++
	return nil
}
func (b *fakeBus) Subscribe(ctx context.Context, tenantID, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	return nil, fmt.Errorf("not implemented")
}
func (b *fakeBus) Request(ctx context.Context, tenantID, topic string, payload []byte) ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
func (b *fakeBus) Ping(ctx context.Context) error { return nil }
func (b *fakeBus) Close() error                   { return nil }

func TestBatchRunPersistsAndPublishes(t *testing.T) {
	eng, err := engine.New(batchThesis())
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	repo := &fakeRepo{}
	bus := newFakeBus()
	scorer := NewScorer(eng, repo, bus, Config{ChunkSize: 10, MaxWorkers: 4})

	outcome, err := scorer.Run(context.Background(), makeCompanies(25))
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if len(outcome.Results) != 25 {
		t.Errorf("expected 25 results, got %d", len(outcome.Results))
	}
	if repo.deleteCalls != 1 {
		t.Errorf("prior scores must be cleared exactly once, got %d", repo.deleteCalls)
	}
	if repo.saveCalls != 3 {
		t.Errorf("expected 3 chunk saves for 25/10, got %d", repo.saveCalls)
	}
	if len(repo.saved) != 25 {
		t.Errorf("expected 25 persisted results, got %d", len(repo.saved))
	}
	if bus.published[domain.TopicBatchFinished] != 1 {
		t.Errorf("expected one batch finished event, got %d", bus.published[domain.TopicBatchFinished])
	}
}

func TestBatchResultsIndependentOfChunkSize(t *testing.T) {
	companies := makeCompanies(50)
	// Exercise both the filter and missing-data paths.
	companies[7].Fields["sector"] = "retail"
	delete(companies[13].Fields, "revenue_m")

	var baseline *domain.BatchOutcome
	for _, chunkSize := range []int{1, 7, 50, 200} {
		eng, _ := engine.New(batchThesis())
		scorer := NewScorer(eng, nil, nil, Config{ChunkSize: chunkSize, MaxWorkers: 4})

		outcome, err := scorer.Run(context.Background(), companies)
		if err != nil {
			t.Fatalf("chunk size %d: %v", chunkSize, err)
		}

		if baseline == nil {
			baseline = outcome
			continue
		}
		if len(outcome.Results) != len(baseline.Results) {
			t.Fatalf("chunk size %d: %d results, baseline %d", chunkSize, len(outcome.Results), len(baseline.Results))
		}
		if outcome.Excluded != baseline.Excluded {
			t.Errorf("chunk size %d: excluded %d, baseline %d", chunkSize, outcome.Excluded, baseline.Excluded)
		}
		for i := range outcome.Results {
			got, want := outcome.Results[i], baseline.Results[i]
			if got.CompanyID != want.CompanyID || got.Score != want.Score || got.Tier != want.Tier {
				t.Errorf("chunk size %d: result %d diverged (%s/%d vs %s/%d)",
					chunkSize, i, got.CompanyID, got.Score, want.CompanyID, want.Score)
			}
		}
	}
}

func TestBatchCapturesPerRecordErrors(t *testing.T) {
	eng, _ := engine.New(batchThesis())
	scorer := NewScorer(eng, nil, nil, Config{ChunkSize: 10, MaxWorkers: 4})

	companies := makeCompanies(3)
	// A type-mismatched filter field fails this record's whole pass.
	companies[1].Fields["sector"] = 42.0

	outcome, err := scorer.Run(context.Background(), companies)
	if err != nil {
		t.Fatalf("one bad record must not abort the batch: %v", err)
	}

	if len(outcome.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(outcome.Results))
	}
	if len(outcome.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(outcome.Errors))
	}
	if outcome.Errors[0].CompanyID != "co-001" {
		t.Errorf("error attributed to %s, want co-001", outcome.Errors[0].CompanyID)
	}
}

func TestBatchRecoversFromPanic(t *testing.T) {
	thesis := batchThesis()
	thesis.Filters = nil
	thesis.Rules = []domain.ScoringRule{
		{
			ID: "r-semantic", Points: 10,
			Condition: &domain.Condition{Kind: domain.CondSemanticScoreAtLeast, Attribute: "moat", Min: numPtr(0.5)},
		},
	}
	eng, err := engine.New(thesis)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	// Simulate an evaluation defect that slipped past validation: the nil
	// bound dereferences only for records carrying the semantic score.
	thesis.Rules[0].Condition.Min = nil

	scorer := NewScorer(eng, nil, nil, Config{ChunkSize: 10, MaxWorkers: 2})

	companies := makeCompanies(3)
	companies[1].Fields[domain.FieldSemanticScores] = map[string]any{"moat": 0.8}

	outcome, err := scorer.Run(context.Background(), companies)
	if err != nil {
		t.Fatalf("a panicking record must not abort the batch: %v", err)
	}
	if len(outcome.Results) != 2 {
		t.Errorf("expected 2 surviving results, got %d", len(outcome.Results))
	}
	if len(outcome.Errors) != 1 {
		t.Fatalf("expected 1 captured panic, got %d", len(outcome.Errors))
	}
	if outcome.Errors[0].CompanyID != "co-001" {
		t.Errorf("panic attributed to %s, want co-001", outcome.Errors[0].CompanyID)
	}
}

func TestBatchCancellationBetweenChunks(t *testing.T) {
	eng, _ := engine.New(batchThesis())
	repo := &fakeRepo{}
	scorer := NewScorer(eng, repo, nil, Config{ChunkSize: 5, MaxWorkers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := scorer.Run(ctx, makeCompanies(20))
	if err == nil {
		t.Fatal("expected context error")
	}
	if outcome == nil {
		t.Fatal("cancellation must still return the partial outcome")
	}
	if len(outcome.Results) != 0 {
		t.Errorf("pre-cancelled context should score nothing, got %d", len(outcome.Results))
	}
}

func TestBatchPersistFailureReportsEachRecord(t *testing.T) {
	eng, _ := engine.New(batchThesis())
	repo := &fakeRepo{failSaves: true}
	scorer := NewScorer(eng, repo, nil, Config{ChunkSize: 10, MaxWorkers: 4})

	outcome, err := scorer.Run(context.Background(), makeCompanies(10))
	if err != nil {
		t.Fatalf("persist failure must not abort the batch: %v", err)
	}
	if len(outcome.Results) != 0 {
		t.Errorf("failed chunk must not appear in results, got %d", len(outcome.Results))
	}
	if len(outcome.Errors) != 10 {
		t.Errorf("expected an error per record in the failed chunk, got %d", len(outcome.Errors))
	}
}
