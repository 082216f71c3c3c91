// Package batch fans the scoring engine out over a company set.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Munns729/open-radar-sub001/internal/domain"
	"github.com/Munns729/open-radar-sub001/internal/engine"
)

var tracer = otel.Tracer("radar-batch")

// Scorer runs one thesis version across a company collection. Records are
// scored independently - no shared mutable state - so chunking and worker
// count are pure performance knobs: per-record results are identical
// regardless of either.
type Scorer struct {
	engine     *engine.Engine
	repo       domain.Repository
	bus        domain.EventBus
	chunkSize  int
	maxWorkers int
}

// Config holds batch scorer settings.
type Config struct {
	// ChunkSize is the number of companies scored and persisted per chunk.
	ChunkSize int

	// MaxWorkers bounds concurrent scoring within a chunk.
	MaxWorkers int
}

// NewScorer creates a batch scorer. repo and bus may be nil for an in-memory
// run (results are returned either way).
func NewScorer(eng *engine.Engine, repo domain.Repository, bus domain.EventBus, cfg Config) *Scorer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 8
	}
	return &Scorer{
		engine:     eng,
		repo:       repo,
		bus:        bus,
		chunkSize:  cfg.ChunkSize,
		maxWorkers: cfg.MaxWorkers,
	}
}

// Run scores every company and persists results chunk by chunk.
//
// Prior results for the same thesis version are cleared first, so a finished
// run supersedes the previous one. Each chunk is persisted in a single
// transaction: a crash mid-run can lose at most the in-flight chunk, never
// leave it half-written. Cancellation is cooperative between chunks - the
// in-flight chunk completes, no new one starts, and the partial outcome is
// returned alongside the context error.
//
// One record's failure (including a panic in condition evaluation) is
// captured in the outcome's error list and does not abort sibling records.
func (s *Scorer) Run(ctx context.Context, companies []*domain.Company) (*domain.BatchOutcome, error) {
	thesis := s.engine.Thesis()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "batch.run",
		trace.WithAttributes(
			attribute.String("thesis.id", thesis.ID),
			attribute.Int("thesis.version", thesis.Version),
			attribute.Int("companies", len(companies)),
		),
	)
	defer span.End()

	outcome := &domain.BatchOutcome{
		ThesisID:      thesis.ID,
		ThesisVersion: thesis.Version,
	}

	if s.repo != nil {
		if err := s.repo.DeleteScores(ctx, thesis.TenantID, thesis.ID, thesis.Version); err != nil {
			return nil, fmt.Errorf("failed to clear prior scores: %w", err)
		}
	}

	for offset := 0; offset < len(companies); offset += s.chunkSize {
		if err := ctx.Err(); err != nil {
			slog.Info("batch cancelled",
				"thesis_id", thesis.ID,
				"scored", len(outcome.Results),
				"remaining", len(companies)-offset,
			)
			outcome.DurationMs = time.Since(start).Milliseconds()
			return outcome, err
		}

		end := offset + s.chunkSize
		if end > len(companies) {
			end = len(companies)
		}
		chunk := companies[offset:end]

		results, errs, excluded := s.scoreChunk(chunk)
		outcome.Errors = append(outcome.Errors, errs...)
		outcome.Excluded += excluded

		if s.repo != nil && len(results) > 0 {
			if err := s.persistChunk(ctx, thesis.TenantID, results); err != nil {
				// The chunk transaction rolled back: none of its records
				// are on the new version. Report each one.
				for _, r := range results {
					outcome.Errors = append(outcome.Errors, domain.BatchError{
						CompanyID: r.CompanyID,
						Message:   fmt.Sprintf("persist failed: %v", err),
					})
				}
				continue
			}
		}
		outcome.Results = append(outcome.Results, results...)
	}

	outcome.DurationMs = time.Since(start).Milliseconds()

	if s.bus != nil {
		s.publishFinished(ctx, thesis, outcome)
	}

	slog.Info("batch finished",
		"thesis_id", thesis.ID,
		"thesis_version", thesis.Version,
		"scored", len(outcome.Results),
		"excluded", outcome.Excluded,
		"errors", len(outcome.Errors),
		"duration_ms", outcome.DurationMs,
	)

	return outcome, nil
}

// scoreChunk scores one chunk with a semaphore-bounded worker pool. Results
// keep chunk order so output is reproducible regardless of scheduling.
func (s *Scorer) scoreChunk(chunk []*domain.Company) ([]*domain.ScoreResult, []domain.BatchError, int) {
	type slot struct {
		result *domain.ScoreResult
		err    error
	}

	slots := make([]slot, len(chunk))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxWorkers)

	for i, company := range chunk {
		wg.Add(1)
		go func(idx int, c *domain.Company) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			defer func() {
				if r := recover(); r != nil {
					slots[idx] = slot{err: fmt.Errorf("panic: %v", r)}
				}
			}()

			result, err := s.engine.Score(c)
			slots[idx] = slot{result: result, err: err}
		}(i, company)
	}

	wg.Wait()

	var results []*domain.ScoreResult
	var errs []domain.BatchError
	excluded := 0
	for i, sl := range slots {
		switch {
		case sl.err != nil:
			errs = append(errs, domain.BatchError{
				CompanyID: chunk[i].ID,
				Message:   sl.err.Error(),
			})
		case sl.result == nil:
			excluded++
		default:
			results = append(results, sl.result)
		}
	}
	return results, errs, excluded
}

func (s *Scorer) persistChunk(ctx context.Context, tenantID string, results []*domain.ScoreResult) error {
	ctx, span := tracer.Start(ctx, "batch.persist_chunk",
		trace.WithAttributes(attribute.Int("results", len(results))),
	)
	defer span.End()

	return s.repo.SaveScoreResults(ctx, tenantID, results)
}

func (s *Scorer) publishFinished(ctx context.Context, thesis *domain.Thesis, outcome *domain.BatchOutcome) {
	payload, _ := json.Marshal(map[string]any{
		"thesisId":      thesis.ID,
		"thesisVersion": thesis.Version,
		"scored":        len(outcome.Results),
		"excluded":      outcome.Excluded,
		"errors":        len(outcome.Errors),
	})
	if err := s.bus.Publish(ctx, thesis.TenantID, domain.TopicBatchFinished, payload); err != nil {
		slog.Error("failed to publish batch finished event",
			"thesis_id", thesis.ID,
			"error", err,
		)
	}
}
