// Package worker provides async rescoring driven by company-update events.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Munns729/open-radar-sub001/internal/domain"
	"github.com/Munns729/open-radar-sub001/internal/engine"
	"github.com/Munns729/open-radar-sub001/internal/history"
	"github.com/Munns729/open-radar-sub001/internal/repository"
)

// Worker rescores companies when their records change. It listens on the
// company-updated topic, evaluates the tenant's active thesis against the
// fresh record, persists the result, and announces score and tier changes.
type Worker struct {
	bus     domain.EventBus
	repo    domain.Repository
	cache   domain.Cache
	history *history.Service
	policy  domain.CategoryPolicy

	mu      sync.RWMutex
	engines map[string]*engine.Engine // keyed by thesisID@version

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process. Empty subscribes only the
	// "_global" pseudo-tenant namespace: publishers must address that tenant,
	// there is no cross-tenant wildcard on either bus.
	TenantIDs []string

	// CategoryPolicy controls how rules sharing a category combine.
	CategoryPolicy domain.CategoryPolicy
}

// NewWorker creates a new rescore worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, cache domain.Cache, hist *history.Service, policy domain.CategoryPolicy) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     bus,
		repo:    repo,
		cache:   cache,
		history: hist,
		policy:  policy,
		engines: make(map[string]*engine.Engine),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins processing company-update events for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if cfg.CategoryPolicy != "" {
		w.policy = cfg.CategoryPolicy
	}

	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker subscribes under the "_global" pseudo-tenant. The message
// payload carries the real tenant, so single-process setups can route every
// update through one subscription by publishing to "_global".
func (w *Worker) startGlobalWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicCompanyUpdated, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts a worker for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicCompanyUpdated, func(ctx context.Context, msg *domain.Message) error {
		return w.rescoreCompany(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicCompanyUpdated,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.rescoreCompany(ctx, msg.TenantID, msg)
}

// CompanyUpdatedMessage is the payload announcing a changed company record.
// ThesisID is optional; when empty the tenant's active thesis is used.
type CompanyUpdatedMessage struct {
	CompanyID string `json:"companyId"`
	TenantID  string `json:"tenantId"`
	ThesisID  string `json:"thesisId,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
}

// rescoreCompany evaluates the active thesis against the updated record.
func (w *Worker) rescoreCompany(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var upd CompanyUpdatedMessage
	if err := json.Unmarshal(msg.Payload, &upd); err != nil {
		slog.Error("failed to parse company update message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if upd.TenantID != "" {
		tenantID = upd.TenantID
	}

	traceID := upd.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("rescoring company",
		"company_id", upd.CompanyID,
		"tenant_id", tenantID,
		"trace_id", traceID,
	)

	company, err := w.repo.GetCompany(ctx, tenantID, upd.CompanyID)
	if err != nil {
		slog.Error("failed to load company",
			"company_id", upd.CompanyID,
			"error", err,
		)
		return err
	}

	thesis, err := w.activeThesis(ctx, tenantID, upd.ThesisID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Debug("no active thesis for tenant, skipping",
				"tenant_id", tenantID,
			)
			return nil
		}
		return err
	}

	eng, err := w.engineFor(thesis)
	if err != nil {
		slog.Error("failed to compile thesis",
			"thesis_id", thesis.ID,
			"thesis_version", thesis.Version,
			"error", err,
		)
		return err
	}

	result, err := eng.Score(company)
	if err != nil {
		slog.Error("scoring failed",
			"company_id", upd.CompanyID,
			"error", err,
		)
		return err
	}
	if result == nil {
		// Excluded by a thesis filter.
		slog.Debug("company excluded by filters",
			"company_id", upd.CompanyID,
			"thesis_id", thesis.ID,
		)
		return nil
	}

	var previous *domain.ScoreResult
	if w.history != nil {
		previous, _ = w.history.PreviousScore(ctx, tenantID, thesis.ID, thesis.Version, upd.CompanyID)
	}

	if err := w.repo.SaveScoreResults(ctx, tenantID, []*domain.ScoreResult{result}); err != nil {
		slog.Error("failed to save score result",
			"company_id", upd.CompanyID,
			"error", err,
		)
		return err
	}

	if w.history != nil {
		w.history.Record(ctx, tenantID, result)
	}

	resultPayload, _ := json.Marshal(result)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicScoreUpdated, resultPayload); err != nil {
		slog.Error("failed to publish score update",
			"company_id", upd.CompanyID,
			"error", err,
		)
	}

	if history.TierChanged(previous, result) {
		changePayload, _ := json.Marshal(map[string]any{
			"companyId":     result.CompanyID,
			"thesisId":      result.ThesisID,
			"thesisVersion": result.ThesisVersion,
			"previousTier":  previousTier(previous),
			"tier":          result.Tier,
			"score":         result.Score,
		})
		if err := w.bus.Publish(ctx, tenantID, domain.TopicTierChanged, changePayload); err != nil {
			slog.Error("failed to publish tier change",
				"company_id", upd.CompanyID,
				"error", err,
			)
		}
	}

	slog.Info("company rescored",
		"company_id", upd.CompanyID,
		"tenant_id", tenantID,
		"score", result.Score,
		"tier", result.Tier,
		"provisional", result.IsProvisional,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// activeThesis resolves the thesis to score with, cache first.
func (w *Worker) activeThesis(ctx context.Context, tenantID, thesisID string) (*domain.Thesis, error) {
	if w.cache != nil {
		cached, err := w.cache.GetActiveThesis(ctx, tenantID, thesisID)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	thesis, err := w.repo.GetActiveThesis(ctx, tenantID, thesisID)
	if err != nil {
		return nil, err
	}

	if w.cache != nil {
		_ = w.cache.SetActiveThesis(ctx, tenantID, thesis, 10*time.Minute)
	}

	return thesis, nil
}

// engineFor returns a compiled engine for the thesis version, reusing a
// previously compiled one when the version has not moved.
func (w *Worker) engineFor(thesis *domain.Thesis) (*engine.Engine, error) {
	key := fmt.Sprintf("%s@%d", thesis.ID, thesis.Version)

	w.mu.RLock()
	eng, ok := w.engines[key]
	w.mu.RUnlock()
	if ok {
		return eng, nil
	}

	eng, err := engine.New(thesis, engine.WithCategoryPolicy(w.policy))
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.engines[key] = eng
	w.mu.Unlock()

	return eng, nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	CompiledTheses    int      `json:"compiledTheses"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.RLock()
	compiled := len(w.engines)
	w.mu.RUnlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		CompiledTheses:    compiled,
		Topics:            topics,
	}
}

func previousTier(previous *domain.ScoreResult) string {
	if previous == nil {
		return ""
	}
	return previous.Tier
}
