// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Munns729/open-radar-sub001/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveCompany stores a company record with tenant isolation.
func (r *SQLRepository) SaveCompany(ctx context.Context, tenantID string, company *domain.Company) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	fields, _ := json.Marshal(company.Fields)
	now := time.Now().UTC()

	query := `
		INSERT INTO companies (id, tenant_id, name, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			fields = excluded.fields,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		company.ID, tenantID, company.Name, string(fields), now, now,
	)
	return err
}

// GetCompany retrieves a company by ID with tenant isolation.
func (r *SQLRepository) GetCompany(ctx context.Context, tenantID string, companyID string) (*domain.Company, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, fields, created_at, updated_at
		FROM companies
		WHERE tenant_id = ? AND id = ?
	`

	var company domain.Company
	var fields string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, companyID).Scan(
		&company.ID, &company.TenantID, &company.Name, &fields,
		&company.CreatedAt, &company.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(fields), &company.Fields); err != nil {
		return nil, fmt.Errorf("failed to parse company fields: %w", err)
	}

	return &company, nil
}

// ListCompanies retrieves all companies for a tenant.
func (r *SQLRepository) ListCompanies(ctx context.Context, tenantID string) ([]*domain.Company, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, fields, created_at, updated_at
		FROM companies
		WHERE tenant_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []*domain.Company
	for rows.Next() {
		var company domain.Company
		var fields string

		if err := rows.Scan(
			&company.ID, &company.TenantID, &company.Name, &fields,
			&company.CreatedAt, &company.UpdatedAt,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(fields), &company.Fields); err != nil {
			return nil, fmt.Errorf("failed to parse fields for company %s: %w", company.ID, err)
		}
		companies = append(companies, &company)
	}

	return companies, rows.Err()
}

// SaveThesis stores a thesis version with tenant isolation. Saving an
// existing (id, version) pair updates it; scoring history stays reproducible
// because scored versions are never edited by convention, only re-saved as a
// new version.
//
// The active flag is owned by ActivateThesis: new versions land inactive and
// a re-save never changes an existing row's flag, so there is exactly one
// activation path and never two active versions.
func (r *SQLRepository) SaveThesis(ctx context.Context, tenantID string, thesis *domain.Thesis) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if thesis.Version <= 0 {
		return fmt.Errorf("%w: thesis version must be positive", ErrInvalidInput)
	}

	filters, _ := json.Marshal(thesis.Filters)
	rules, _ := json.Marshal(thesis.Rules)
	tiers, _ := json.Marshal(thesis.TierThresholds)
	derived, _ := json.Marshal(thesis.DerivedFields)
	criteria, _ := json.Marshal(thesis.Criteria)

	now := time.Now().UTC()

	query := `
		INSERT INTO theses (
			id, tenant_id, version, name, filters, rules, tier_thresholds,
			completeness_threshold, derived_fields, criteria, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			filters = excluded.filters,
			rules = excluded.rules,
			tier_thresholds = excluded.tier_thresholds,
			completeness_threshold = excluded.completeness_threshold,
			derived_fields = excluded.derived_fields,
			criteria = excluded.criteria,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		thesis.ID, tenantID, thesis.Version, thesis.Name,
		string(filters), string(rules), string(tiers),
		thesis.CompletenessThreshold, string(derived), string(criteria),
		now, now,
	)
	return err
}

const thesisColumns = `id, tenant_id, version, name, filters, rules, tier_thresholds,
	completeness_threshold, derived_fields, criteria, active, created_at, updated_at`

// GetThesis retrieves a specific thesis version with tenant isolation.
func (r *SQLRepository) GetThesis(ctx context.Context, tenantID string, thesisID string, version int) (*domain.Thesis, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + thesisColumns + `
		FROM theses
		WHERE tenant_id = ? AND id = ? AND version = ?
	`

	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, thesisID, version)
	return scanThesis(row)
}

// GetActiveThesis retrieves the version-pinned active thesis for a tenant.
// An empty thesisID resolves whichever thesis is currently active for the
// tenant, which is how event-driven rescoring finds its thesis.
func (r *SQLRepository) GetActiveThesis(ctx context.Context, tenantID string, thesisID string) (*domain.Thesis, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + thesisColumns + `
		FROM theses
		WHERE tenant_id = ? AND active = 1
	`
	args := []any{tenantID}
	if thesisID != "" {
		query += ` AND id = ?`
		args = append(args, thesisID)
	}
	query += `
		ORDER BY version DESC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, r.rebind(query), args...)
	return scanThesis(row)
}

// ListTheses retrieves the latest version of every thesis for a tenant.
func (r *SQLRepository) ListTheses(ctx context.Context, tenantID string) ([]*domain.Thesis, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + thesisColumns + `
		FROM theses t
		WHERE tenant_id = ?
		  AND version = (SELECT MAX(version) FROM theses WHERE tenant_id = t.tenant_id AND id = t.id)
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var theses []*domain.Thesis
	for rows.Next() {
		thesis, err := scanThesis(rows)
		if err != nil {
			return nil, err
		}
		theses = append(theses, thesis)
	}

	return theses, rows.Err()
}

// ActivateThesis pins one version as the tenant's active thesis. The swap is
// transactional so readers never observe two active versions.
func (r *SQLRepository) ActivateThesis(ctx context.Context, tenantID string, thesisID string, version int) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	deactivate := `UPDATE theses SET active = 0, updated_at = ? WHERE tenant_id = ? AND id = ?`
	if _, err := tx.ExecContext(ctx, r.rebind(deactivate), now, tenantID, thesisID); err != nil {
		return err
	}

	activate := `UPDATE theses SET active = 1, updated_at = ? WHERE tenant_id = ? AND id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, r.rebind(activate), now, tenantID, thesisID, version)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// SaveScoreResults stores a chunk of score results in a single transaction:
// all land or none do, so a mid-batch crash cannot leave a chunk half-written
// across thesis versions.
func (r *SQLRepository) SaveScoreResults(ctx context.Context, tenantID string, results []*domain.ScoreResult) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO score_results (
			id, tenant_id, company_id, thesis_id, thesis_version,
			score, tier, categories, rules_evaluated, rules_skipped,
			missing_fields, completeness, is_provisional, rule_errors, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, company_id, thesis_id, thesis_version) DO UPDATE SET
			id = excluded.id,
			score = excluded.score,
			tier = excluded.tier,
			categories = excluded.categories,
			rules_evaluated = excluded.rules_evaluated,
			rules_skipped = excluded.rules_skipped,
			missing_fields = excluded.missing_fields,
			completeness = excluded.completeness,
			is_provisional = excluded.is_provisional,
			rule_errors = excluded.rule_errors,
			timestamp = excluded.timestamp
	`

	stmt, err := tx.PrepareContext(ctx, r.rebind(query))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, res := range results {
		categories, _ := json.Marshal(res.Categories)
		evaluated, _ := json.Marshal(res.RulesEvaluated)
		skipped, _ := json.Marshal(res.RulesSkipped)
		missing, _ := json.Marshal(res.MissingFields)
		ruleErrors, _ := json.Marshal(res.RuleErrors)

		provisional := 0
		if res.IsProvisional {
			provisional = 1
		}

		if _, err := stmt.ExecContext(ctx,
			res.ID, tenantID, res.CompanyID, res.ThesisID, res.ThesisVersion,
			res.Score, res.Tier, string(categories), string(evaluated), string(skipped),
			string(missing), res.Completeness, provisional, string(ruleErrors), res.Timestamp,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetScoreResult retrieves one company's result under a thesis version.
func (r *SQLRepository) GetScoreResult(ctx context.Context, tenantID string, companyID string, thesisID string, version int) (*domain.ScoreResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + scoreColumns + `
		FROM score_results
		WHERE tenant_id = ? AND company_id = ? AND thesis_id = ? AND thesis_version = ?
	`

	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, companyID, thesisID, version)
	return scanScoreResult(row)
}

// ListScoreResults retrieves all results for a thesis version, highest score
// first.
func (r *SQLRepository) ListScoreResults(ctx context.Context, tenantID string, thesisID string, version int) ([]*domain.ScoreResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + scoreColumns + `
		FROM score_results
		WHERE tenant_id = ? AND thesis_id = ? AND thesis_version = ?
		ORDER BY score DESC, company_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, thesisID, version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.ScoreResult
	for rows.Next() {
		res, err := scanScoreResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	return results, rows.Err()
}

// DeleteScores removes all results for a thesis version, superseding the
// prior run.
func (r *SQLRepository) DeleteScores(ctx context.Context, tenantID string, thesisID string, version int) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `DELETE FROM score_results WHERE tenant_id = ? AND thesis_id = ? AND thesis_version = ?`
	_, err := r.db.ExecContext(ctx, r.rebind(query), tenantID, thesisID, version)
	return err
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

const scoreColumns = `id, tenant_id, company_id, thesis_id, thesis_version,
	score, tier, categories, rules_evaluated, rules_skipped,
	missing_fields, completeness, is_provisional, rule_errors, timestamp`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanThesis(row scanner) (*domain.Thesis, error) {
	var t domain.Thesis
	var filters, rules, tiers, derived, criteria string
	var active int

	err := row.Scan(
		&t.ID, &t.TenantID, &t.Version, &t.Name,
		&filters, &rules, &tiers,
		&t.CompletenessThreshold, &derived, &criteria,
		&active, &t.CreatedAt, &t.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	t.Active = active == 1
	if err := json.Unmarshal([]byte(filters), &t.Filters); err != nil {
		return nil, fmt.Errorf("failed to parse thesis filters: %w", err)
	}
	if err := json.Unmarshal([]byte(rules), &t.Rules); err != nil {
		return nil, fmt.Errorf("failed to parse thesis rules: %w", err)
	}
	if err := json.Unmarshal([]byte(tiers), &t.TierThresholds); err != nil {
		return nil, fmt.Errorf("failed to parse tier thresholds: %w", err)
	}
	if derived != "" && derived != "null" {
		if err := json.Unmarshal([]byte(derived), &t.DerivedFields); err != nil {
			return nil, fmt.Errorf("failed to parse derived fields: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(criteria), &t.Criteria); err != nil {
		return nil, fmt.Errorf("failed to parse thesis criteria: %w", err)
	}

	return &t, nil
}

func scanScoreResult(row scanner) (*domain.ScoreResult, error) {
	var res domain.ScoreResult
	var categories, evaluated, skipped, missing, ruleErrors string
	var provisional int

	err := row.Scan(
		&res.ID, &res.TenantID, &res.CompanyID, &res.ThesisID, &res.ThesisVersion,
		&res.Score, &res.Tier, &categories, &evaluated, &skipped,
		&missing, &res.Completeness, &provisional, &ruleErrors, &res.Timestamp,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	res.IsProvisional = provisional == 1
	json.Unmarshal([]byte(categories), &res.Categories)
	json.Unmarshal([]byte(evaluated), &res.RulesEvaluated)
	json.Unmarshal([]byte(skipped), &res.RulesSkipped)
	json.Unmarshal([]byte(missing), &res.MissingFields)
	if ruleErrors != "" && ruleErrors != "null" {
		json.Unmarshal([]byte(ruleErrors), &res.RuleErrors)
	}

	return &res, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
