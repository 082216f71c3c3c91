// Package domain defines the core interfaces and types for the radar scoring
// engine.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Company universe operations
	SaveCompany(ctx context.Context, tenantID string, company *Company) error
	GetCompany(ctx context.Context, tenantID string, companyID string) (*Company, error)
	ListCompanies(ctx context.Context, tenantID string) ([]*Company, error)

	// Thesis operations. Saving an existing (id, version) pair is an upsert;
	// new versions append and always land inactive. ActivateThesis is the only
	// path that sets the active flag. GetActiveThesis with an empty thesisID
	// resolves whichever thesis is active for the tenant.
	SaveThesis(ctx context.Context, tenantID string, thesis *Thesis) error
	GetThesis(ctx context.Context, tenantID string, thesisID string, version int) (*Thesis, error)
	GetActiveThesis(ctx context.Context, tenantID string, thesisID string) (*Thesis, error)
	ListTheses(ctx context.Context, tenantID string) ([]*Thesis, error)
	ActivateThesis(ctx context.Context, tenantID string, thesisID string, version int) error

	// Score result operations. SaveScoreResults writes a chunk atomically:
	// all results land or none do. DeleteScores supersedes a prior run for
	// the same thesis version.
	SaveScoreResults(ctx context.Context, tenantID string, results []*ScoreResult) error
	GetScoreResult(ctx context.Context, tenantID string, companyID string, thesisID string, version int) (*ScoreResult, error)
	ListScoreResults(ctx context.Context, tenantID string, thesisID string, version int) ([]*ScoreResult, error)
	DeleteScores(ctx context.Context, tenantID string, thesisID string, version int) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
