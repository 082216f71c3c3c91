package repository

// Schema definitions for the radar database.
// Compatible with both SQLite and PostgreSQL.

const schemaCompanies = `
CREATE TABLE IF NOT EXISTS companies (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT,
    fields TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_companies_tenant ON companies(tenant_id);
`

const schemaTheses = `
CREATE TABLE IF NOT EXISTS theses (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    version INTEGER NOT NULL,
    name TEXT NOT NULL,
    filters TEXT NOT NULL,
    rules TEXT NOT NULL,
    tier_thresholds TEXT NOT NULL,
    completeness_threshold REAL NOT NULL DEFAULT 0.0,
    derived_fields TEXT,
    criteria TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_theses_tenant ON theses(tenant_id);
CREATE INDEX IF NOT EXISTS idx_theses_active ON theses(tenant_id, id, active);
`

const schemaScoreResults = `
CREATE TABLE IF NOT EXISTS score_results (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    company_id TEXT NOT NULL,
    thesis_id TEXT NOT NULL,
    thesis_version INTEGER NOT NULL,
    score INTEGER NOT NULL,
    tier TEXT NOT NULL,
    categories TEXT NOT NULL,
    rules_evaluated TEXT NOT NULL,
    rules_skipped TEXT NOT NULL,
    missing_fields TEXT NOT NULL,
    completeness REAL NOT NULL,
    is_provisional INTEGER NOT NULL DEFAULT 0,
    rule_errors TEXT,
    timestamp TIMESTAMP NOT NULL,
    UNIQUE (tenant_id, company_id, thesis_id, thesis_version)
);

CREATE INDEX IF NOT EXISTS idx_score_results_tenant ON score_results(tenant_id);
CREATE INDEX IF NOT EXISTS idx_score_results_thesis ON score_results(tenant_id, thesis_id, thesis_version);
CREATE INDEX IF NOT EXISTS idx_score_results_company ON score_results(tenant_id, company_id);
CREATE INDEX IF NOT EXISTS idx_score_results_tier ON score_results(tenant_id, thesis_id, tier);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaCompanies,
		schemaTheses,
		schemaScoreResults,
	}
}
