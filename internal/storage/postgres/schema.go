package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fyrsmithlabs/ragstore/internal/storage/migrate"
)

// buildMigrations returns the core's monotonic migration sequence. The
// vector column width is baked in at migration time, following
// MrWong99-glyphoxa/pkg/memory/postgres/schema.go's ddlL2(embeddingDimensions).
func buildMigrations(dimension int) []migrate.Migration {
	return []migrate.Migration{
		{
			Version:     1,
			Description: "create projects table",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS projects (
				    id         UUID        PRIMARY KEY,
				    name       TEXT        NOT NULL,
				    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
				);`},
		},
		{
			Version:     2,
			Description: "create documents table",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS documents (
				    id          UUID        PRIMARY KEY,
				    project_id  UUID        NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
				    type        TEXT        NOT NULL DEFAULT '',
				    status      TEXT        NOT NULL DEFAULT 'NOT_PROCESSED',
				    file_name   TEXT        NOT NULL DEFAULT '',
				    content     BYTEA,
				    metadata    JSONB       NOT NULL DEFAULT '{}',
				    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
				    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
				);
				CREATE INDEX IF NOT EXISTS idx_documents_project_id ON documents (project_id);`},
		},
		{
			Version:     3,
			Description: fmt.Sprintf("create vectors table (dimension=%d)", dimension),
			Statements: []string{
				`CREATE EXTENSION IF NOT EXISTS vector;`,
				fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS vectors (
				    id          UUID        PRIMARY KEY,
				    project_id  UUID        NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
				    document_id UUID        REFERENCES documents (id) ON DELETE CASCADE,
				    chunk_index INT,
				    type        TEXT        NOT NULL,
				    content     TEXT        NOT NULL DEFAULT '',
				    embedding   vector(%d)  NOT NULL,
				    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
				);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_vectors_doc_chunk
				    ON vectors (document_id, chunk_index)
				    WHERE document_id IS NOT NULL AND chunk_index IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_vectors_project_id ON vectors (project_id);
				CREATE INDEX IF NOT EXISTS idx_vectors_embedding
				    ON vectors USING hnsw (embedding vector_cosine_ops);`, dimension),
			},
		},
		{
			Version:     4,
			Description: "create graph_entities and graph_relations tables",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS graph_entities (
				    project_id       UUID        NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
				    name             TEXT        NOT NULL,
				    type             TEXT        NOT NULL DEFAULT '',
				    description      TEXT        NOT NULL DEFAULT '',
				    source_chunk_ids JSONB       NOT NULL DEFAULT '[]',
				    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
				    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
				    PRIMARY KEY (project_id, name)
				);
				CREATE TABLE IF NOT EXISTS graph_relations (
				    project_id       UUID        NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
				    src              TEXT        NOT NULL,
				    tgt              TEXT        NOT NULL,
				    description      TEXT        NOT NULL DEFAULT '',
				    keywords         TEXT        NOT NULL DEFAULT '',
				    weight           DOUBLE PRECISION NOT NULL DEFAULT 0,
				    source_chunk_ids JSONB       NOT NULL DEFAULT '[]',
				    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
				    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
				    PRIMARY KEY (project_id, src, tgt),
				    FOREIGN KEY (project_id, src) REFERENCES graph_entities (project_id, name) ON DELETE CASCADE,
				    FOREIGN KEY (project_id, tgt) REFERENCES graph_entities (project_id, name) ON DELETE CASCADE,
				    CHECK (src <> tgt)
				);
				CREATE INDEX IF NOT EXISTS idx_graph_relations_src ON graph_relations (project_id, src);
				CREATE INDEX IF NOT EXISTS idx_graph_relations_tgt ON graph_relations (project_id, tgt);`},
		},
		{
			Version:     5,
			Description: "create extraction_cache table",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS extraction_cache (
				    id           UUID        PRIMARY KEY,
				    project_id   UUID        NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
				    cache_type   TEXT        NOT NULL,
				    chunk_id     TEXT        NOT NULL DEFAULT '',
				    content_hash TEXT        NOT NULL,
				    result       TEXT        NOT NULL,
				    tokens_used  INT         NOT NULL DEFAULT 0,
				    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
				    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
				    UNIQUE (project_id, cache_type, content_hash)
				);
				CREATE INDEX IF NOT EXISTS idx_extraction_cache_project_id ON extraction_cache (project_id);
				CREATE INDEX IF NOT EXISTS idx_extraction_cache_chunk ON extraction_cache (project_id, chunk_id);`},
		},
		{
			Version:     6,
			Description: "create kv_store table",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS kv_store (
				    key        TEXT        PRIMARY KEY,
				    value      TEXT        NOT NULL,
				    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
				);`},
		},
		{
			Version:     7,
			Description: "create document_status table",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS document_status (
				    doc_id            TEXT        PRIMARY KEY,
				    file_path         TEXT        NOT NULL DEFAULT '',
				    processing_status TEXT        NOT NULL,
				    chunk_count       INT         NOT NULL DEFAULT 0,
				    entity_count      INT         NOT NULL DEFAULT 0,
				    relation_count    INT         NOT NULL DEFAULT 0,
				    error_message     TEXT        NOT NULL DEFAULT '',
				    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
				    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
				);
				CREATE INDEX IF NOT EXISTS idx_document_status_processing_status
				    ON document_status (processing_status);`},
		},
	}
}

// MigrateToLatest runs every pending migration inside its own transaction
// and records it in schema_version. Idempotent: calling it twice in a row
// applies zero additional migrations the second time.
func MigrateToLatest(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	migrations := buildMigrations(dimension)
	if err := migrate.Validate(migrations); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}

	const bootstrap = `
		CREATE TABLE IF NOT EXISTS schema_version (
		    version     INT         PRIMARY KEY,
		    description TEXT        NOT NULL,
		    applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);`
	if _, err := pool.Exec(ctx, bootstrap); err != nil {
		return fmt.Errorf("postgres migrate: bootstrap schema_version: %w", err)
	}

	var current int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("postgres migrate: read current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("postgres migrate: begin v%d: %w", m.Version, err)
		}

		applyErr := func() error {
			for _, stmt := range m.Statements {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("apply statement: %w", err)
				}
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_version (version, description) VALUES ($1, $2)`,
				m.Version, m.Description)
			return err
		}()

		if applyErr != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("postgres migrate: v%d (%s): %w", m.Version, m.Description, applyErr)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("postgres migrate: commit v%d: %w", m.Version, err)
		}
	}

	return nil
}
