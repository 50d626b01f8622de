package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fyrsmithlabs/ragstore/internal/storage/migrate"
)

// buildMigrations mirrors postgres/schema.go's sequence, minus the
// pgvector extension: embeddings are stored as a BLOB of little-endian
// float32s and similarity is computed in Go over the bounded reader pool.
func buildMigrations() []migrate.Migration {
	return []migrate.Migration{
		{
			Version:     1,
			Description: "create projects table",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS projects (
				    id         TEXT PRIMARY KEY,
				    name       TEXT NOT NULL,
				    created_at TEXT NOT NULL,
				    updated_at TEXT NOT NULL
				);`},
		},
		{
			Version:     2,
			Description: "create documents table",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS documents (
				    id          TEXT PRIMARY KEY,
				    project_id  TEXT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
				    type        TEXT NOT NULL DEFAULT '',
				    status      TEXT NOT NULL DEFAULT 'NOT_PROCESSED',
				    file_name   TEXT NOT NULL DEFAULT '',
				    content     BLOB,
				    metadata    TEXT NOT NULL DEFAULT '{}',
				    created_at  TEXT NOT NULL,
				    updated_at  TEXT NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_documents_project_id ON documents (project_id);`},
		},
		{
			Version:     3,
			Description: "create vectors table",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS vectors (
				    id          TEXT PRIMARY KEY,
				    project_id  TEXT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
				    document_id TEXT,
				    chunk_index INTEGER,
				    type        TEXT NOT NULL,
				    content     TEXT NOT NULL DEFAULT '',
				    embedding   BLOB NOT NULL,
				    dims        INTEGER NOT NULL,
				    created_at  TEXT NOT NULL
				);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_vectors_doc_chunk
				    ON vectors (document_id, chunk_index)
				    WHERE document_id IS NOT NULL AND chunk_index IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_vectors_project_id ON vectors (project_id);`},
		},
		{
			Version:     4,
			Description: "create graph_entities and graph_relations tables",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS graph_entities (
				    project_id       TEXT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
				    name             TEXT NOT NULL,
				    type             TEXT NOT NULL DEFAULT '',
				    description      TEXT NOT NULL DEFAULT '',
				    source_chunk_ids TEXT NOT NULL DEFAULT '[]',
				    created_at       TEXT NOT NULL,
				    updated_at       TEXT NOT NULL,
				    PRIMARY KEY (project_id, name)
				);
				CREATE TABLE IF NOT EXISTS graph_relations (
				    project_id       TEXT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
				    src              TEXT NOT NULL,
				    tgt              TEXT NOT NULL,
				    description      TEXT NOT NULL DEFAULT '',
				    keywords         TEXT NOT NULL DEFAULT '',
				    weight           REAL NOT NULL DEFAULT 0,
				    source_chunk_ids TEXT NOT NULL DEFAULT '[]',
				    created_at       TEXT NOT NULL,
				    updated_at       TEXT NOT NULL,
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
				    id           TEXT PRIMARY KEY,
				    project_id   TEXT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
				    cache_type   TEXT NOT NULL,
				    chunk_id     TEXT NOT NULL DEFAULT '',
				    content_hash TEXT NOT NULL,
				    result       TEXT NOT NULL,
				    tokens_used  INTEGER NOT NULL DEFAULT 0,
				    created_at   TEXT NOT NULL,
				    updated_at   TEXT NOT NULL,
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
				    key        TEXT PRIMARY KEY,
				    value      TEXT NOT NULL,
				    updated_at TEXT NOT NULL
				);`},
		},
		{
			Version:     7,
			Description: "create document_status table",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS document_status (
				    doc_id            TEXT PRIMARY KEY,
				    file_path         TEXT NOT NULL DEFAULT '',
				    processing_status TEXT NOT NULL,
				    chunk_count       INTEGER NOT NULL DEFAULT 0,
				    entity_count      INTEGER NOT NULL DEFAULT 0,
				    relation_count    INTEGER NOT NULL DEFAULT 0,
				    error_message     TEXT NOT NULL DEFAULT '',
				    created_at        TEXT NOT NULL,
				    updated_at        TEXT NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_document_status_processing_status
				    ON document_status (processing_status);`},
		},
	}
}

// MigrateDB runs the embedded engine's schema migrator against an
// arbitrary *sql.DB handle, exported so the portability package can
// stand up a fresh export/import target file without going through a
// full Store (whose session owns a dedicated writer/reader pair this
// one-shot use doesn't need).
func MigrateDB(ctx context.Context, db *sql.DB) error {
	return migrateToLatest(ctx, db)
}

// migrateToLatest applies every pending migration on the write handle,
// one transaction per migration, following the same schema_version
// bookkeeping as the postgres backend.
func migrateToLatest(ctx context.Context, db *sql.DB) error {
	migrations := buildMigrations()
	if err := migrate.Validate(migrations); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}

	const bootstrap = `
		CREATE TABLE IF NOT EXISTS schema_version (
		    version     INTEGER PRIMARY KEY,
		    description TEXT NOT NULL,
		    applied_at  TEXT NOT NULL
		);`
	if _, err := db.ExecContext(ctx, bootstrap); err != nil {
		return fmt.Errorf("sqlite migrate: bootstrap schema_version: %w", err)
	}

	var current int
	row := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("sqlite migrate: read current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("sqlite migrate: begin v%d: %w", m.Version, err)
		}

		applyErr := func() error {
			for _, stmt := range m.Statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("apply statement: %w", err)
				}
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, datetime('now'))`,
				m.Version, m.Description)
			return err
		}()

		if applyErr != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite migrate: v%d (%s): %w", m.Version, m.Description, applyErr)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sqlite migrate: commit v%d: %w", m.Version, err)
		}
	}

	return nil
}
