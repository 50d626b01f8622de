// Package portability implements the embedded engine's export/import
// service: copying one project's rows to or from a standalone SQLite
// file, the way MrWong99-glyphoxa/internal/agent/npcstore/postgres.go
// moves rows with plain Query/Exec rather than an ORM. Both directions
// operate on raw *sql.DB handles and hand-written per-table statements —
// there is no reflection-based row mapper.
package portability

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/fyrsmithlabs/ragstore/internal/storage/sqlite"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

// magicHeader is the first 16 bytes of every valid SQLite database file.
// The embedded engine's own file format doubles as the portable export
// format's required header, so validating it is just a byte compare.
var magicHeader = []byte("SQLite format 3\x00")

// ExportProject creates a fresh SQLite database at destPath containing
// every row belonging to projectID, read from src. destPath must not
// already exist.
func ExportProject(ctx context.Context, src *sql.DB, projectID, destPath string) error {
	if projectID == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "portability.ExportProject", errors.New("project_id must not be empty"))
	}
	if _, err := os.Stat(destPath); err == nil {
		return storeerr.New(storeerr.KindInvalidArgument, "portability.ExportProject", fmt.Errorf("destination already exists: %s", destPath))
	}

	var exists int
	if err := src.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, projectID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storeerr.New(storeerr.KindInvalidArgument, "portability.ExportProject", fmt.Errorf("project %q does not exist", projectID))
		}
		return storeerr.New(storeerr.Classify(err), "portability.ExportProject", err)
	}

	dest, err := sql.Open("sqlite3", destPath)
	if err != nil {
		return storeerr.New(storeerr.KindFileFormatError, "portability.ExportProject", err)
	}
	defer dest.Close()

	if err := sqlite.MigrateDB(ctx, dest); err != nil {
		return storeerr.New(storeerr.Classify(err), "portability.ExportProject", err)
	}

	if err := copyProjectRows(ctx, src, dest, projectID, projectID); err != nil {
		return storeerr.New(storeerr.Classify(err), "portability.ExportProject", err)
	}
	return nil
}

// ImportProject validates srcPath as a portable export file, then copies
// its rows into dest under newProjectID, rewriting every project_id
// reference and regenerating any id that would otherwise collide with a
// row already present in dest. It returns newProjectID on success.
func ImportProject(ctx context.Context, dest *sql.DB, srcPath, newProjectID string) (string, error) {
	if newProjectID == "" {
		return "", storeerr.New(storeerr.KindInvalidArgument, "portability.ImportProject", errors.New("new_project_id must not be empty"))
	}
	if err := validateMagicHeader(srcPath); err != nil {
		return "", storeerr.New(storeerr.KindFileFormatError, "portability.ImportProject", err)
	}

	src, err := sql.Open("sqlite3", "file:"+srcPath+"?mode=ro")
	if err != nil {
		return "", storeerr.New(storeerr.KindFileFormatError, "portability.ImportProject", err)
	}
	defer src.Close()

	var sourceProjectID string
	row := src.QueryRowContext(ctx, `SELECT id FROM projects LIMIT 1`)
	if err := row.Scan(&sourceProjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storeerr.New(storeerr.KindFileFormatError, "portability.ImportProject", errors.New("export file contains no project"))
		}
		return "", storeerr.New(storeerr.Classify(err), "portability.ImportProject", err)
	}

	if err := copyProjectRows(ctx, src, dest, sourceProjectID, newProjectID); err != nil {
		return "", storeerr.New(storeerr.Classify(err), "portability.ImportProject", err)
	}
	return newProjectID, nil
}

// validateMagicHeader reports whether path begins with the SQLite file
// format's 16-byte magic string, without opening it as a database.
func validateMagicHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(magicHeader))
	if _, err := f.Read(header); err != nil {
		return fmt.Errorf("read export file header: %w", err)
	}
	if !bytes.Equal(header, magicHeader) {
		return errors.New("file does not begin with the SQLite magic header")
	}
	return nil
}

// copyProjectRows copies every row tagged with fromProjectID in src into
// dest, retagged with toProjectID. Used by both Export (fromProjectID ==
// toProjectID, dest is empty) and Import (fromProjectID is the exported
// file's original id, toProjectID is the caller's chosen target).
func copyProjectRows(ctx context.Context, src, dest *sql.DB, fromProjectID, toProjectID string) error {
	tx, err := dest.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var projectName, projectCreatedAt, projectUpdatedAt string
	if err := src.QueryRowContext(ctx, `SELECT name, created_at, updated_at FROM projects WHERE id = ?`, fromProjectID).
		Scan(&projectName, &projectCreatedAt, &projectUpdatedAt); err != nil {
		return fmt.Errorf("read source project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		toProjectID, projectName, projectCreatedAt, projectUpdatedAt); err != nil {
		return fmt.Errorf("write project: %w", err)
	}

	docIDMap, err := copyDocuments(ctx, src, tx, fromProjectID, toProjectID)
	if err != nil {
		return fmt.Errorf("copy documents: %w", err)
	}
	if err := copyVectors(ctx, src, tx, fromProjectID, toProjectID, docIDMap); err != nil {
		return fmt.Errorf("copy vectors: %w", err)
	}
	if err := copyEntities(ctx, src, tx, fromProjectID, toProjectID); err != nil {
		return fmt.Errorf("copy entities: %w", err)
	}
	if err := copyRelations(ctx, src, tx, fromProjectID, toProjectID); err != nil {
		return fmt.Errorf("copy relations: %w", err)
	}
	if err := copyExtractionCache(ctx, src, tx, fromProjectID, toProjectID); err != nil {
		return fmt.Errorf("copy extraction cache: %w", err)
	}
	if err := copyDocumentStatus(ctx, src, tx, docIDMap); err != nil {
		return fmt.Errorf("copy document status: %w", err)
	}
	if err := copyKV(ctx, src, tx, fromProjectID, toProjectID); err != nil {
		return fmt.Errorf("copy kv: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// copyDocuments copies every document row for fromProjectID, regenerating
// an id only when it would collide with a row already in dest. It returns
// the old-id → new-id map so dependent tables can follow the same rewrite.
func copyDocuments(ctx context.Context, src *sql.DB, tx *sql.Tx, fromProjectID, toProjectID string) (map[string]string, error) {
	rows, err := src.QueryContext(ctx, `
		SELECT id, type, status, file_name, content, metadata, created_at, updated_at
		FROM documents WHERE project_id = ?`, fromProjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	idMap := make(map[string]string)
	type docRow struct {
		id, docType, status, fileName, metadata, createdAt, updatedAt string
		content                                                      []byte
	}
	var docs []docRow
	for rows.Next() {
		var d docRow
		if err := rows.Scan(&d.id, &d.docType, &d.status, &d.fileName, &d.content, &d.metadata, &d.createdAt, &d.updatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, d := range docs {
		newID := d.id
		var collides int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, d.id).Scan(&collides); err == nil {
			newID = uuid.NewString()
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		idMap[d.id] = newID

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, project_id, type, status, file_name, content, metadata, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			newID, toProjectID, d.docType, d.status, d.fileName, d.content, d.metadata, d.createdAt, d.updatedAt); err != nil {
			return nil, err
		}
	}
	return idMap, nil
}

func copyVectors(ctx context.Context, src *sql.DB, tx *sql.Tx, fromProjectID, toProjectID string, docIDMap map[string]string) error {
	rows, err := src.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, type, content, embedding, dims, created_at
		FROM vectors WHERE project_id = ?`, fromProjectID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, vtype, content, createdAt string
		var documentID sql.NullString
		var chunkIndex sql.NullInt64
		var embedding []byte
		var dims int
		if err := rows.Scan(&id, &documentID, &chunkIndex, &vtype, &content, &embedding, &dims, &createdAt); err != nil {
			return err
		}

		newID := id
		var collides int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM vectors WHERE id = ?`, id).Scan(&collides); err == nil {
			newID = uuid.NewString()
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		newDocID := documentID
		if documentID.Valid {
			if mapped, ok := docIDMap[documentID.String]; ok {
				newDocID = sql.NullString{String: mapped, Valid: true}
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO vectors (id, project_id, document_id, chunk_index, type, content, embedding, dims, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			newID, toProjectID, newDocID, chunkIndex, vtype, content, embedding, dims, createdAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

func copyEntities(ctx context.Context, src *sql.DB, tx *sql.Tx, fromProjectID, toProjectID string) error {
	rows, err := src.QueryContext(ctx, `
		SELECT name, type, description, source_chunk_ids, created_at, updated_at
		FROM graph_entities WHERE project_id = ?`, fromProjectID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, etype, description, sourceChunkIDs, createdAt, updatedAt string
		if err := rows.Scan(&name, &etype, &description, &sourceChunkIDs, &createdAt, &updatedAt); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO graph_entities (project_id, name, type, description, source_chunk_ids, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (project_id, name) DO NOTHING`,
			toProjectID, name, etype, description, sourceChunkIDs, createdAt, updatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

func copyRelations(ctx context.Context, src *sql.DB, tx *sql.Tx, fromProjectID, toProjectID string) error {
	rows, err := src.QueryContext(ctx, `
		SELECT src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at
		FROM graph_relations WHERE project_id = ?`, fromProjectID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var srcName, tgtName, description, keywords, sourceChunkIDs, createdAt, updatedAt string
		var weight float64
		if err := rows.Scan(&srcName, &tgtName, &description, &keywords, &weight, &sourceChunkIDs, &createdAt, &updatedAt); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO graph_relations (project_id, src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (project_id, src, tgt) DO NOTHING`,
			toProjectID, srcName, tgtName, description, keywords, weight, sourceChunkIDs, createdAt, updatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

// copyExtractionCache always mints a fresh id — cache entries are
// memoization artifacts, not identity-bearing records the round-trip
// invariant promises to preserve.
func copyExtractionCache(ctx context.Context, src *sql.DB, tx *sql.Tx, fromProjectID, toProjectID string) error {
	rows, err := src.QueryContext(ctx, `
		SELECT cache_type, chunk_id, content_hash, result, tokens_used, created_at, updated_at
		FROM extraction_cache WHERE project_id = ?`, fromProjectID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cacheType, chunkID, contentHash, result, createdAt, updatedAt string
		var tokensUsed int
		if err := rows.Scan(&cacheType, &chunkID, &contentHash, &result, &tokensUsed, &createdAt, &updatedAt); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO extraction_cache (id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (project_id, cache_type, content_hash) DO NOTHING`,
			uuid.NewString(), toProjectID, cacheType, chunkID, contentHash, result, tokensUsed, createdAt, updatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

// copyDocumentStatus follows docIDMap so a status row always lands under
// whatever id its document was given in dest.
func copyDocumentStatus(ctx context.Context, src *sql.DB, tx *sql.Tx, docIDMap map[string]string) error {
	if len(docIDMap) == 0 {
		return nil
	}
	for oldDocID, newDocID := range docIDMap {
		var filePath, processingStatus, errorMessage, createdAt, updatedAt string
		var chunkCount, entityCount, relationCount int
		err := src.QueryRowContext(ctx, `
			SELECT file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
			FROM document_status WHERE doc_id = ?`, oldDocID).
			Scan(&filePath, &processingStatus, &chunkCount, &entityCount, &relationCount, &errorMessage, &createdAt, &updatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_status (doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (doc_id) DO NOTHING`,
			newDocID, filePath, processingStatus, chunkCount, entityCount, relationCount, errorMessage, createdAt, updatedAt); err != nil {
			return err
		}
	}
	return nil
}

// copyKV copies every key matching the "<project_id>:" prefix convention,
// rewriting the prefix from fromProjectID to toProjectID.
func copyKV(ctx context.Context, src *sql.DB, tx *sql.Tx, fromProjectID, toProjectID string) error {
	prefix := fromProjectID + ":"
	rows, err := src.QueryContext(ctx, `SELECT key, value, updated_at FROM kv_store WHERE key LIKE ? || '%'`, prefix)
	if err != nil {
		return err
	}
	defer rows.Close()

	type kvRow struct{ key, value, updatedAt string }
	var kvs []kvRow
	for rows.Next() {
		var k kvRow
		if err := rows.Scan(&k.key, &k.value, &k.updatedAt); err != nil {
			return err
		}
		kvs = append(kvs, k)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range kvs {
		newKey := toProjectID + ":" + k.key[len(prefix):]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			newKey, k.value, k.updatedAt); err != nil {
			return err
		}
	}
	return nil
}
