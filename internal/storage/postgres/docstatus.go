package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

// docStatusStore implements storage.DocStatusStore against document_status,
// the per-document processing-pipeline tracker (§4.7).
type docStatusStore struct{ s *Store }

func (d *docStatusStore) SetStatus(ctx context.Context, status model.DocumentStatus) error {
	if status.DocID == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "docstatus.SetStatus", errors.New("doc_id must not be empty"))
	}

	err := d.s.withRetry(ctx, "docstatus.SetStatus", func(ctx context.Context) error {
		const q = `
			INSERT INTO document_status (doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (doc_id) DO UPDATE SET
			    file_path         = EXCLUDED.file_path,
			    processing_status = EXCLUDED.processing_status,
			    chunk_count       = EXCLUDED.chunk_count,
			    entity_count      = EXCLUDED.entity_count,
			    relation_count    = EXCLUDED.relation_count,
			    error_message     = EXCLUDED.error_message,
			    updated_at        = now()`
		_, err := d.s.pool.Exec(ctx, q, status.DocID, status.FilePath, status.ProcessingState,
			status.ChunkCount, status.EntityCount, status.RelationCount, status.ErrorMessage)
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "docstatus.SetStatus", err)
	}
	return nil
}

func (d *docStatusStore) GetStatus(ctx context.Context, docID string) (*model.DocumentStatus, error) {
	var out model.DocumentStatus
	err := d.s.withRetry(ctx, "docstatus.GetStatus", func(ctx context.Context) error {
		const q = `
			SELECT doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
			FROM document_status WHERE doc_id = $1`
		row := d.s.pool.QueryRow(ctx, q, docID)
		return row.Scan(&out.DocID, &out.FilePath, &out.ProcessingState, &out.ChunkCount, &out.EntityCount, &out.RelationCount, &out.ErrorMessage, &out.CreatedAt, &out.UpdatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "docstatus.GetStatus", err)
	}
	return &out, nil
}

func (d *docStatusStore) GetStatuses(ctx context.Context, docIDs []string) ([]model.DocumentStatus, error) {
	var out []model.DocumentStatus
	err := d.s.withRetry(ctx, "docstatus.GetStatuses", func(ctx context.Context) error {
		rows, err := d.s.pool.Query(ctx, `
			SELECT doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
			FROM document_status WHERE doc_id = ANY($1)`, docIDs)
		if err != nil {
			return err
		}
		out, err = collectStatuses(rows)
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "docstatus.GetStatuses", err)
	}
	return out, nil
}

func (d *docStatusStore) SetStatuses(ctx context.Context, statuses []model.DocumentStatus) error {
	err := d.s.withRetry(ctx, "docstatus.SetStatuses", func(ctx context.Context) error {
		tx, err := d.s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		const q = `
			INSERT INTO document_status (doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (doc_id) DO UPDATE SET
			    file_path         = EXCLUDED.file_path,
			    processing_status = EXCLUDED.processing_status,
			    chunk_count       = EXCLUDED.chunk_count,
			    entity_count      = EXCLUDED.entity_count,
			    relation_count    = EXCLUDED.relation_count,
			    error_message     = EXCLUDED.error_message,
			    updated_at        = now()`
		for _, status := range statuses {
			if _, err := tx.Exec(ctx, q, status.DocID, status.FilePath, status.ProcessingState,
				status.ChunkCount, status.EntityCount, status.RelationCount, status.ErrorMessage); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "docstatus.SetStatuses", err)
	}
	return nil
}

func (d *docStatusStore) DeleteStatuses(ctx context.Context, docIDs []string) (int, error) {
	var n int
	err := d.s.withRetry(ctx, "docstatus.DeleteStatuses", func(ctx context.Context) error {
		tag, err := d.s.pool.Exec(ctx, `DELETE FROM document_status WHERE doc_id = ANY($1)`, docIDs)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "docstatus.DeleteStatuses", err)
	}
	return n, nil
}

func (d *docStatusStore) GetStatusesByProcessingStatus(ctx context.Context, kind model.ProcessingStatusKind) ([]model.DocumentStatus, error) {
	var out []model.DocumentStatus
	err := d.s.withRetry(ctx, "docstatus.GetStatusesByProcessingStatus", func(ctx context.Context) error {
		rows, err := d.s.pool.Query(ctx, `
			SELECT doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
			FROM document_status WHERE processing_status = $1 ORDER BY updated_at`, kind)
		if err != nil {
			return err
		}
		out, err = collectStatuses(rows)
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "docstatus.GetStatusesByProcessingStatus", err)
	}
	return out, nil
}

func (d *docStatusStore) GetAllStatuses(ctx context.Context) ([]model.DocumentStatus, error) {
	var out []model.DocumentStatus
	err := d.s.withRetry(ctx, "docstatus.GetAllStatuses", func(ctx context.Context) error {
		rows, err := d.s.pool.Query(ctx, `
			SELECT doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
			FROM document_status ORDER BY updated_at`)
		if err != nil {
			return err
		}
		out, err = collectStatuses(rows)
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "docstatus.GetAllStatuses", err)
	}
	return out, nil
}

func (d *docStatusStore) Clear(ctx context.Context) error {
	err := d.s.withRetry(ctx, "docstatus.Clear", func(ctx context.Context) error {
		_, err := d.s.pool.Exec(ctx, `TRUNCATE document_status`)
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "docstatus.Clear", err)
	}
	return nil
}

func (d *docStatusStore) Size(ctx context.Context) (int, error) {
	var n int
	err := d.s.withRetry(ctx, "docstatus.Size", func(ctx context.Context) error {
		return d.s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM document_status`).Scan(&n)
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "docstatus.Size", err)
	}
	return n, nil
}

func collectStatuses(rows pgx.Rows) ([]model.DocumentStatus, error) {
	statuses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.DocumentStatus, error) {
		var s model.DocumentStatus
		err := row.Scan(&s.DocID, &s.FilePath, &s.ProcessingState, &s.ChunkCount, &s.EntityCount, &s.RelationCount, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt)
		return s, err
	})
	if err != nil {
		return nil, err
	}
	if statuses == nil {
		statuses = []model.DocumentStatus{}
	}
	return statuses, nil
}
