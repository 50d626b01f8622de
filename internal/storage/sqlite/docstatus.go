package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

type docStatusStore struct{ s *Store }

func (d *docStatusStore) SetStatus(ctx context.Context, status model.DocumentStatus) error {
	if status.DocID == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "docstatus.SetStatus", errors.New("doc_id must not be empty"))
	}
	err := d.s.withRetry(ctx, "docstatus.SetStatus", func(ctx context.Context) error {
		return d.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			now := formatTime(time.Time{})
			_, err := tx.ExecContext(ctx, `
				INSERT INTO document_status (doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (doc_id) DO UPDATE SET
				    file_path         = excluded.file_path,
				    processing_status = excluded.processing_status,
				    chunk_count       = excluded.chunk_count,
				    entity_count      = excluded.entity_count,
				    relation_count    = excluded.relation_count,
				    error_message     = excluded.error_message,
				    updated_at        = excluded.updated_at`,
				status.DocID, status.FilePath, status.ProcessingState, status.ChunkCount,
				status.EntityCount, status.RelationCount, status.ErrorMessage, now, now)
			return err
		})
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "docstatus.SetStatus", err)
	}
	return nil
}

func (d *docStatusStore) GetStatus(ctx context.Context, docID string) (*model.DocumentStatus, error) {
	var out model.DocumentStatus
	var createdAt, updatedAt string
	err := d.s.withRetry(ctx, "docstatus.GetStatus", func(ctx context.Context) error {
		return d.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			row := db.QueryRowContext(ctx, `
				SELECT doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
				FROM document_status WHERE doc_id = ?`, docID)
			return row.Scan(&out.DocID, &out.FilePath, &out.ProcessingState, &out.ChunkCount, &out.EntityCount, &out.RelationCount, &out.ErrorMessage, &createdAt, &updatedAt)
		})
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "docstatus.GetStatus", err)
	}
	out.CreatedAt, out.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
	return &out, nil
}

func (d *docStatusStore) GetStatuses(ctx context.Context, docIDs []string) ([]model.DocumentStatus, error) {
	if len(docIDs) == 0 {
		return []model.DocumentStatus{}, nil
	}
	var out []model.DocumentStatus
	err := d.s.withRetry(ctx, "docstatus.GetStatuses", func(ctx context.Context) error {
		return d.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			q := `SELECT doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
				FROM document_status WHERE doc_id IN (` + placeholders(len(docIDs)) + `)`
			rows, err := db.QueryContext(ctx, q, toAnySlice(docIDs)...)
			if err != nil {
				return err
			}
			out, err = collectStatuses(rows)
			return err
		})
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "docstatus.GetStatuses", err)
	}
	return out, nil
}

func (d *docStatusStore) SetStatuses(ctx context.Context, statuses []model.DocumentStatus) error {
	err := d.s.withRetry(ctx, "docstatus.SetStatuses", func(ctx context.Context) error {
		return d.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			now := formatTime(time.Time{})
			for _, status := range statuses {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO document_status (doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT (doc_id) DO UPDATE SET
					    file_path         = excluded.file_path,
					    processing_status = excluded.processing_status,
					    chunk_count       = excluded.chunk_count,
					    entity_count      = excluded.entity_count,
					    relation_count    = excluded.relation_count,
					    error_message     = excluded.error_message,
					    updated_at        = excluded.updated_at`,
					status.DocID, status.FilePath, status.ProcessingState, status.ChunkCount,
					status.EntityCount, status.RelationCount, status.ErrorMessage, now, now); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "docstatus.SetStatuses", err)
	}
	return nil
}

func (d *docStatusStore) DeleteStatuses(ctx context.Context, docIDs []string) (int, error) {
	if len(docIDs) == 0 {
		return 0, nil
	}
	var n int
	err := d.s.withRetry(ctx, "docstatus.DeleteStatuses", func(ctx context.Context) error {
		return d.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			q := `DELETE FROM document_status WHERE doc_id IN (` + placeholders(len(docIDs)) + `)`
			res, err := tx.ExecContext(ctx, q, toAnySlice(docIDs)...)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			n = int(affected)
			return err
		})
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "docstatus.DeleteStatuses", err)
	}
	return n, nil
}

func (d *docStatusStore) GetStatusesByProcessingStatus(ctx context.Context, kind model.ProcessingStatusKind) ([]model.DocumentStatus, error) {
	var out []model.DocumentStatus
	err := d.s.withRetry(ctx, "docstatus.GetStatusesByProcessingStatus", func(ctx context.Context) error {
		return d.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			rows, err := db.QueryContext(ctx, `
				SELECT doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
				FROM document_status WHERE processing_status = ? ORDER BY updated_at`, kind)
			if err != nil {
				return err
			}
			out, err = collectStatuses(rows)
			return err
		})
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "docstatus.GetStatusesByProcessingStatus", err)
	}
	return out, nil
}

func (d *docStatusStore) GetAllStatuses(ctx context.Context) ([]model.DocumentStatus, error) {
	var out []model.DocumentStatus
	err := d.s.withRetry(ctx, "docstatus.GetAllStatuses", func(ctx context.Context) error {
		return d.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			rows, err := db.QueryContext(ctx, `
				SELECT doc_id, file_path, processing_status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
				FROM document_status ORDER BY updated_at`)
			if err != nil {
				return err
			}
			out, err = collectStatuses(rows)
			return err
		})
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "docstatus.GetAllStatuses", err)
	}
	return out, nil
}

func (d *docStatusStore) Clear(ctx context.Context) error {
	err := d.s.withRetry(ctx, "docstatus.Clear", func(ctx context.Context) error {
		return d.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM document_status`)
			return err
		})
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "docstatus.Clear", err)
	}
	return nil
}

func (d *docStatusStore) Size(ctx context.Context) (int, error) {
	var n int
	err := d.s.withRetry(ctx, "docstatus.Size", func(ctx context.Context) error {
		return d.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			return db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_status`).Scan(&n)
		})
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "docstatus.Size", err)
	}
	return n, nil
}

func collectStatuses(rows *sql.Rows) ([]model.DocumentStatus, error) {
	defer rows.Close()
	var out []model.DocumentStatus
	for rows.Next() {
		var s model.DocumentStatus
		var createdAt, updatedAt string
		if err := rows.Scan(&s.DocID, &s.FilePath, &s.ProcessingState, &s.ChunkCount, &s.EntityCount, &s.RelationCount, &s.ErrorMessage, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		s.CreatedAt, s.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.DocumentStatus{}
	}
	return out, nil
}
