package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

type documentStore struct{ s *Store }

func (d *documentStore) Create(ctx context.Context, doc model.Document) (*model.Document, error) {
	if doc.ProjectID == "" {
		return nil, storeerr.New(storeerr.KindInvalidArgument, "documents.Create", errors.New("project_id must not be empty"))
	}
	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, storeerr.New(storeerr.KindInvalidArgument, "documents.Create", err)
	}

	out := doc
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Status == "" {
		out.Status = model.DocNotProcessed
	}
	now := formatTime(out.CreatedAt)

	runErr := d.s.withRetry(ctx, "documents.Create", func(ctx context.Context) error {
		return d.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO documents (id, project_id, type, status, file_name, content, metadata, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				out.ID, out.ProjectID, out.Type, out.Status, out.FileName, out.Content, metaJSON, now, now)
			return err
		})
	})
	if runErr != nil {
		return nil, storeerr.New(storeerr.Classify(runErr), "documents.Create", runErr)
	}
	out.CreatedAt, out.UpdatedAt = parseTime(now), parseTime(now)
	return &out, nil
}

func (d *documentStore) Get(ctx context.Context, projectID, id string) (*model.Document, error) {
	var out model.Document
	var metaJSON []byte
	var createdAt, updatedAt string
	err := d.s.withRetry(ctx, "documents.Get", func(ctx context.Context) error {
		return d.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			row := db.QueryRowContext(ctx, `
				SELECT id, project_id, type, status, file_name, content, metadata, created_at, updated_at
				FROM documents WHERE project_id = ? AND id = ?`, projectID, id)
			return row.Scan(&out.ID, &out.ProjectID, &out.Type, &out.Status, &out.FileName, &out.Content, &metaJSON, &createdAt, &updatedAt)
		})
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "documents.Get", err)
	}
	if err := json.Unmarshal(metaJSON, &out.Metadata); err != nil {
		return nil, storeerr.New(storeerr.KindInvalidArgument, "documents.Get", err)
	}
	out.CreatedAt, out.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
	return &out, nil
}

func (d *documentStore) Delete(ctx context.Context, projectID, id string) error {
	err := d.s.withRetry(ctx, "documents.Delete", func(ctx context.Context) error {
		return d.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE project_id = ? AND id = ?`, projectID, id)
			return err
		})
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "documents.Delete", err)
	}
	return nil
}
