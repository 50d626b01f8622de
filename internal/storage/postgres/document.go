package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

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

	var out model.Document
	runErr := d.s.withRetry(ctx, "documents.Create", func(ctx context.Context) error {
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		status := doc.Status
		if status == "" {
			status = model.DocNotProcessed
		}
		const q = `
			INSERT INTO documents (id, project_id, type, status, file_name, content, metadata, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			RETURNING id, project_id, type, status, file_name, content, metadata, created_at, updated_at`
		row := d.s.pool.QueryRow(ctx, q, id, doc.ProjectID, doc.Type, status, doc.FileName, doc.Content, metaJSON)
		var metaOut []byte
		if err := row.Scan(&out.ID, &out.ProjectID, &out.Type, &out.Status, &out.FileName, &out.Content, &metaOut, &out.CreatedAt, &out.UpdatedAt); err != nil {
			return err
		}
		return json.Unmarshal(metaOut, &out.Metadata)
	})
	if runErr != nil {
		return nil, storeerr.New(storeerr.Classify(runErr), "documents.Create", runErr)
	}
	return &out, nil
}

func (d *documentStore) Get(ctx context.Context, projectID, id string) (*model.Document, error) {
	var out model.Document
	var metaJSON []byte
	err := d.s.withRetry(ctx, "documents.Get", func(ctx context.Context) error {
		const q = `
			SELECT id, project_id, type, status, file_name, content, metadata, created_at, updated_at
			FROM documents WHERE project_id = $1 AND id = $2`
		row := d.s.pool.QueryRow(ctx, q, projectID, id)
		return row.Scan(&out.ID, &out.ProjectID, &out.Type, &out.Status, &out.FileName, &out.Content, &metaJSON, &out.CreatedAt, &out.UpdatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "documents.Get", err)
	}
	if err := json.Unmarshal(metaJSON, &out.Metadata); err != nil {
		return nil, storeerr.New(storeerr.KindInvalidArgument, "documents.Get", err)
	}
	return &out, nil
}

func (d *documentStore) Delete(ctx context.Context, projectID, id string) error {
	err := d.s.withRetry(ctx, "documents.Delete", func(ctx context.Context) error {
		_, err := d.s.pool.Exec(ctx, `DELETE FROM documents WHERE project_id = $1 AND id = $2`, projectID, id)
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "documents.Delete", err)
	}
	return nil
}
