package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

type vectorStore struct{ s *Store }

// Initialize is idempotent for the server backend — dimension is fixed at
// migration time, so there is nothing further to ready here.
func (v *vectorStore) Initialize(ctx context.Context, dimension int) error {
	if dimension != v.s.dimension {
		return storeerr.New(storeerr.KindDimensionMismatch, "vectors.Initialize",
			fmt.Errorf("requested dimension %d does not match configured dimension %d", dimension, v.s.dimension))
	}
	return nil
}

func (v *vectorStore) Upsert(ctx context.Context, entry model.VectorEntry) error {
	if entry.ProjectID == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "vectors.Upsert", errors.New("project_id must not be empty"))
	}
	if len(entry.Vector) != v.s.dimension {
		return storeerr.New(storeerr.KindDimensionMismatch, "vectors.Upsert",
			fmt.Errorf("vector length %d != configured dimension %d", len(entry.Vector), v.s.dimension))
	}

	err := v.s.withRetry(ctx, "vectors.Upsert", func(ctx context.Context) error {
		id := entry.ID
		if id == "" {
			id = uuid.NewString()
		}
		const q = `
			INSERT INTO vectors (id, project_id, document_id, chunk_index, type, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (id) DO UPDATE SET
			    project_id  = EXCLUDED.project_id,
			    document_id = EXCLUDED.document_id,
			    chunk_index = EXCLUDED.chunk_index,
			    type        = EXCLUDED.type,
			    content     = EXCLUDED.content,
			    embedding   = EXCLUDED.embedding`
		_, err := v.s.pool.Exec(ctx, q, id, entry.ProjectID, nullableString(entry.DocumentID), entry.ChunkIndex,
			entry.Kind, entry.Content, pgvector.NewVector(entry.Vector))
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "vectors.Upsert", err)
	}
	return nil
}

// nullableString returns nil for an empty string so it maps to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (v *vectorStore) UpsertBatch(ctx context.Context, entries []model.VectorEntry) error {
	const chunkSize = 500
	for start := 0; start < len(entries); start += chunkSize {
		end := start + chunkSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]

		err := v.s.withRetry(ctx, "vectors.UpsertBatch", func(ctx context.Context) error {
			tx, err := v.s.pool.Begin(ctx)
			if err != nil {
				return err
			}
			defer tx.Rollback(ctx)

			for _, entry := range chunk {
				if len(entry.Vector) != v.s.dimension {
					return storeerr.New(storeerr.KindDimensionMismatch, "vectors.UpsertBatch",
						fmt.Errorf("vector length %d != configured dimension %d", len(entry.Vector), v.s.dimension))
				}
				id := entry.ID
				if id == "" {
					id = uuid.NewString()
				}
				const q = `
					INSERT INTO vectors (id, project_id, document_id, chunk_index, type, content, embedding, created_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, now())
					ON CONFLICT (id) DO UPDATE SET
					    project_id  = EXCLUDED.project_id,
					    document_id = EXCLUDED.document_id,
					    chunk_index = EXCLUDED.chunk_index,
					    type        = EXCLUDED.type,
					    content     = EXCLUDED.content,
					    embedding   = EXCLUDED.embedding`
				if _, err := tx.Exec(ctx, q, id, entry.ProjectID, nullableString(entry.DocumentID), entry.ChunkIndex,
					entry.Kind, entry.Content, pgvector.NewVector(entry.Vector)); err != nil {
					return err
				}
			}
			return tx.Commit(ctx)
		})
		if err != nil {
			return storeerr.New(storeerr.Classify(err), "vectors.UpsertBatch", err)
		}
	}
	return nil
}

func (v *vectorStore) Get(ctx context.Context, projectID, id string) (*model.VectorEntry, error) {
	var out model.VectorEntry
	var vec pgvector.Vector
	var docID *string
	err := v.s.withRetry(ctx, "vectors.Get", func(ctx context.Context) error {
		const q = `
			SELECT id, project_id, document_id, chunk_index, type, content, embedding, created_at
			FROM vectors WHERE project_id = $1 AND id = $2`
		row := v.s.pool.QueryRow(ctx, q, projectID, id)
		return row.Scan(&out.ID, &out.ProjectID, &docID, &out.ChunkIndex, &out.Kind, &out.Content, &vec, &out.CreatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "vectors.Get", err)
	}
	out.Vector = vec.Slice()
	if docID != nil {
		out.DocumentID = *docID
	}
	return &out, nil
}

func (v *vectorStore) Query(ctx context.Context, vector []float32, k int, filter model.VectorFilter) ([]model.ScoredVector, error) {
	if len(vector) != v.s.dimension {
		return nil, storeerr.New(storeerr.KindDimensionMismatch, "vectors.Query",
			fmt.Errorf("query vector length %d != configured dimension %d", len(vector), v.s.dimension))
	}

	var out []model.ScoredVector
	err := v.s.withRetry(ctx, "vectors.Query", func(ctx context.Context) error {
		args := []any{pgvector.NewVector(vector), filter.ProjectID}
		q := `
			SELECT id, project_id, document_id, chunk_index, type, content, embedding, created_at,
			       1 - (embedding <=> $1) AS score
			FROM vectors
			WHERE project_id = $2`
		if filter.Kind != "" {
			args = append(args, filter.Kind)
			q += fmt.Sprintf(" AND type = $%d", len(args))
		}
		if len(filter.IDs) > 0 {
			args = append(args, filter.IDs)
			q += fmt.Sprintf(" AND id = ANY($%d::uuid[])", len(args))
		}
		args = append(args, k)
		q += fmt.Sprintf(" ORDER BY embedding <=> $1, created_at LIMIT $%d", len(args))

		rows, err := v.s.pool.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ScoredVector, error) {
			var sv model.ScoredVector
			var vec pgvector.Vector
			var docID *string
			if err := row.Scan(&sv.Entry.ID, &sv.Entry.ProjectID, &docID, &sv.Entry.ChunkIndex,
				&sv.Entry.Kind, &sv.Entry.Content, &vec, &sv.Entry.CreatedAt, &sv.Score); err != nil {
				return model.ScoredVector{}, err
			}
			sv.Entry.Vector = vec.Slice()
			if docID != nil {
				sv.Entry.DocumentID = *docID
			}
			return sv, nil
		})
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "vectors.Query", err)
	}
	if out == nil {
		out = []model.ScoredVector{}
	}
	return out, nil
}

func (v *vectorStore) Delete(ctx context.Context, projectID, id string) (bool, error) {
	var deleted bool
	err := v.s.withRetry(ctx, "vectors.Delete", func(ctx context.Context) error {
		tag, err := v.s.pool.Exec(ctx, `DELETE FROM vectors WHERE project_id = $1 AND id = $2`, projectID, id)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, storeerr.New(storeerr.Classify(err), "vectors.Delete", err)
	}
	return deleted, nil
}

func (v *vectorStore) DeleteBatch(ctx context.Context, projectID string, ids []string) (int, error) {
	var n int
	err := v.s.withRetry(ctx, "vectors.DeleteBatch", func(ctx context.Context) error {
		tag, err := v.s.pool.Exec(ctx, `DELETE FROM vectors WHERE project_id = $1 AND id = ANY($2::uuid[])`, projectID, ids)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "vectors.DeleteBatch", err)
	}
	return n, nil
}

func (v *vectorStore) DeleteEntityEmbeddings(ctx context.Context, projectID string, entityNames []string) (int, error) {
	var n int
	err := v.s.withRetry(ctx, "vectors.DeleteEntityEmbeddings", func(ctx context.Context) error {
		tag, err := v.s.pool.Exec(ctx,
			`DELETE FROM vectors WHERE project_id = $1 AND type = $2 AND content = ANY($3)`,
			projectID, model.VectorEntity, entityNames)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "vectors.DeleteEntityEmbeddings", err)
	}
	return n, nil
}

func (v *vectorStore) GetChunkIDsByDocumentID(ctx context.Context, projectID, documentID string) ([]string, error) {
	var ids []string
	err := v.s.withRetry(ctx, "vectors.GetChunkIDsByDocumentID", func(ctx context.Context) error {
		rows, err := v.s.pool.Query(ctx,
			`SELECT id FROM vectors WHERE project_id = $1 AND document_id = $2 ORDER BY chunk_index`,
			projectID, documentID)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "vectors.GetChunkIDsByDocumentID", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (v *vectorStore) HasVectors(ctx context.Context, documentID string) (bool, error) {
	var exists bool
	err := v.s.withRetry(ctx, "vectors.HasVectors", func(ctx context.Context) error {
		return v.s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vectors WHERE document_id = $1)`, documentID).Scan(&exists)
	})
	if err != nil {
		return false, storeerr.New(storeerr.Classify(err), "vectors.HasVectors", err)
	}
	return exists, nil
}

func (v *vectorStore) Size(ctx context.Context) (int, error) {
	var n int
	err := v.s.withRetry(ctx, "vectors.Size", func(ctx context.Context) error {
		return v.s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n)
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "vectors.Size", err)
	}
	return n, nil
}
