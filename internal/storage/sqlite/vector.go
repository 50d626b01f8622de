package sqlite

import (
	"container/heap"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

// vectorStore implements storage.VectorStore by linear-scanning the
// vectors table and ranking in Go, the embedded engine's stand-in for
// pgvector's HNSW index — acceptable at the per-project scale this
// backend targets.
type vectorStore struct{ s *Store }

func (v *vectorStore) Initialize(ctx context.Context, dimension int) error {
	if dimension != v.s.dimension {
		return storeerr.New(storeerr.KindDimensionMismatch, "vectors.Initialize",
			fmt.Errorf("requested dimension %d does not match configured dimension %d", dimension, v.s.dimension))
	}
	return nil
}

func (v *vectorStore) upsertOne(ctx context.Context, tx *sql.Tx, entry model.VectorEntry) error {
	if len(entry.Vector) != v.s.dimension {
		return storeerr.New(storeerr.KindDimensionMismatch, "vectors.Upsert",
			fmt.Errorf("vector length %d != configured dimension %d", len(entry.Vector), v.s.dimension))
	}
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vectors (id, project_id, document_id, chunk_index, type, content, embedding, dims, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		    project_id  = excluded.project_id,
		    document_id = excluded.document_id,
		    chunk_index = excluded.chunk_index,
		    type        = excluded.type,
		    content     = excluded.content,
		    embedding   = excluded.embedding,
		    dims        = excluded.dims`,
		id, entry.ProjectID, nullableString(entry.DocumentID), entry.ChunkIndex, entry.Kind, entry.Content,
		encodeVector(entry.Vector), len(entry.Vector), formatTime(entry.CreatedAt))
	return err
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (v *vectorStore) Upsert(ctx context.Context, entry model.VectorEntry) error {
	if entry.ProjectID == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "vectors.Upsert", errors.New("project_id must not be empty"))
	}
	err := v.s.withRetry(ctx, "vectors.Upsert", func(ctx context.Context) error {
		return v.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			return v.upsertOne(ctx, tx, entry)
		})
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "vectors.Upsert", err)
	}
	return nil
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
			return v.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
				for _, entry := range chunk {
					if err := v.upsertOne(ctx, tx, entry); err != nil {
						return err
					}
				}
				return nil
			})
		})
		if err != nil {
			return storeerr.New(storeerr.Classify(err), "vectors.UpsertBatch", err)
		}
	}
	return nil
}

func scanVectorRow(row interface {
	Scan(dest ...any) error
}) (model.VectorEntry, error) {
	var out model.VectorEntry
	var docID *string
	var blob []byte
	var createdAt string
	if err := row.Scan(&out.ID, &out.ProjectID, &docID, &out.ChunkIndex, &out.Kind, &out.Content, &blob, &createdAt); err != nil {
		return model.VectorEntry{}, err
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return model.VectorEntry{}, err
	}
	out.Vector = vec
	out.CreatedAt = parseTime(createdAt)
	if docID != nil {
		out.DocumentID = *docID
	}
	return out, nil
}

func (v *vectorStore) Get(ctx context.Context, projectID, id string) (*model.VectorEntry, error) {
	var out model.VectorEntry
	err := v.s.withRetry(ctx, "vectors.Get", func(ctx context.Context) error {
		return v.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			row := db.QueryRowContext(ctx, `
				SELECT id, project_id, document_id, chunk_index, type, content, embedding, created_at
				FROM vectors WHERE project_id = ? AND id = ?`, projectID, id)
			entry, err := scanVectorRow(row)
			out = entry
			return err
		})
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "vectors.Get", err)
	}
	return &out, nil
}

// scoredHeap is a min-heap on Score, used to keep only the top-k matches
// while scanning the whole project partition once.
type scoredHeap []model.ScoredVector

func (h scoredHeap) Len() int            { return len(h) }
func (h scoredHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h scoredHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x any)         { *h = append(*h, x.(model.ScoredVector)) }
func (h *scoredHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (v *vectorStore) Query(ctx context.Context, vector []float32, k int, filter model.VectorFilter) ([]model.ScoredVector, error) {
	if len(vector) != v.s.dimension {
		return nil, storeerr.New(storeerr.KindDimensionMismatch, "vectors.Query",
			fmt.Errorf("query vector length %d != configured dimension %d", len(vector), v.s.dimension))
	}

	idSet := make(map[string]struct{}, len(filter.IDs))
	for _, id := range filter.IDs {
		idSet[id] = struct{}{}
	}

	var out []model.ScoredVector
	err := v.s.withRetry(ctx, "vectors.Query", func(ctx context.Context) error {
		return v.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			q := `SELECT id, project_id, document_id, chunk_index, type, content, embedding, created_at
				FROM vectors WHERE project_id = ?`
			args := []any{filter.ProjectID}
			if filter.Kind != "" {
				q += " AND type = ?"
				args = append(args, filter.Kind)
			}
			rows, err := db.QueryContext(ctx, q, args...)
			if err != nil {
				return err
			}
			defer rows.Close()

			h := &scoredHeap{}
			heap.Init(h)
			for rows.Next() {
				entry, err := scanVectorRow(rows)
				if err != nil {
					return err
				}
				if len(idSet) > 0 {
					if _, ok := idSet[entry.ID]; !ok {
						continue
					}
				}
				score := cosineSimilarity(vector, entry.Vector)
				heap.Push(h, model.ScoredVector{Entry: entry, Score: score})
				if h.Len() > k {
					heap.Pop(h)
				}
			}
			if err := rows.Err(); err != nil {
				return err
			}

			out = make([]model.ScoredVector, h.Len())
			for i := len(out) - 1; i >= 0; i-- {
				out[i] = heap.Pop(h).(model.ScoredVector)
			}
			return nil
		})
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
		return v.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE project_id = ? AND id = ?`, projectID, id)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			deleted = n > 0
			return err
		})
	})
	if err != nil {
		return false, storeerr.New(storeerr.Classify(err), "vectors.Delete", err)
	}
	return deleted, nil
}

func (v *vectorStore) DeleteBatch(ctx context.Context, projectID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	err := v.s.withRetry(ctx, "vectors.DeleteBatch", func(ctx context.Context) error {
		return v.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			q := fmt.Sprintf(`DELETE FROM vectors WHERE project_id = ? AND id IN (%s)`, placeholders(len(ids)))
			args := append([]any{projectID}, toAnySlice(ids)...)
			res, err := tx.ExecContext(ctx, q, args...)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			n = int(affected)
			return err
		})
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "vectors.DeleteBatch", err)
	}
	return n, nil
}

func (v *vectorStore) DeleteEntityEmbeddings(ctx context.Context, projectID string, entityNames []string) (int, error) {
	if len(entityNames) == 0 {
		return 0, nil
	}
	var n int
	err := v.s.withRetry(ctx, "vectors.DeleteEntityEmbeddings", func(ctx context.Context) error {
		return v.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			q := fmt.Sprintf(`DELETE FROM vectors WHERE project_id = ? AND type = ? AND content IN (%s)`, placeholders(len(entityNames)))
			args := append([]any{projectID, model.VectorEntity}, toAnySlice(entityNames)...)
			res, err := tx.ExecContext(ctx, q, args...)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			n = int(affected)
			return err
		})
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "vectors.DeleteEntityEmbeddings", err)
	}
	return n, nil
}

func (v *vectorStore) GetChunkIDsByDocumentID(ctx context.Context, projectID, documentID string) ([]string, error) {
	var ids []string
	err := v.s.withRetry(ctx, "vectors.GetChunkIDsByDocumentID", func(ctx context.Context) error {
		return v.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			rows, err := db.QueryContext(ctx,
				`SELECT id FROM vectors WHERE project_id = ? AND document_id = ? ORDER BY chunk_index`, projectID, documentID)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return rows.Err()
		})
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
		return v.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			return db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM vectors WHERE document_id = ?)`, documentID).Scan(&exists)
		})
	})
	if err != nil {
		return false, storeerr.New(storeerr.Classify(err), "vectors.HasVectors", err)
	}
	return exists, nil
}

func (v *vectorStore) Size(ctx context.Context) (int, error) {
	var n int
	err := v.s.withRetry(ctx, "vectors.Size", func(ctx context.Context) error {
		return v.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			return db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n)
		})
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "vectors.Size", err)
	}
	return n, nil
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ",")
}

func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
