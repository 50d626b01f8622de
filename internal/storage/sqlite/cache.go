package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

type cacheStore struct{ s *Store }

func (c *cacheStore) Store(ctx context.Context, projectID string, cacheType model.CacheType, chunkID, contentHash, result string, tokensUsed int) error {
	if projectID == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "cache.Store", errors.New("project_id must not be empty"))
	}
	if contentHash == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "cache.Store", errors.New("content_hash must not be empty"))
	}

	err := c.s.withRetry(ctx, "cache.Store", func(ctx context.Context) error {
		return c.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			now := formatTime(time.Time{})
			_, err := tx.ExecContext(ctx, `
				INSERT INTO extraction_cache (id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (project_id, cache_type, content_hash) DO UPDATE SET
				    chunk_id    = excluded.chunk_id,
				    result      = excluded.result,
				    tokens_used = excluded.tokens_used,
				    updated_at  = excluded.updated_at`,
				uuid.NewString(), projectID, cacheType, chunkID, contentHash, result, tokensUsed, now, now)
			return err
		})
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "cache.Store", err)
	}
	return nil
}

func (c *cacheStore) Get(ctx context.Context, projectID string, cacheType model.CacheType, contentHash string) (*model.ExtractionCache, error) {
	var out model.ExtractionCache
	var createdAt, updatedAt string
	err := c.s.withRetry(ctx, "cache.Get", func(ctx context.Context) error {
		return c.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			row := db.QueryRowContext(ctx, `
				SELECT id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at, updated_at
				FROM extraction_cache WHERE project_id = ? AND cache_type = ? AND content_hash = ?`,
				projectID, cacheType, contentHash)
			return row.Scan(&out.ID, &out.ProjectID, &out.Type, &out.ChunkID, &out.ContentHash, &out.Result, &out.TokensUsed, &createdAt, &updatedAt)
		})
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "cache.Get", err)
	}
	out.CreatedAt, out.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
	return &out, nil
}

func (c *cacheStore) GetByChunkID(ctx context.Context, projectID, chunkID string) ([]model.ExtractionCache, error) {
	var out []model.ExtractionCache
	err := c.s.withRetry(ctx, "cache.GetByChunkID", func(ctx context.Context) error {
		return c.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			rows, err := db.QueryContext(ctx, `
				SELECT id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at, updated_at
				FROM extraction_cache WHERE project_id = ? AND chunk_id = ? ORDER BY created_at`, projectID, chunkID)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var e model.ExtractionCache
				var createdAt, updatedAt string
				if err := rows.Scan(&e.ID, &e.ProjectID, &e.Type, &e.ChunkID, &e.ContentHash, &e.Result, &e.TokensUsed, &createdAt, &updatedAt); err != nil {
					return err
				}
				e.CreatedAt, e.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
				out = append(out, e)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "cache.GetByChunkID", err)
	}
	if out == nil {
		out = []model.ExtractionCache{}
	}
	return out, nil
}

func (c *cacheStore) DeleteByProject(ctx context.Context, projectID string) (int, error) {
	var n int
	err := c.s.withRetry(ctx, "cache.DeleteByProject", func(ctx context.Context) error {
		return c.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `DELETE FROM extraction_cache WHERE project_id = ?`, projectID)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			n = int(affected)
			return err
		})
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "cache.DeleteByProject", err)
	}
	return n, nil
}
