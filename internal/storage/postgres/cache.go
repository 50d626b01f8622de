package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

// cacheStore implements storage.ExtractionCacheStore against
// extraction_cache, memoizing expensive extraction output keyed by
// (project_id, cache_type, content_hash).
type cacheStore struct{ s *Store }

func (c *cacheStore) Store(ctx context.Context, projectID string, cacheType model.CacheType, chunkID, contentHash, result string, tokensUsed int) error {
	if projectID == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "cache.Store", errors.New("project_id must not be empty"))
	}
	if contentHash == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "cache.Store", errors.New("content_hash must not be empty"))
	}

	err := c.s.withRetry(ctx, "cache.Store", func(ctx context.Context) error {
		const q = `
			INSERT INTO extraction_cache (id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (project_id, cache_type, content_hash) DO UPDATE SET
			    chunk_id    = EXCLUDED.chunk_id,
			    result      = EXCLUDED.result,
			    tokens_used = EXCLUDED.tokens_used,
			    updated_at  = now()`
		_, err := c.s.pool.Exec(ctx, q, uuid.NewString(), projectID, cacheType, chunkID, contentHash, result, tokensUsed)
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "cache.Store", err)
	}
	return nil
}

func (c *cacheStore) Get(ctx context.Context, projectID string, cacheType model.CacheType, contentHash string) (*model.ExtractionCache, error) {
	var out model.ExtractionCache
	err := c.s.withRetry(ctx, "cache.Get", func(ctx context.Context) error {
		const q = `
			SELECT id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at, updated_at
			FROM extraction_cache WHERE project_id = $1 AND cache_type = $2 AND content_hash = $3`
		row := c.s.pool.QueryRow(ctx, q, projectID, cacheType, contentHash)
		return row.Scan(&out.ID, &out.ProjectID, &out.Type, &out.ChunkID, &out.ContentHash, &out.Result, &out.TokensUsed, &out.CreatedAt, &out.UpdatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "cache.Get", err)
	}
	return &out, nil
}

func (c *cacheStore) GetByChunkID(ctx context.Context, projectID, chunkID string) ([]model.ExtractionCache, error) {
	var out []model.ExtractionCache
	err := c.s.withRetry(ctx, "cache.GetByChunkID", func(ctx context.Context) error {
		rows, err := c.s.pool.Query(ctx, `
			SELECT id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at, updated_at
			FROM extraction_cache WHERE project_id = $1 AND chunk_id = $2 ORDER BY created_at`, projectID, chunkID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ExtractionCache, error) {
			var e model.ExtractionCache
			err := row.Scan(&e.ID, &e.ProjectID, &e.Type, &e.ChunkID, &e.ContentHash, &e.Result, &e.TokensUsed, &e.CreatedAt, &e.UpdatedAt)
			return e, err
		})
		return err
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
		tag, err := c.s.pool.Exec(ctx, `DELETE FROM extraction_cache WHERE project_id = $1`, projectID)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "cache.DeleteByProject", err)
	}
	return n, nil
}
