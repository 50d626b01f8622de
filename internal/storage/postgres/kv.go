package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

// kvStore implements storage.KVStore against kv_store. Tenant isolation is
// by key-prefix convention (e.g. "<project_id>:<key>"), per the Open
// Question decision recorded alongside this package's sibling stores —
// the table itself carries no project_id column.
type kvStore struct{ s *Store }

func (k *kvStore) Set(ctx context.Context, key, value string) error {
	err := k.s.withRetry(ctx, "kv.Set", func(ctx context.Context) error {
		const q = `
			INSERT INTO kv_store (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
		_, err := k.s.pool.Exec(ctx, q, key, value)
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "kv.Set", err)
	}
	return nil
}

func (k *kvStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var found bool
	err := k.s.withRetry(ctx, "kv.Get", func(ctx context.Context) error {
		row := k.s.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key)
		if err := row.Scan(&value); err != nil {
			if err == pgx.ErrNoRows {
				found = false
				return nil
			}
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return "", false, storeerr.New(storeerr.Classify(err), "kv.Get", err)
	}
	return value, found, nil
}

func (k *kvStore) Delete(ctx context.Context, key string) error {
	err := k.s.withRetry(ctx, "kv.Delete", func(ctx context.Context) error {
		_, err := k.s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "kv.Delete", err)
	}
	return nil
}

func (k *kvStore) DeleteBatch(ctx context.Context, keys []string) (int, error) {
	var n int
	err := k.s.withRetry(ctx, "kv.DeleteBatch", func(ctx context.Context) error {
		tag, err := k.s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = ANY($1)`, keys)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "kv.DeleteBatch", err)
	}
	return n, nil
}

func (k *kvStore) SetBatch(ctx context.Context, entries map[string]string) error {
	err := k.s.withRetry(ctx, "kv.SetBatch", func(ctx context.Context) error {
		tx, err := k.s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		const q = `
			INSERT INTO kv_store (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
		for key, value := range entries {
			if _, err := tx.Exec(ctx, q, key, value); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "kv.SetBatch", err)
	}
	return nil
}

func (k *kvStore) GetBatch(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	err := k.s.withRetry(ctx, "kv.GetBatch", func(ctx context.Context) error {
		rows, err := k.s.pool.Query(ctx, `SELECT key, value FROM kv_store WHERE key = ANY($1)`, keys)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				return err
			}
			out[key] = value
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "kv.GetBatch", err)
	}
	return out, nil
}

func (k *kvStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := k.s.withRetry(ctx, "kv.Exists", func(ctx context.Context) error {
		return k.s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM kv_store WHERE key = $1)`, key).Scan(&exists)
	})
	if err != nil {
		return false, storeerr.New(storeerr.Classify(err), "kv.Exists", err)
	}
	return exists, nil
}

// Keys matches pattern using SQL LIKE, translating every "*" glob into "%"
// since callers pass prefix patterns like "<project_id>:*".
func (k *kvStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	likePattern := strings.ReplaceAll(pattern, "*", "%")
	var out []string
	err := k.s.withRetry(ctx, "kv.Keys", func(ctx context.Context) error {
		rows, err := k.s.pool.Query(ctx, `SELECT key FROM kv_store WHERE key LIKE $1 ORDER BY key`, likePattern)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "kv.Keys", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (k *kvStore) Clear(ctx context.Context) error {
	err := k.s.withRetry(ctx, "kv.Clear", func(ctx context.Context) error {
		_, err := k.s.pool.Exec(ctx, `TRUNCATE kv_store`)
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "kv.Clear", err)
	}
	return nil
}

func (k *kvStore) Size(ctx context.Context) (int, error) {
	var n int
	err := k.s.withRetry(ctx, "kv.Size", func(ctx context.Context) error {
		return k.s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM kv_store`).Scan(&n)
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "kv.Size", err)
	}
	return n, nil
}
