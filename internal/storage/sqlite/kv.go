package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

type kvStore struct{ s *Store }

func (k *kvStore) Set(ctx context.Context, key, value string) error {
	err := k.s.withRetry(ctx, "kv.Set", func(ctx context.Context) error {
		return k.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
				ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				key, value, formatTime(time.Time{}))
			return err
		})
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
		return k.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			err := db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
			if errors.Is(err, sql.ErrNoRows) {
				found = false
				return nil
			}
			if err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return "", false, storeerr.New(storeerr.Classify(err), "kv.Get", err)
	}
	return value, found, nil
}

func (k *kvStore) Delete(ctx context.Context, key string) error {
	err := k.s.withRetry(ctx, "kv.Delete", func(ctx context.Context) error {
		return k.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
			return err
		})
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "kv.Delete", err)
	}
	return nil
}

func (k *kvStore) DeleteBatch(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	var n int
	err := k.s.withRetry(ctx, "kv.DeleteBatch", func(ctx context.Context) error {
		return k.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			q := "DELETE FROM kv_store WHERE key IN (" + placeholders(len(keys)) + ")"
			res, err := tx.ExecContext(ctx, q, toAnySlice(keys)...)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			n = int(affected)
			return err
		})
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "kv.DeleteBatch", err)
	}
	return n, nil
}

func (k *kvStore) SetBatch(ctx context.Context, entries map[string]string) error {
	err := k.s.withRetry(ctx, "kv.SetBatch", func(ctx context.Context) error {
		return k.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			now := formatTime(time.Time{})
			for key, value := range entries {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
					ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
					key, value, now); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "kv.SetBatch", err)
	}
	return nil
}

func (k *kvStore) GetBatch(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	err := k.s.withRetry(ctx, "kv.GetBatch", func(ctx context.Context) error {
		return k.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			q := "SELECT key, value FROM kv_store WHERE key IN (" + placeholders(len(keys)) + ")"
			rows, err := db.QueryContext(ctx, q, toAnySlice(keys)...)
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
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "kv.GetBatch", err)
	}
	return out, nil
}

func (k *kvStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := k.s.withRetry(ctx, "kv.Exists", func(ctx context.Context) error {
		return k.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			return db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM kv_store WHERE key = ?)`, key).Scan(&exists)
		})
	})
	if err != nil {
		return false, storeerr.New(storeerr.Classify(err), "kv.Exists", err)
	}
	return exists, nil
}

func (k *kvStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	likePattern := strings.ReplaceAll(pattern, "*", "%")
	var out []string
	err := k.s.withRetry(ctx, "kv.Keys", func(ctx context.Context) error {
		return k.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			rows, err := db.QueryContext(ctx, `SELECT key FROM kv_store WHERE key LIKE ? ORDER BY key`, likePattern)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var key string
				if err := rows.Scan(&key); err != nil {
					return err
				}
				out = append(out, key)
			}
			return rows.Err()
		})
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
		return k.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM kv_store`)
			return err
		})
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "kv.Clear", err)
	}
	return nil
}

func (k *kvStore) Size(ctx context.Context) (int, error) {
	var n int
	err := k.s.withRetry(ctx, "kv.Size", func(ctx context.Context) error {
		return k.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			return db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_store`).Scan(&n)
		})
	})
	if err != nil {
		return 0, storeerr.New(storeerr.Classify(err), "kv.Size", err)
	}
	return n, nil
}
