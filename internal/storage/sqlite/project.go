package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

type projectStore struct{ s *Store }

func (p *projectStore) Create(ctx context.Context, name string) (*model.Project, error) {
	if name == "" {
		return nil, storeerr.New(storeerr.KindInvalidArgument, "projects.Create", errors.New("name must not be empty"))
	}

	proj := model.Project{ID: uuid.NewString(), Name: name}
	err := p.s.withRetry(ctx, "projects.Create", func(ctx context.Context) error {
		return p.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			now := formatTime(proj.CreatedAt)
			proj.CreatedAt, proj.UpdatedAt = parseTime(now), parseTime(now)
			_, err := tx.ExecContext(ctx,
				`INSERT INTO projects (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
				proj.ID, proj.Name, now, now)
			return err
		})
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "projects.Create", err)
	}
	return &proj, nil
}

func (p *projectStore) Get(ctx context.Context, id string) (*model.Project, error) {
	var out model.Project
	var createdAt, updatedAt string
	err := p.s.withRetry(ctx, "projects.Get", func(ctx context.Context) error {
		return p.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			row := db.QueryRowContext(ctx, `SELECT id, name, created_at, updated_at FROM projects WHERE id = ?`, id)
			return row.Scan(&out.ID, &out.Name, &createdAt, &updatedAt)
		})
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "projects.Get", err)
	}
	out.CreatedAt, out.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
	return &out, nil
}

func (p *projectStore) List(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	err := p.s.withRetry(ctx, "projects.List", func(ctx context.Context) error {
		return p.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			rows, err := db.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM projects ORDER BY created_at`)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var pr model.Project
				var createdAt, updatedAt string
				if err := rows.Scan(&pr.ID, &pr.Name, &createdAt, &updatedAt); err != nil {
					return err
				}
				pr.CreatedAt, pr.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
				out = append(out, pr)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "projects.List", err)
	}
	if out == nil {
		out = []model.Project{}
	}
	return out, nil
}

func (p *projectStore) Delete(ctx context.Context, id string) error {
	err := p.s.withRetry(ctx, "projects.Delete", func(ctx context.Context) error {
		return p.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
			return err
		})
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "projects.Delete", err)
	}
	return nil
}
