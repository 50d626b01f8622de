package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

type projectStore struct{ s *Store }

func (p *projectStore) Create(ctx context.Context, name string) (*model.Project, error) {
	if name == "" {
		return nil, storeerr.New(storeerr.KindInvalidArgument, "projects.Create", errors.New("name must not be empty"))
	}

	var proj model.Project
	err := p.s.withRetry(ctx, "projects.Create", func(ctx context.Context) error {
		id := uuid.NewString()
		const q = `
			INSERT INTO projects (id, name, created_at, updated_at)
			VALUES ($1, $2, now(), now())
			RETURNING id, name, created_at, updated_at`
		row := p.s.pool.QueryRow(ctx, q, id, name)
		return row.Scan(&proj.ID, &proj.Name, &proj.CreatedAt, &proj.UpdatedAt)
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "projects.Create", err)
	}
	return &proj, nil
}

func (p *projectStore) Get(ctx context.Context, id string) (*model.Project, error) {
	var proj model.Project
	err := p.s.withRetry(ctx, "projects.Get", func(ctx context.Context) error {
		const q = `SELECT id, name, created_at, updated_at FROM projects WHERE id = $1`
		row := p.s.pool.QueryRow(ctx, q, id)
		return row.Scan(&proj.ID, &proj.Name, &proj.CreatedAt, &proj.UpdatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "projects.Get", err)
	}
	return &proj, nil
}

func (p *projectStore) List(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	err := p.s.withRetry(ctx, "projects.List", func(ctx context.Context) error {
		const q = `SELECT id, name, created_at, updated_at FROM projects ORDER BY created_at`
		rows, err := p.s.pool.Query(ctx, q)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Project, error) {
			var pr model.Project
			err := row.Scan(&pr.ID, &pr.Name, &pr.CreatedAt, &pr.UpdatedAt)
			return pr, err
		})
		return err
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
		_, err := p.s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "projects.Delete", err)
	}
	return nil
}
