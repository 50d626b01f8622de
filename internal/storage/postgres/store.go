// Package postgres is the server-class storage backend: pooled, stateless
// pgx/v5 sessions against PostgreSQL with the pgvector extension for
// similarity search and a level-by-level BFS loop (one batched query per
// level) for graph traversal.
//
// Grounded on MrWong99-glyphoxa/pkg/memory/postgres/store.go's pgxpool
// wiring (pgxvec.RegisterTypes on AfterConnect) and
// knowledge_graph.go's query shapes, generalized to thread project_id
// through every operation.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragstore/internal/storage"
	"github.com/fyrsmithlabs/ragstore/internal/storage/retry"
)

// Store is the server-class Backend implementation. It satisfies
// storage.Backend.
type Store struct {
	pool      *pgxpool.Pool
	logger    *zap.Logger
	policy    retry.Policy
	observe   retry.Observer
	dimension int

	projects  *projectStore
	documents *documentStore
	vectors   *vectorStore
	graph     *graphStore
	kv        *kvStore
	cache     *cacheStore
	docstatus *docStatusStore
}

var _ storage.Backend = (*Store)(nil)

// Option configures a Store at construction time.
type Option func(*Store)

// WithRetryPolicy overrides the default retry policy applied to every
// public operation.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithObserver registers a retry.Observer for retry telemetry.
func WithObserver(o retry.Observer) Option {
	return func(s *Store) { s.observe = o }
}

// New opens a pooled connection to dsn, registers pgvector's wire types on
// every connection, runs the migrator, and returns a ready Store.
func New(ctx context.Context, dsn string, dimension int, logger *zap.Logger, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{
		pool:      pool,
		logger:    logger,
		policy:    retry.DefaultPolicy(),
		dimension: dimension,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.projects = &projectStore{s}
	s.documents = &documentStore{s}
	s.vectors = &vectorStore{s}
	s.graph = &graphStore{s}
	s.kv = &kvStore{s}
	s.cache = &cacheStore{s}
	s.docstatus = &docStatusStore{s}

	return s, nil
}

func (s *Store) MigrateToLatest(ctx context.Context) error {
	return MigrateToLatest(ctx, s.pool, s.dimension)
}

func (s *Store) Projects() storage.ProjectStore               { return s.projects }
func (s *Store) Documents() storage.DocumentStore             { return s.documents }
func (s *Store) Vectors() storage.VectorStore                 { return s.vectors }
func (s *Store) Graph() storage.GraphStore                    { return s.graph }
func (s *Store) KV() storage.KVStore                           { return s.kv }
func (s *Store) ExtractionCache() storage.ExtractionCacheStore { return s.cache }
func (s *Store) DocStatus() storage.DocStatusStore             { return s.docstatus }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// withRetry wraps op with the Store's configured retry policy.
func (s *Store) withRetry(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	return retry.Do(ctx, s.policy, operation, s.observe, op)
}
