package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragstore/internal/storage"
	"github.com/fyrsmithlabs/ragstore/internal/storage/retry"
)

// Store is the embedded Backend implementation: one SQLite file (or an
// in-memory database) guarded by a single-writer/bounded-reader session.
type Store struct {
	sess      *session
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

func WithRetryPolicy(p retry.Policy) Option { return func(s *Store) { s.policy = p } }
func WithObserver(o retry.Observer) Option  { return func(s *Store) { s.observe = o } }

// New opens the embedded database at opts.Path (or ":memory:"), runs the
// migrator, and returns a ready Store.
func New(ctx context.Context, opts Options, dimension int, logger *zap.Logger, storeOpts ...Option) (*Store, error) {
	sess, err := open(opts, logger)
	if err != nil {
		return nil, err
	}
	if err := migrateToLatest(ctx, sess.writeDB); err != nil {
		sess.close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	s := &Store{
		sess:      sess,
		logger:    logger,
		policy:    retry.DefaultPolicy(),
		dimension: dimension,
	}
	for _, opt := range storeOpts {
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
	return migrateToLatest(ctx, s.sess.writeDB)
}

func (s *Store) Projects() storage.ProjectStore               { return s.projects }
func (s *Store) Documents() storage.DocumentStore             { return s.documents }
func (s *Store) Vectors() storage.VectorStore                 { return s.vectors }
func (s *Store) Graph() storage.GraphStore                    { return s.graph }
func (s *Store) KV() storage.KVStore                           { return s.kv }
func (s *Store) ExtractionCache() storage.ExtractionCacheStore { return s.cache }
func (s *Store) DocStatus() storage.DocStatusStore             { return s.docstatus }

func (s *Store) Close() error { return s.sess.close() }

// DB exposes the writer handle for offline maintenance operations — today
// only the portability package's export/import, which needs to run its own
// multi-table row copy outside any single sub-store's contract. Callers
// must not interleave this with concurrent Store writes.
func (s *Store) DB() *sql.DB { return s.sess.writeDB }

// withRetry wraps op with the Store's configured retry policy.
func (s *Store) withRetry(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	return retry.Do(ctx, s.policy, operation, s.observe, op)
}
