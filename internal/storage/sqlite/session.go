// Package sqlite is the embedded storage backend: a single-process
// database/sql handle over mattn/go-sqlite3, split into one exclusive
// writer and a bounded pool of readers, the way thebtf-engram's
// sqlitevec.Client guards its vectors table with a writeMu/readMu pair
// instead of relying on SQLite's own locking to serialize writers.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Preset selects a pragma profile. The storage contract calls for a
// default profile tuned for durability and an "edge" profile tuned for
// low-resource, high-latency-tolerant devices.
type Preset string

const (
	PresetDefault Preset = "default"
	PresetEdge    Preset = "edge"
)

// session owns the embedded engine's two database/sql handles: a
// single-connection writer (so SQLite's own writer-serialization never
// has to arbitrate between Go goroutines) and a bounded multi-connection
// reader pool.
type session struct {
	writeMu sync.Mutex
	writeDB *sql.DB
	readDB  *sql.DB
	logger  *zap.Logger
	path    string
}

// Options configures how the embedded engine opens its database file.
type Options struct {
	Path          string // file path, or ":memory:" for an in-process database
	Preset        Preset
	BusyTimeoutMS int
	MaxReaders    int
}

func (o Options) withDefaults() Options {
	if o.Preset == "" {
		o.Preset = PresetDefault
	}
	if o.BusyTimeoutMS == 0 {
		o.BusyTimeoutMS = 5000
	}
	if o.MaxReaders == 0 {
		o.MaxReaders = 4
	}
	return o
}

func pragmaDSN(path string, opts Options) string {
	cacheSize := "-8000" // ~8MB page cache
	mmapSize := "67108864"
	if opts.Preset == PresetEdge {
		cacheSize = "-2000" // ~2MB page cache
		mmapSize = "16777216"
	}
	// An in-memory database is private to the connection that created it
	// unless the connections share a cache, so the writer and the reader
	// pool would otherwise see two independent empty databases.
	shared := ""
	if path == ":memory:" {
		shared = "&cache=shared"
	}
	return fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d&_cache_size=%s&_mmap_size=%s&_temp_store=memory%s",
		path, opts.BusyTimeoutMS, cacheSize, mmapSize, shared)
}

// open establishes the writer/reader handle pair. The writer pool is
// capped at one connection so every write is naturally serialized in
// Go; writeMu additionally serializes so a single logical "session" per
// traversal/transaction never interleaves with another writer.
func open(opts Options, logger *zap.Logger) (*session, error) {
	opts = opts.withDefaults()
	dsn := pragmaDSN(opts.Path, opts)

	writeDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open writer: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("sqlite: open readers: %w", err)
	}
	readDB.SetMaxOpenConns(opts.MaxReaders)

	return &session{writeDB: writeDB, readDB: readDB, logger: logger, path: opts.Path}, nil
}

func (s *session) close() error {
	werr := s.writeDB.Close()
	rerr := s.readDB.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// withWrite serializes op against every other writer on this session,
// mirroring sqlitevec.Client's writeMu discipline.
func (s *session) withWrite(ctx context.Context, op func(ctx context.Context, tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := op(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// read runs op against the bounded reader pool without taking the write
// lock, so concurrent reads never block on each other.
func (s *session) read(ctx context.Context, op func(ctx context.Context, db *sql.DB) error) error {
	return op(ctx, s.readDB)
}
