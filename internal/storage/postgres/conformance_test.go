package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragstore/internal/storage"
	"github.com/fyrsmithlabs/ragstore/internal/storage/postgres"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storagetest"
)

// TestConformance runs the shared storage contract against a real
// PostgreSQL+pgvector database named by RAGSTORE_TEST_POSTGRES_DSN. It
// skips entirely when that variable is unset, the way
// MrWong99-glyphoxa/pkg/memory/postgres/store_test.go gates its own
// integration tests on GLYPHOXA_TEST_POSTGRES_DSN.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("RAGSTORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RAGSTORE_TEST_POSTGRES_DSN not set — skipping PostgreSQL conformance tests")
	}

	storagetest.RunContract(t, func(t *testing.T) storage.Backend {
		t.Helper()
		ctx := context.Background()
		dropSchema(t, ctx, dsn)

		store, err := postgres.New(ctx, dsn, storagetest.ContractVectorDim, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

// dropSchema removes every table the migrator creates, in FK-safe order,
// so each sub-test starts from a clean, freshly migrated schema.
func dropSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_ = pgxvec.RegisterTypes(ctx, conn)
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()

	for _, stmt := range []string{
		"DROP TABLE IF EXISTS document_status CASCADE",
		"DROP TABLE IF EXISTS kv_store CASCADE",
		"DROP TABLE IF EXISTS extraction_cache CASCADE",
		"DROP TABLE IF EXISTS graph_relations CASCADE",
		"DROP TABLE IF EXISTS graph_entities CASCADE",
		"DROP TABLE IF EXISTS vectors CASCADE",
		"DROP TABLE IF EXISTS documents CASCADE",
		"DROP TABLE IF EXISTS projects CASCADE",
		"DROP TABLE IF EXISTS schema_version CASCADE",
	} {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}
}
