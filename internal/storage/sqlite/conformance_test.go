package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragstore/internal/storage"
	"github.com/fyrsmithlabs/ragstore/internal/storage/sqlite"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storagetest"
)

// TestConformance runs the shared storage contract against a fresh
// in-memory embedded database per sub-test — the embedded backend always
// runs this suite, unlike the postgres runner which needs a reachable
// database.
func TestConformance(t *testing.T) {
	storagetest.RunContract(t, func(t *testing.T) storage.Backend {
		t.Helper()
		ctx := context.Background()
		opts := sqlite.Options{Path: ":memory:"}
		store, err := sqlite.New(ctx, opts, storagetest.ContractVectorDim, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}
