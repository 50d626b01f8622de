package facade_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragstore/internal/config"
	"github.com/fyrsmithlabs/ragstore/internal/storage/facade"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

func baseConfig() *config.Config {
	return &config.Config{
		Vector: config.VectorDimensionConfig{Dimension: 16},
		Retry:  config.RetryConfig{Enabled: false},
	}
}

// TestNew_SQLiteBackend confirms the selector opens an embedded backend and
// that the returned storage.Backend is immediately usable — covering the
// facade's switch branch dedicated to BackendSQLite.
func TestNew_SQLiteBackend(t *testing.T) {
	cfg := baseConfig()
	cfg.Storage.Backend = facade.BackendSQLite
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "ragstore.db")
	cfg.Storage.SQLite.WALMode = true

	backend, err := facade.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer backend.Close()

	proj, err := backend.Projects().Create(context.Background(), "demo")
	require.NoError(t, err)
	assert.NotEmpty(t, proj.ID)
}

// TestNew_UnsupportedBackend covers the default case: an unrecognized
// backend name fails closed with InvalidConfiguration rather than
// silently falling back to one of the two supported backends.
func TestNew_UnsupportedBackend(t *testing.T) {
	cfg := baseConfig()
	cfg.Storage.Backend = "mongodb"

	_, err := facade.New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.True(t, storeerr.Is(err, storeerr.KindInvalidConfiguration))
}
