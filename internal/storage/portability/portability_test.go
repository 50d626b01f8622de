package portability_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/portability"
	"github.com/fyrsmithlabs/ragstore/internal/storage/sqlite"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

const testDim = 8

func newStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(context.Background(), sqlite.Options{Path: path}, testDim, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func unitVector(hot int) []float32 {
	v := make([]float32, testDim)
	v[hot%testDim] = 1
	return v
}

// TestExportImportRoundTrip covers scenario S5: export a populated project
// to a standalone file, import it under a new id into a different store,
// and assert every sub-store's rows survived the round trip.
func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	srcPath := filepath.Join(dir, "src.db")
	src := newStore(t, srcPath)

	proj, err := src.Projects().Create(ctx, "alpha")
	require.NoError(t, err)

	doc, err := src.Documents().Create(ctx, model.Document{
		ProjectID: proj.ID,
		Type:      "text",
		Status:    model.DocNotProcessed,
		FileName:  "notes.txt",
		Content:   []byte("hello world"),
	})
	require.NoError(t, err)

	require.NoError(t, src.Vectors().Upsert(ctx, model.VectorEntry{
		ID:         "vec-1",
		ProjectID:  proj.ID,
		Vector:     unitVector(0),
		Kind:       model.VectorChunk,
		Content:    "hello world",
		DocumentID: doc.ID,
	}))

	require.NoError(t, src.Graph().CreateProjectGraph(ctx, proj.ID))
	require.NoError(t, src.Graph().UpsertEntity(ctx, model.Entity{
		ProjectID:      proj.ID,
		Name:           "apple",
		Type:           "fruit",
		Description:    "a fruit",
		SourceChunkIDs: []string{"c1"},
	}))
	require.NoError(t, src.Graph().UpsertEntity(ctx, model.Entity{
		ProjectID: proj.ID,
		Name:      "tree",
		Type:      "plant",
	}))
	require.NoError(t, src.Graph().UpsertRelation(ctx, model.Relation{
		ProjectID: proj.ID,
		SrcID:     "apple",
		TgtID:     "tree",
		Weight:    1,
	}))

	require.NoError(t, src.ExtractionCache().Store(ctx, proj.ID, model.CacheEntityExtraction, "c1", "hash-1", "{}", 10))

	require.NoError(t, src.DocStatus().SetStatus(ctx, model.Pending(doc.ID, doc.FileName).AsCompleted(1, 2, 1)))

	require.NoError(t, src.KV().Set(ctx, proj.ID+":greeting", "hello"))

	exportPath := filepath.Join(dir, "export.db")
	require.NoError(t, portability.ExportProject(ctx, src.DB(), proj.ID, exportPath))

	destPath := filepath.Join(dir, "dest.db")
	dest := newStore(t, destPath)

	newProjectID, err := portability.ImportProject(ctx, dest.DB(), exportPath, "imported-project")
	require.NoError(t, err)
	assert.Equal(t, "imported-project", newProjectID)

	gotProj, err := dest.Projects().Get(ctx, newProjectID)
	require.NoError(t, err)
	require.NotNil(t, gotProj)
	assert.Equal(t, "alpha", gotProj.Name)

	entities, err := dest.Graph().GetAllEntities(ctx, newProjectID)
	require.NoError(t, err)
	assert.Len(t, entities, 2)

	relations, err := dest.Graph().GetAllRelations(ctx, newProjectID)
	require.NoError(t, err)
	require.Len(t, relations, 1)
	assert.Equal(t, "apple", relations[0].SrcID)
	assert.Equal(t, "tree", relations[0].TgtID)

	cached, err := dest.ExtractionCache().Get(ctx, newProjectID, model.CacheEntityExtraction, "hash-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "{}", cached.Result)

	val, ok, err := dest.KV().Get(ctx, newProjectID+":greeting")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", val)
}

// TestExportProject_RejectsExistingDestination covers the destPath-must-not-
// already-exist precondition.
func TestExportProject_RejectsExistingDestination(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := newStore(t, filepath.Join(dir, "src.db"))

	proj, err := src.Projects().Create(ctx, "alpha")
	require.NoError(t, err)

	destPath := filepath.Join(dir, "already-there.db")
	require.NoError(t, os.WriteFile(destPath, []byte("x"), 0o600))

	err = portability.ExportProject(ctx, src.DB(), proj.ID, destPath)
	require.Error(t, err)
	assert.True(t, storeerr.Is(err, storeerr.KindInvalidArgument))
}

// TestExportProject_UnknownProject covers the source-project-must-exist
// precondition.
func TestExportProject_UnknownProject(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := newStore(t, filepath.Join(dir, "src.db"))

	err := portability.ExportProject(ctx, src.DB(), "does-not-exist", filepath.Join(dir, "export.db"))
	require.Error(t, err)
	assert.True(t, storeerr.Is(err, storeerr.KindInvalidArgument))
}

// TestImportProject_RejectsBadMagicHeader covers the file-format validation
// that lets import reject a non-SQLite file before ever opening it as a
// database.
func TestImportProject_RejectsBadMagicHeader(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dest := newStore(t, filepath.Join(dir, "dest.db"))

	badFile := filepath.Join(dir, "not-a-db.txt")
	require.NoError(t, os.WriteFile(badFile, []byte("definitely not a sqlite file"), 0o600))

	_, err := portability.ImportProject(ctx, dest.DB(), badFile, "new-project")
	require.Error(t, err)
	assert.True(t, storeerr.Is(err, storeerr.KindFileFormatError))
}

// TestExportImport_IDCollisionRegenerated covers the id-collision
// regeneration path: importing a project whose document id already exists
// in the destination must mint a fresh id rather than fail or overwrite.
func TestExportImport_IDCollisionRegenerated(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	srcPath := filepath.Join(dir, "src.db")
	src := newStore(t, srcPath)
	proj, err := src.Projects().Create(ctx, "alpha")
	require.NoError(t, err)
	doc, err := src.Documents().Create(ctx, model.Document{
		ProjectID: proj.ID,
		Type:      "text",
		Status:    model.DocNotProcessed,
		FileName:  "a.txt",
		Content:   []byte("a"),
	})
	require.NoError(t, err)

	exportPath := filepath.Join(dir, "export.db")
	require.NoError(t, portability.ExportProject(ctx, src.DB(), proj.ID, exportPath))

	destPath := filepath.Join(dir, "dest.db")
	dest := newStore(t, destPath)
	collidingProj, err := dest.Projects().Create(ctx, "beta")
	require.NoError(t, err)
	_, err = dest.Documents().Create(ctx, model.Document{
		ID:        doc.ID,
		ProjectID: collidingProj.ID,
		Type:      "text",
		Status:    model.DocNotProcessed,
		FileName:  "colliding.txt",
		Content:   []byte("b"),
	})
	require.NoError(t, err)

	newProjectID, err := portability.ImportProject(ctx, dest.DB(), exportPath, "imported")
	require.NoError(t, err)

	original, err := dest.Documents().Get(ctx, collidingProj.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "colliding.txt", original.FileName)

	imported, err := dest.Documents().Get(ctx, newProjectID, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, imported, "imported document must not have reused the colliding id")
}
