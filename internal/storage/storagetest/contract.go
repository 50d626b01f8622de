// Package storagetest is the shared conformance-contract suite exercised
// against both storage backends, following the general shape of
// MrWong99-glyphoxa/pkg/memory/postgres/store_test.go — one set of
// assertions run against whichever concrete store a runner hands it —
// using stretchr/testify the way the rest of the repository's tests do.
package storagetest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragstore/internal/storage"
	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

// NewBackend constructs a fresh, empty storage.Backend for one subtest and
// arranges for its cleanup via t.Cleanup.
type NewBackend func(t *testing.T) storage.Backend

// ContractVectorDim is the embedding dimension every runner must configure
// its backend with — the contract's vector fixtures are all this width.
const ContractVectorDim = 16

// RunContract exercises the storage contract's backend-level universal
// properties and literal scenarios (each sub-test names the ones it covers)
// against a backend built by newBackend. Property 9 and scenario S4 are
// covered by the retry package's tests, property 6 and scenario S5 by the
// portability package's tests. Each sub-test gets its own backend instance
// so they never share state.
func RunContract(t *testing.T, newBackend NewBackend) {
	t.Run("ProjectIsolation", func(t *testing.T) { testProjectIsolation(t, newBackend) })
	t.Run("NameNormalization", func(t *testing.T) { testNameNormalization(t, newBackend) })
	t.Run("EntityMergeIsIdempotent", func(t *testing.T) { testEntityMergeIdempotent(t, newBackend) })
	t.Run("RelationRejectsSelfLoop", func(t *testing.T) { testRelationRejectsSelfLoop(t, newBackend) })
	t.Run("ProjectDeleteCascades", func(t *testing.T) { testProjectDeleteCascades(t, newBackend) })
	t.Run("VectorSelfRetrieval", func(t *testing.T) { testVectorSelfRetrieval(t, newBackend) })
	t.Run("BFSBounds", func(t *testing.T) { testBFSBounds(t, newBackend) })
	t.Run("MigrateIsIdempotent", func(t *testing.T) { testMigrateIdempotent(t, newBackend) })
	t.Run("ConcurrentUpsertSameEntity", func(t *testing.T) { testConcurrentUpsertSameEntity(t, newBackend) })
}

// testProjectIsolation covers universal property 1 and scenario S1: two
// projects holding an entity with the same normalized name never see each
// other's data.
func testProjectIsolation(t *testing.T, newBackend NewBackend) {
	ctx := context.Background()
	backend := newBackend(t)

	projectA, err := backend.Projects().Create(ctx, "project-a")
	require.NoError(t, err)
	projectB, err := backend.Projects().Create(ctx, "project-b")
	require.NoError(t, err)

	require.NoError(t, backend.Graph().CreateProjectGraph(ctx, projectA.ID))
	require.NoError(t, backend.Graph().CreateProjectGraph(ctx, projectB.ID))

	require.NoError(t, backend.Graph().UpsertEntity(ctx, model.Entity{
		ProjectID: projectA.ID, Name: "apple", Type: "ORGANIZATION", Description: "Tech company",
	}))
	require.NoError(t, backend.Graph().UpsertEntity(ctx, model.Entity{
		ProjectID: projectB.ID, Name: "apple", Type: "FOOD", Description: "Red fruit",
	}))

	a, err := backend.Graph().GetEntity(ctx, projectA.ID, "apple")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "ORGANIZATION", a.Type)

	b, err := backend.Graph().GetEntity(ctx, projectB.ID, "apple")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "FOOD", b.Type)

	allA, err := backend.Graph().GetAllEntities(ctx, projectA.ID)
	require.NoError(t, err)
	assert.Len(t, allA, 1)

	allB, err := backend.Graph().GetAllEntities(ctx, projectB.ID)
	require.NoError(t, err)
	assert.Len(t, allB, 1)
}

// testNameNormalization covers universal property 2: lookups by raw,
// upper-cased, and whitespace-padded names all resolve to the same row.
func testNameNormalization(t *testing.T, newBackend NewBackend) {
	ctx := context.Background()
	backend := newBackend(t)

	project, err := backend.Projects().Create(ctx, "proj")
	require.NoError(t, err)
	require.NoError(t, backend.Graph().CreateProjectGraph(ctx, project.ID))

	require.NoError(t, backend.Graph().UpsertEntity(ctx, model.Entity{
		ProjectID: project.ID, Name: model.NormalizeName("  Tech  Corp "), Type: "ORGANIZATION",
	}))

	for _, candidate := range []string{"Tech Corp", "tech corp", "  TECH   CORP  "} {
		got, err := backend.Graph().GetEntity(ctx, project.ID, model.NormalizeName(candidate))
		require.NoError(t, err)
		require.NotNilf(t, got, "lookup for %q should resolve", candidate)
		assert.Equal(t, "tech corp", got.Name)
	}
}

// testEntityMergeIdempotent covers universal property 3: re-upserting the
// same name unions source_chunk_ids instead of replacing the row.
func testEntityMergeIdempotent(t *testing.T, newBackend NewBackend) {
	ctx := context.Background()
	backend := newBackend(t)

	project, err := backend.Projects().Create(ctx, "proj")
	require.NoError(t, err)
	require.NoError(t, backend.Graph().CreateProjectGraph(ctx, project.ID))

	require.NoError(t, backend.Graph().UpsertEntity(ctx, model.Entity{
		ProjectID: project.ID, Name: "widget", Description: "first pass", SourceChunkIDs: []string{"c1", "c2"},
	}))
	require.NoError(t, backend.Graph().UpsertEntity(ctx, model.Entity{
		ProjectID: project.ID, Name: "widget", Description: "second pass", SourceChunkIDs: []string{"c2", "c3"},
	}))

	entity, err := backend.Graph().GetEntity(ctx, project.ID, "widget")
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, "second pass", entity.Description)
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, entity.SourceChunkIDs)

	all, err := backend.Graph().GetAllEntities(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// testRelationRejectsSelfLoop covers universal property 4.
func testRelationRejectsSelfLoop(t *testing.T, newBackend NewBackend) {
	ctx := context.Background()
	backend := newBackend(t)

	project, err := backend.Projects().Create(ctx, "proj")
	require.NoError(t, err)
	require.NoError(t, backend.Graph().CreateProjectGraph(ctx, project.ID))
	require.NoError(t, backend.Graph().UpsertEntity(ctx, model.Entity{ProjectID: project.ID, Name: "x"}))

	err = backend.Graph().UpsertRelation(ctx, model.Relation{ProjectID: project.ID, SrcID: "x", TgtID: "x"})
	require.Error(t, err)
	assert.True(t, storeerr.Is(err, storeerr.KindInvalidArgument))
}

// testProjectDeleteCascades covers universal property 5: deleting a
// project removes its rows from every sub-store.
func testProjectDeleteCascades(t *testing.T, newBackend NewBackend) {
	ctx := context.Background()
	backend := newBackend(t)

	project, err := backend.Projects().Create(ctx, "proj")
	require.NoError(t, err)
	require.NoError(t, backend.Graph().CreateProjectGraph(ctx, project.ID))
	require.NoError(t, backend.Graph().UpsertEntity(ctx, model.Entity{ProjectID: project.ID, Name: "x"}))
	require.NoError(t, backend.Vectors().Upsert(ctx, model.VectorEntry{
		ID: "v1", ProjectID: project.ID, Vector: unitVector(ContractVectorDim, 0), Kind: model.VectorChunk, Content: "hello",
	}))

	require.NoError(t, backend.Projects().Delete(ctx, project.ID))

	got, err := backend.Projects().Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	entities, err := backend.Graph().GetAllEntities(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, entities)

	v, err := backend.Vectors().Get(ctx, project.ID, "v1")
	require.NoError(t, err)
	assert.Nil(t, v)
}

// testVectorSelfRetrieval covers universal property 7 and a scaled-down S3:
// querying with a vector identical to a stored one returns that vector
// first, with the highest similarity score.
func testVectorSelfRetrieval(t *testing.T, newBackend NewBackend) {
	ctx := context.Background()
	backend := newBackend(t)

	project, err := backend.Projects().Create(ctx, "proj")
	require.NoError(t, err)

	const dim = ContractVectorDim
	const count = 200
	var entries []model.VectorEntry
	for i := 0; i < count; i++ {
		entries = append(entries, model.VectorEntry{
			ID: fmt.Sprintf("vec-%d", i), ProjectID: project.ID,
			Vector: unitVector(dim, i), Kind: model.VectorChunk, Content: fmt.Sprintf("chunk %d", i),
		})
	}
	require.NoError(t, backend.Vectors().UpsertBatch(ctx, entries))

	target := entries[count/2]
	results, err := backend.Vectors().Query(ctx, target.Vector, 10, model.VectorFilter{ProjectID: project.ID})
	require.NoError(t, err)
	require.Len(t, results, 10)
	assert.Equal(t, target.ID, results[0].Entry.ID)
	assert.Greater(t, results[0].Score, 0.9)
}

// testBFSBounds covers universal property 8 and scenario S2.
func testBFSBounds(t *testing.T, newBackend NewBackend) {
	ctx := context.Background()
	backend := newBackend(t)

	project, err := backend.Projects().Create(ctx, "proj")
	require.NoError(t, err)
	require.NoError(t, backend.Graph().CreateProjectGraph(ctx, project.ID))

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, backend.Graph().UpsertEntity(ctx, model.Entity{ProjectID: project.ID, Name: name}))
	}
	for _, tgt := range []string{"b", "c", "d", "e"} {
		require.NoError(t, backend.Graph().UpsertRelation(ctx, model.Relation{ProjectID: project.ID, SrcID: "a", TgtID: tgt}))
	}

	bounded, err := backend.Graph().TraverseBFS(ctx, project.ID, "a", 10, 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(bounded.Entities), 3)
	assert.GreaterOrEqual(t, len(bounded.Entities), 1)
	names := make(map[string]bool)
	for _, e := range bounded.Entities {
		names[e.Name] = true
	}
	assert.True(t, names["a"])

	depthZero, err := backend.Graph().TraverseBFS(ctx, project.ID, "a", 0, 100)
	require.NoError(t, err)
	require.Len(t, depthZero.Entities, 1)
	assert.Equal(t, "a", depthZero.Entities[0].Name)
	assert.Empty(t, depthZero.Relations)
}

// testMigrateIdempotent covers universal property 10.
func testMigrateIdempotent(t *testing.T, newBackend NewBackend) {
	ctx := context.Background()
	backend := newBackend(t)

	require.NoError(t, backend.MigrateToLatest(ctx))
	require.NoError(t, backend.MigrateToLatest(ctx))
}

// testConcurrentUpsertSameEntity covers scenario S6: ten concurrent
// upserts of the same entity name each contributing a distinct source
// chunk id leave one row whose source_chunk_ids is the union of all ten.
func testConcurrentUpsertSameEntity(t *testing.T, newBackend NewBackend) {
	ctx := context.Background()
	backend := newBackend(t)

	project, err := backend.Projects().Create(ctx, "proj")
	require.NoError(t, err)
	require.NoError(t, backend.Graph().CreateProjectGraph(ctx, project.ID))

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = backend.Graph().UpsertEntity(ctx, model.Entity{
				ProjectID: project.ID, Name: "apple", SourceChunkIDs: []string{fmt.Sprintf("chunk-%d", i)},
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	all, err := backend.Graph().GetAllEntities(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0].SourceChunkIDs, n)
}

// unitVector returns a dim-length vector that is zero everywhere except a
// 1.0 at index hot%dim, giving deterministic, orthogonal-ish fixtures for
// similarity tests without needing real embeddings.
func unitVector(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot%dim] = 1.0
	// nudge every other component so no two fixtures are bitwise identical
	for i := range v {
		if i != hot%dim {
			v[i] = float32(0.001 * math.Sin(float64(i+hot)))
		}
	}
	return v
}
