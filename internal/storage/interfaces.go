// Package storage defines the storage facade's sub-store contracts. Two
// backends — postgres and sqlite — each implement every interface here with
// identical observable behavior; facade.New picks one by configuration.
package storage

import (
	"context"

	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
)

// ProjectStore manages the tenant-isolation root records.
type ProjectStore interface {
	Create(ctx context.Context, name string) (*model.Project, error)
	Get(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context) ([]model.Project, error)
	Delete(ctx context.Context, id string) error
}

// VectorStore is the fixed-dimension embedding sub-store (§4.3).
type VectorStore interface {
	Initialize(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, entry model.VectorEntry) error
	UpsertBatch(ctx context.Context, entries []model.VectorEntry) error
	Get(ctx context.Context, projectID, id string) (*model.VectorEntry, error)
	Query(ctx context.Context, vector []float32, k int, filter model.VectorFilter) ([]model.ScoredVector, error)
	Delete(ctx context.Context, projectID, id string) (bool, error)
	DeleteBatch(ctx context.Context, projectID string, ids []string) (int, error)
	DeleteEntityEmbeddings(ctx context.Context, projectID string, entityNames []string) (int, error)
	GetChunkIDsByDocumentID(ctx context.Context, projectID, documentID string) ([]string, error)
	HasVectors(ctx context.Context, documentID string) (bool, error)
	Size(ctx context.Context) (int, error)
}

// RelQueryOpt customizes GetRelationsForEntity.
type RelQueryOpt func(*RelQueryOpts)

// RelQueryOpts is the resolved option set for relation queries.
type RelQueryOpts struct {
	Incoming bool
	Outgoing bool
}

// WithIncoming includes inbound edges.
func WithIncoming() RelQueryOpt { return func(o *RelQueryOpts) { o.Incoming = true } }

// WithOutgoing includes outbound edges.
func WithOutgoing() RelQueryOpt { return func(o *RelQueryOpts) { o.Outgoing = true } }

// ApplyRelQueryOpts resolves a RelQueryOpt list, defaulting to outgoing-only.
func ApplyRelQueryOpts(opts []RelQueryOpt) RelQueryOpts {
	var o RelQueryOpts
	for _, opt := range opts {
		opt(&o)
	}
	if !o.Incoming && !o.Outgoing {
		o.Outgoing = true
	}
	return o
}

// GraphStore is the per-project labeled property graph sub-store (§4.4).
type GraphStore interface {
	CreateProjectGraph(ctx context.Context, projectID string) error
	GraphExists(ctx context.Context, projectID string) (bool, error)
	DeleteProjectGraph(ctx context.Context, projectID string) error

	UpsertEntity(ctx context.Context, entity model.Entity) error
	UpsertEntities(ctx context.Context, entities []model.Entity) error
	GetEntity(ctx context.Context, projectID, name string) (*model.Entity, error)
	GetEntities(ctx context.Context, projectID string, names []string) ([]model.Entity, error)
	GetEntitiesMapBatch(ctx context.Context, projectID string, names []string) (map[string]model.Entity, error)
	GetAllEntities(ctx context.Context, projectID string) ([]model.Entity, error)
	DeleteEntity(ctx context.Context, projectID, name string) error
	DeleteEntities(ctx context.Context, projectID string, names []string) error

	UpsertRelation(ctx context.Context, relation model.Relation) error
	UpsertRelations(ctx context.Context, relations []model.Relation) error
	GetRelation(ctx context.Context, projectID, src, tgt string) (*model.Relation, error)
	GetRelationsForEntity(ctx context.Context, projectID, name string, opts ...RelQueryOpt) ([]model.Relation, error)
	GetAllRelations(ctx context.Context, projectID string) ([]model.Relation, error)
	DeleteRelation(ctx context.Context, projectID, src, tgt string) error

	GetNodeDegreesBatch(ctx context.Context, projectID string, names []string) (map[string]int, error)
	Traverse(ctx context.Context, projectID, startName string, maxDepth int) (model.Subgraph, error)
	TraverseBFS(ctx context.Context, projectID, startName string, maxDepth, maxNodes int) (model.Subgraph, error)
	FindShortestPath(ctx context.Context, projectID, srcName, tgtName string) ([]model.Entity, error)
	GetStats(ctx context.Context, projectID string) (entityCount, relationCount int, err error)
}

// KVStore is the generic string→string map, isolated by key-prefix convention.
type KVStore interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
	DeleteBatch(ctx context.Context, keys []string) (int, error)
	SetBatch(ctx context.Context, entries map[string]string) error
	GetBatch(ctx context.Context, keys []string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int, error)
}

// ExtractionCacheStore memoizes LLM extraction output (§4.6).
type ExtractionCacheStore interface {
	Store(ctx context.Context, projectID string, cacheType model.CacheType, chunkID, contentHash, result string, tokensUsed int) error
	Get(ctx context.Context, projectID string, cacheType model.CacheType, contentHash string) (*model.ExtractionCache, error)
	GetByChunkID(ctx context.Context, projectID, chunkID string) ([]model.ExtractionCache, error)
	DeleteByProject(ctx context.Context, projectID string) (int, error)
}

// DocStatusStore tracks per-document processing state (§4.7).
type DocStatusStore interface {
	SetStatus(ctx context.Context, status model.DocumentStatus) error
	GetStatus(ctx context.Context, docID string) (*model.DocumentStatus, error)
	GetStatuses(ctx context.Context, docIDs []string) ([]model.DocumentStatus, error)
	SetStatuses(ctx context.Context, statuses []model.DocumentStatus) error
	DeleteStatuses(ctx context.Context, docIDs []string) (int, error)
	GetStatusesByProcessingStatus(ctx context.Context, kind model.ProcessingStatusKind) ([]model.DocumentStatus, error)
	GetAllStatuses(ctx context.Context) ([]model.DocumentStatus, error)
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int, error)
}

// DocumentStore manages coarse content units.
type DocumentStore interface {
	Create(ctx context.Context, doc model.Document) (*model.Document, error)
	Get(ctx context.Context, projectID, id string) (*model.Document, error)
	Delete(ctx context.Context, projectID, id string) error
}

// Backend is a fully constructed storage engine: schema migration plus all
// sub-stores, for one configured backend (postgres or sqlite).
type Backend interface {
	Projects() ProjectStore
	Documents() DocumentStore
	Vectors() VectorStore
	Graph() GraphStore
	KV() KVStore
	ExtractionCache() ExtractionCacheStore
	DocStatus() DocStatusStore
	MigrateToLatest(ctx context.Context) error
	Close() error
}
