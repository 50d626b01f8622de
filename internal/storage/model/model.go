// Package model defines the data types shared by every storage sub-store,
// independent of which backend persists them.
package model

import (
	"strings"
	"time"
)

// DocumentStatusKind is the lifecycle state of a Document.
type DocumentStatusKind string

const (
	DocNotProcessed DocumentStatusKind = "NOT_PROCESSED"
	DocProcessing   DocumentStatusKind = "PROCESSING"
	DocCompleted    DocumentStatusKind = "COMPLETED"
	DocFailed       DocumentStatusKind = "FAILED"
)

// ProcessingStatusKind is the lifecycle state of a DocumentStatus record.
type ProcessingStatusKind string

const (
	StatusPending    ProcessingStatusKind = "PENDING"
	StatusProcessing ProcessingStatusKind = "PROCESSING"
	StatusCompleted  ProcessingStatusKind = "COMPLETED"
	StatusFailed     ProcessingStatusKind = "FAILED"
)

// CacheType enumerates the kinds of memoized LLM extraction output.
type CacheType string

const (
	CacheEntityExtraction CacheType = "ENTITY_EXTRACTION"
	CacheGleaning         CacheType = "GLEANING"
	CacheSummarization    CacheType = "SUMMARIZATION"
	CacheKeywordExtract   CacheType = "KEYWORD_EXTRACTION"
)

// VectorKind tags what a VectorEntry's content represents.
type VectorKind string

const (
	VectorChunk    VectorKind = "chunk"
	VectorEntity   VectorKind = "entity"
	VectorRelation VectorKind = "relation"
)

// Project is the unit of tenant isolation. Every other record belongs to
// exactly one project; deleting a project cascades to all its sub-store rows.
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Document is a coarse content unit owned by a project.
type Document struct {
	ID        string
	ProjectID string
	Type      string
	Status    DocumentStatusKind
	FileName  string
	Content   []byte
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VectorEntry is one embedding row.
type VectorEntry struct {
	ID          string
	ProjectID   string
	Vector      []float32
	Kind        VectorKind
	Content     string
	DocumentID  string // optional
	ChunkIndex  *int   // optional
	CreatedAt   time.Time
}

// VectorFilter restricts a similarity query.
type VectorFilter struct {
	ProjectID string
	Kind      VectorKind // optional, empty means any
	IDs       []string   // optional restriction to this id set
}

// ScoredVector pairs a stored vector with its similarity to a query vector.
type ScoredVector struct {
	Entry VectorEntry
	Score float64
}

// Entity is a graph node, identified within a project by its normalized name.
type Entity struct {
	ProjectID      string
	Name           string // normalized: lowercase, whitespace-collapsed
	Type           string
	Description    string
	SourceChunkIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Relation is a directed graph edge between two entity names in one project.
type Relation struct {
	ProjectID      string
	SrcID          string // normalized
	TgtID          string // normalized
	Description    string
	Keywords       string
	Weight         float64
	SourceChunkIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Subgraph is the result of a BFS traversal or shortest-path query.
type Subgraph struct {
	Entities  []Entity
	Relations []Relation
}

// ExtractionCache is a memoized LLM extraction result.
type ExtractionCache struct {
	ID          string
	ProjectID   string
	Type        CacheType
	ChunkID     string // optional
	ContentHash string
	Result      string
	TokensUsed  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DocumentStatus is a per-document processing state record.
type DocumentStatus struct {
	DocID           string
	FilePath        string
	ProcessingState ProcessingStatusKind
	ChunkCount      int
	EntityCount     int
	RelationCount   int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Pending returns the initial DocumentStatus for a freshly registered document.
// Pure record construction; does not touch storage.
func Pending(docID, filePath string) DocumentStatus {
	return DocumentStatus{
		DocID:           docID,
		FilePath:        filePath,
		ProcessingState: StatusPending,
	}
}

// AsProcessing returns a copy transitioned to PROCESSING. Re-entering
// PROCESSING from PROCESSING is allowed (idempotent restart).
func (d DocumentStatus) AsProcessing() DocumentStatus {
	d.ProcessingState = StatusProcessing
	d.ErrorMessage = ""
	return d
}

// AsCompleted returns a copy transitioned to COMPLETED with final counts.
func (d DocumentStatus) AsCompleted(chunks, entities, relations int) DocumentStatus {
	d.ProcessingState = StatusCompleted
	d.ChunkCount = chunks
	d.EntityCount = entities
	d.RelationCount = relations
	d.ErrorMessage = ""
	return d
}

// AsFailed returns a copy transitioned to FAILED carrying message.
func (d DocumentStatus) AsFailed(message string) DocumentStatus {
	d.ProcessingState = StatusFailed
	d.ErrorMessage = message
	return d
}

// NormalizeName lowercases and collapses whitespace in an entity/relation
// identifier. This normalization is part of the storage contract: two names
// differing only by case or surrounding/internal whitespace runs refer to
// the same entity.
func NormalizeName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, " ")
}

// MergeSourceChunkIDs returns the set union of a and b, preserving a's
// ordering followed by any new ids from b.
func MergeSourceChunkIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range b {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
