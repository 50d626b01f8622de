package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fyrsmithlabs/ragstore/internal/storage"
	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

// graphStore implements storage.GraphStore against graph_entities and
// graph_relations. Grounded on
// MrWong99-glyphoxa/pkg/memory/postgres/knowledge_graph.go, generalized with
// a project_id predicate on every query (glyphoxa's memory package has no
// tenant scoping) and a Go-side level-by-level BFS loop in place of
// knowledge_graph.go's single recursive CTE, per the storage contract's
// explicit batched-per-level traversal algorithm.
type graphStore struct{ s *Store }

// CreateProjectGraph is idempotent: the graph namespace is simply "rows
// scoped to project_id" — no separate table to create.
func (g *graphStore) CreateProjectGraph(ctx context.Context, projectID string) error {
	if _, err := uuidOrErr(projectID, "graph.CreateProjectGraph"); err != nil {
		return err
	}
	return nil
}

func (g *graphStore) GraphExists(ctx context.Context, projectID string) (bool, error) {
	var exists bool
	err := g.s.withRetry(ctx, "graph.GraphExists", func(ctx context.Context) error {
		return g.s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`, projectID).Scan(&exists)
	})
	if err != nil {
		return false, storeerr.New(storeerr.Classify(err), "graph.GraphExists", err)
	}
	return exists, nil
}

func (g *graphStore) DeleteProjectGraph(ctx context.Context, projectID string) error {
	err := g.s.withRetry(ctx, "graph.DeleteProjectGraph", func(ctx context.Context) error {
		if _, err := g.s.pool.Exec(ctx, `DELETE FROM graph_relations WHERE project_id = $1`, projectID); err != nil {
			return err
		}
		_, err := g.s.pool.Exec(ctx, `DELETE FROM graph_entities WHERE project_id = $1`, projectID)
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "graph.DeleteProjectGraph", err)
	}
	return nil
}

func (g *graphStore) UpsertEntity(ctx context.Context, e model.Entity) error {
	if e.Name == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "graph.UpsertEntity", errors.New("entity name must not be empty"))
	}
	name := model.NormalizeName(e.Name)

	return g.s.withRetry(ctx, "graph.UpsertEntity", func(ctx context.Context) error {
		// Merge source_chunk_ids and preserve the most recent non-empty
		// description, per the upsert-merge invariant (§3, §4.4).
		existing, err := g.getEntityTx(ctx, g.s.pool, e.ProjectID, name)
		if err != nil {
			return err
		}
		merged := e
		merged.Name = name
		if existing != nil {
			merged.SourceChunkIDs = model.MergeSourceChunkIDs(existing.SourceChunkIDs, e.SourceChunkIDs)
			if merged.Description == "" {
				merged.Description = existing.Description
			}
		}
		chunksJSON, err := json.Marshal(merged.SourceChunkIDs)
		if err != nil {
			return err
		}

		const q = `
			INSERT INTO graph_entities (project_id, name, type, description, source_chunk_ids, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (project_id, name) DO UPDATE SET
			    type             = EXCLUDED.type,
			    description      = EXCLUDED.description,
			    source_chunk_ids = EXCLUDED.source_chunk_ids,
			    updated_at       = now()`
		_, err = g.s.pool.Exec(ctx, q, merged.ProjectID, merged.Name, merged.Type, merged.Description, chunksJSON)
		if err != nil {
			return storeerr.New(storeerr.Classify(err), "graph.UpsertEntity", err)
		}
		return nil
	})
}

func (g *graphStore) UpsertEntities(ctx context.Context, entities []model.Entity) error {
	for _, e := range entities {
		if err := g.UpsertEntity(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// getEntityTx reads an entity using the given querier (pool or a single
// connection), without retry wrapping — used internally by UpsertEntity's
// merge logic and GetEntity.
func (g *graphStore) getEntityTx(ctx context.Context, q querier, projectID, name string) (*model.Entity, error) {
	var e model.Entity
	var chunksJSON []byte
	row := q.QueryRow(ctx, `
		SELECT project_id, name, type, description, source_chunk_ids, created_at, updated_at
		FROM graph_entities WHERE project_id = $1 AND name = $2`, projectID, name)
	if err := row.Scan(&e.ProjectID, &e.Name, &e.Type, &e.Description, &chunksJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(chunksJSON, &e.SourceChunkIDs); err != nil {
		return nil, err
	}
	return &e, nil
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

func (g *graphStore) GetEntity(ctx context.Context, projectID, name string) (*model.Entity, error) {
	normalized := model.NormalizeName(name)
	var out *model.Entity
	err := g.s.withRetry(ctx, "graph.GetEntity", func(ctx context.Context) error {
		e, err := g.getEntityTx(ctx, g.s.pool, projectID, normalized)
		out = e
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetEntity", err)
	}
	return out, nil
}

func (g *graphStore) GetEntities(ctx context.Context, projectID string, names []string) ([]model.Entity, error) {
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = model.NormalizeName(n)
	}
	var out []model.Entity
	err := g.s.withRetry(ctx, "graph.GetEntities", func(ctx context.Context) error {
		rows, err := g.s.pool.Query(ctx, `
			SELECT project_id, name, type, description, source_chunk_ids, created_at, updated_at
			FROM graph_entities WHERE project_id = $1 AND name = ANY($2)`, projectID, normalized)
		if err != nil {
			return err
		}
		out, err = collectEntities(rows)
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetEntities", err)
	}
	return out, nil
}

func (g *graphStore) GetEntitiesMapBatch(ctx context.Context, projectID string, names []string) (map[string]model.Entity, error) {
	const maxBatch = 1000
	out := make(map[string]model.Entity, len(names))
	for start := 0; start < len(names); start += maxBatch {
		end := start + maxBatch
		if end > len(names) {
			end = len(names)
		}
		entities, err := g.GetEntities(ctx, projectID, names[start:end])
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			out[e.Name] = e
		}
	}
	return out, nil
}

func (g *graphStore) GetAllEntities(ctx context.Context, projectID string) ([]model.Entity, error) {
	var out []model.Entity
	err := g.s.withRetry(ctx, "graph.GetAllEntities", func(ctx context.Context) error {
		rows, err := g.s.pool.Query(ctx, `
			SELECT project_id, name, type, description, source_chunk_ids, created_at, updated_at
			FROM graph_entities WHERE project_id = $1 ORDER BY name`, projectID)
		if err != nil {
			return err
		}
		out, err = collectEntities(rows)
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetAllEntities", err)
	}
	return out, nil
}

func (g *graphStore) DeleteEntity(ctx context.Context, projectID, name string) error {
	normalized := model.NormalizeName(name)
	err := g.s.withRetry(ctx, "graph.DeleteEntity", func(ctx context.Context) error {
		_, err := g.s.pool.Exec(ctx, `DELETE FROM graph_entities WHERE project_id = $1 AND name = $2`, projectID, normalized)
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "graph.DeleteEntity", err)
	}
	return nil
}

func (g *graphStore) DeleteEntities(ctx context.Context, projectID string, names []string) error {
	for _, n := range names {
		if err := g.DeleteEntity(ctx, projectID, n); err != nil {
			return err
		}
	}
	return nil
}

func (g *graphStore) UpsertRelation(ctx context.Context, r model.Relation) error {
	src := model.NormalizeName(r.SrcID)
	tgt := model.NormalizeName(r.TgtID)
	if src == tgt {
		return storeerr.New(storeerr.KindInvalidArgument, "graph.UpsertRelation", errors.New("relation src and tgt must differ"))
	}

	return g.s.withRetry(ctx, "graph.UpsertRelation", func(ctx context.Context) error {
		existing, err := g.getRelationTx(ctx, g.s.pool, r.ProjectID, src, tgt)
		if err != nil {
			return err
		}
		merged := r
		merged.SrcID, merged.TgtID = src, tgt
		weight := r.Weight
		if existing != nil {
			merged.SourceChunkIDs = model.MergeSourceChunkIDs(existing.SourceChunkIDs, r.SourceChunkIDs)
			if merged.Description == "" {
				merged.Description = existing.Description
			}
			if merged.Keywords == "" {
				merged.Keywords = existing.Keywords
			}
			// Open question resolved: relation weight merges by max.
			if existing.Weight > weight {
				weight = existing.Weight
			}
		}
		chunksJSON, err := json.Marshal(merged.SourceChunkIDs)
		if err != nil {
			return err
		}

		const q = `
			INSERT INTO graph_relations (project_id, src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (project_id, src, tgt) DO UPDATE SET
			    description      = EXCLUDED.description,
			    keywords         = EXCLUDED.keywords,
			    weight           = EXCLUDED.weight,
			    source_chunk_ids = EXCLUDED.source_chunk_ids,
			    updated_at       = now()`
		_, err = g.s.pool.Exec(ctx, q, merged.ProjectID, merged.SrcID, merged.TgtID, merged.Description,
			merged.Keywords, weight, chunksJSON)
		if err != nil {
			return storeerr.New(storeerr.Classify(err), "graph.UpsertRelation", err)
		}
		return nil
	})
}

func (g *graphStore) UpsertRelations(ctx context.Context, relations []model.Relation) error {
	for _, r := range relations {
		if err := g.UpsertRelation(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (g *graphStore) getRelationTx(ctx context.Context, q querier, projectID, src, tgt string) (*model.Relation, error) {
	var r model.Relation
	var chunksJSON []byte
	row := q.QueryRow(ctx, `
		SELECT project_id, src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at
		FROM graph_relations WHERE project_id = $1 AND src = $2 AND tgt = $3`, projectID, src, tgt)
	if err := row.Scan(&r.ProjectID, &r.SrcID, &r.TgtID, &r.Description, &r.Keywords, &r.Weight, &chunksJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(chunksJSON, &r.SourceChunkIDs); err != nil {
		return nil, err
	}
	return &r, nil
}

func (g *graphStore) GetRelation(ctx context.Context, projectID, src, tgt string) (*model.Relation, error) {
	src, tgt = model.NormalizeName(src), model.NormalizeName(tgt)
	var out *model.Relation
	err := g.s.withRetry(ctx, "graph.GetRelation", func(ctx context.Context) error {
		r, err := g.getRelationTx(ctx, g.s.pool, projectID, src, tgt)
		out = r
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetRelation", err)
	}
	return out, nil
}

func (g *graphStore) GetRelationsForEntity(ctx context.Context, projectID, name string, opts ...storage.RelQueryOpt) ([]model.Relation, error) {
	name = model.NormalizeName(name)
	resolved := storage.ApplyRelQueryOpts(opts)

	var out []model.Relation
	err := g.s.withRetry(ctx, "graph.GetRelationsForEntity", func(ctx context.Context) error {
		var dirParts []string
		args := []any{projectID}
		if resolved.Outgoing {
			args = append(args, name)
			dirParts = append(dirParts, fmt.Sprintf("src = $%d", len(args)))
		}
		if resolved.Incoming {
			args = append(args, name)
			dirParts = append(dirParts, fmt.Sprintf("tgt = $%d", len(args)))
		}
		q := fmt.Sprintf(`
			SELECT project_id, src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at
			FROM graph_relations
			WHERE project_id = $1 AND (%s)
			ORDER BY created_at`, joinOr(dirParts))

		rows, err := g.s.pool.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		out, err = collectRelations(rows)
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetRelationsForEntity", err)
	}
	return out, nil
}

func joinOr(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " OR "
		}
		out += p
	}
	return out
}

func (g *graphStore) GetAllRelations(ctx context.Context, projectID string) ([]model.Relation, error) {
	var out []model.Relation
	err := g.s.withRetry(ctx, "graph.GetAllRelations", func(ctx context.Context) error {
		rows, err := g.s.pool.Query(ctx, `
			SELECT project_id, src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at
			FROM graph_relations WHERE project_id = $1 ORDER BY created_at`, projectID)
		if err != nil {
			return err
		}
		out, err = collectRelations(rows)
		return err
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetAllRelations", err)
	}
	return out, nil
}

func (g *graphStore) DeleteRelation(ctx context.Context, projectID, src, tgt string) error {
	src, tgt = model.NormalizeName(src), model.NormalizeName(tgt)
	err := g.s.withRetry(ctx, "graph.DeleteRelation", func(ctx context.Context) error {
		_, err := g.s.pool.Exec(ctx, `DELETE FROM graph_relations WHERE project_id = $1 AND src = $2 AND tgt = $3`, projectID, src, tgt)
		return err
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "graph.DeleteRelation", err)
	}
	return nil
}

func (g *graphStore) GetNodeDegreesBatch(ctx context.Context, projectID string, names []string) (map[string]int, error) {
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = model.NormalizeName(n)
	}
	out := make(map[string]int, len(names))
	for _, n := range normalized {
		out[n] = 0
	}

	const maxBatch = 500
	err := g.s.withRetry(ctx, "graph.GetNodeDegreesBatch", func(ctx context.Context) error {
		for start := 0; start < len(normalized); start += maxBatch {
			end := start + maxBatch
			if end > len(normalized) {
				end = len(normalized)
			}
			batch := normalized[start:end]
			rows, err := g.s.pool.Query(ctx, `
				SELECT name, SUM(degree) FROM (
				    SELECT src AS name, COUNT(*) AS degree FROM graph_relations WHERE project_id = $1 AND src = ANY($2) GROUP BY src
				    UNION ALL
				    SELECT tgt AS name, COUNT(*) AS degree FROM graph_relations WHERE project_id = $1 AND tgt = ANY($2) GROUP BY tgt
				) degrees GROUP BY name`, projectID, batch)
			if err != nil {
				return err
			}
			for rows.Next() {
				var name string
				var degree int
				if err := rows.Scan(&name, &degree); err != nil {
					rows.Close()
					return err
				}
				out[name] = degree
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetNodeDegreesBatch", err)
	}
	return out, nil
}

func (g *graphStore) Traverse(ctx context.Context, projectID, startName string, maxDepth int) (model.Subgraph, error) {
	return g.TraverseBFS(ctx, projectID, startName, maxDepth, 0)
}

// TraverseBFS performs the level-by-level breadth-first traversal the
// storage contract mandates: one batched neighbor query per level rather
// than a single recursive query, so that maxNodes/maxDepth bounds are
// enforced in Go and cycle detection is a plain visited-set.
func (g *graphStore) TraverseBFS(ctx context.Context, projectID, startName string, maxDepth, maxNodes int) (model.Subgraph, error) {
	start := model.NormalizeName(startName)
	var out model.Subgraph

	err := g.s.withRetry(ctx, "graph.TraverseBFS", func(ctx context.Context) error {
		conn, err := g.s.pool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer conn.Release()

		startEntity, err := g.getEntityTx(ctx, conn, projectID, start)
		if err != nil {
			return err
		}
		if startEntity == nil {
			out = model.Subgraph{Entities: []model.Entity{}, Relations: []model.Relation{}}
			return nil
		}

		visited := map[string]model.Entity{start: *startEntity}
		relSeen := map[[2]string]model.Relation{}
		frontier := []string{start}

		for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
			if maxNodes > 0 && len(visited) >= maxNodes {
				break
			}

			rows, err := conn.Query(ctx, `
				SELECT project_id, src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at
				FROM graph_relations WHERE project_id = $1 AND (src = ANY($2) OR tgt = ANY($2))`, projectID, frontier)
			if err != nil {
				return err
			}
			rels, err := collectRelations(rows)
			if err != nil {
				return err
			}

			var nextNames []string
			for _, r := range rels {
				key := [2]string{r.SrcID, r.TgtID}
				relSeen[key] = r
				for _, candidate := range []string{r.SrcID, r.TgtID} {
					if _, ok := visited[candidate]; !ok {
						nextNames = append(nextNames, candidate)
					}
				}
			}
			if len(nextNames) == 0 {
				break
			}

			newEntities, err := g.GetEntities(ctx, projectID, nextNames)
			if err != nil {
				return err
			}
			var newFrontier []string
			for _, e := range newEntities {
				if _, ok := visited[e.Name]; ok {
					continue
				}
				if maxNodes > 0 && len(visited) >= maxNodes {
					break
				}
				visited[e.Name] = e
				newFrontier = append(newFrontier, e.Name)
			}
			frontier = newFrontier
		}

		out.Entities = make([]model.Entity, 0, len(visited))
		for _, e := range visited {
			out.Entities = append(out.Entities, e)
		}
		out.Relations = make([]model.Relation, 0, len(relSeen))
		for _, r := range relSeen {
			out.Relations = append(out.Relations, r)
		}
		return nil
	})
	if err != nil {
		return model.Subgraph{}, storeerr.New(storeerr.Classify(err), "graph.TraverseBFS", err)
	}
	return out, nil
}

// FindShortestPath performs an unweighted BFS shortest path using the same
// level-by-level session discipline as TraverseBFS.
func (g *graphStore) FindShortestPath(ctx context.Context, projectID, srcName, tgtName string) ([]model.Entity, error) {
	src := model.NormalizeName(srcName)
	tgt := model.NormalizeName(tgtName)

	var out []model.Entity
	err := g.s.withRetry(ctx, "graph.FindShortestPath", func(ctx context.Context) error {
		conn, err := g.s.pool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer conn.Release()

		if src == tgt {
			e, err := g.getEntityTx(ctx, conn, projectID, src)
			if err != nil {
				return err
			}
			if e == nil {
				out = []model.Entity{}
				return nil
			}
			out = []model.Entity{*e}
			return nil
		}

		type node struct {
			name string
			path []string
		}
		visited := map[string]bool{src: true}
		queue := []node{{name: src, path: []string{src}}}

		for len(queue) > 0 {
			frontierNames := make([]string, len(queue))
			byName := make(map[string]node, len(queue))
			for i, n := range queue {
				frontierNames[i] = n.name
				byName[n.name] = n
			}

			rows, err := conn.Query(ctx, `
				SELECT src, tgt FROM graph_relations WHERE project_id = $1 AND src = ANY($2)`, projectID, frontierNames)
			if err != nil {
				return err
			}
			type edge struct{ src, tgt string }
			var edges []edge
			for rows.Next() {
				var e edge
				if err := rows.Scan(&e.src, &e.tgt); err != nil {
					rows.Close()
					return err
				}
				edges = append(edges, e)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}

			var next []node
			for _, e := range edges {
				if visited[e.tgt] {
					continue
				}
				visited[e.tgt] = true
				path := append(append([]string{}, byName[e.src].path...), e.tgt)
				if e.tgt == tgt {
					entities, err := g.GetEntities(ctx, projectID, path)
					if err != nil {
						return err
					}
					byOrder := map[string]model.Entity{}
					for _, en := range entities {
						byOrder[en.Name] = en
					}
					ordered := make([]model.Entity, 0, len(path))
					for _, name := range path {
						if en, ok := byOrder[name]; ok {
							ordered = append(ordered, en)
						}
					}
					out = ordered
					return nil
				}
				next = append(next, node{name: e.tgt, path: path})
			}
			queue = next
		}

		out = []model.Entity{}
		return nil
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.FindShortestPath", err)
	}
	return out, nil
}

func (g *graphStore) GetStats(ctx context.Context, projectID string) (int, int, error) {
	var entityCount, relationCount int
	err := g.s.withRetry(ctx, "graph.GetStats", func(ctx context.Context) error {
		if err := g.s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM graph_entities WHERE project_id = $1`, projectID).Scan(&entityCount); err != nil {
			return err
		}
		return g.s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM graph_relations WHERE project_id = $1`, projectID).Scan(&relationCount)
	})
	if err != nil {
		return 0, 0, storeerr.New(storeerr.Classify(err), "graph.GetStats", err)
	}
	return entityCount, relationCount, nil
}

func collectEntities(rows pgx.Rows) ([]model.Entity, error) {
	entities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Entity, error) {
		var e model.Entity
		var chunksJSON []byte
		if err := row.Scan(&e.ProjectID, &e.Name, &e.Type, &e.Description, &chunksJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return model.Entity{}, err
		}
		if err := json.Unmarshal(chunksJSON, &e.SourceChunkIDs); err != nil {
			return model.Entity{}, err
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []model.Entity{}
	}
	return entities, nil
}

func collectRelations(rows pgx.Rows) ([]model.Relation, error) {
	rels, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Relation, error) {
		var r model.Relation
		var chunksJSON []byte
		if err := row.Scan(&r.ProjectID, &r.SrcID, &r.TgtID, &r.Description, &r.Keywords, &r.Weight, &chunksJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return model.Relation{}, err
		}
		if err := json.Unmarshal(chunksJSON, &r.SourceChunkIDs); err != nil {
			return model.Relation{}, err
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	if rels == nil {
		rels = []model.Relation{}
	}
	return rels, nil
}

func uuidOrErr(id, op string) (string, error) {
	if id == "" {
		return "", storeerr.New(storeerr.KindInvalidArgument, op, errors.New("project_id must not be empty"))
	}
	return id, nil
}
