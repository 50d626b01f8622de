package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/ragstore/internal/storage"
	"github.com/fyrsmithlabs/ragstore/internal/storage/model"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

// graphStore mirrors postgres/graph.go's semantics — project-scoped
// entity/relation upsert-merge, level-by-level BFS, unweighted shortest
// path — expressed over database/sql instead of pgx, with no recursive
// CTE: SQLite's WITH RECURSIVE exists but the storage contract's batched
// per-level query shape is reused verbatim for both backends.
type graphStore struct{ s *Store }

func (g *graphStore) CreateProjectGraph(ctx context.Context, projectID string) error {
	if projectID == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "graph.CreateProjectGraph", errors.New("project_id must not be empty"))
	}
	return nil
}

func (g *graphStore) GraphExists(ctx context.Context, projectID string) (bool, error) {
	var exists bool
	err := g.s.withRetry(ctx, "graph.GraphExists", func(ctx context.Context) error {
		return g.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			return db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)`, projectID).Scan(&exists)
		})
	})
	if err != nil {
		return false, storeerr.New(storeerr.Classify(err), "graph.GraphExists", err)
	}
	return exists, nil
}

func (g *graphStore) DeleteProjectGraph(ctx context.Context, projectID string) error {
	err := g.s.withRetry(ctx, "graph.DeleteProjectGraph", func(ctx context.Context) error {
		return g.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM graph_relations WHERE project_id = ?`, projectID); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `DELETE FROM graph_entities WHERE project_id = ?`, projectID)
			return err
		})
	})
	if err != nil {
		return storeerr.New(storeerr.Classify(err), "graph.DeleteProjectGraph", err)
	}
	return nil
}

type execQueryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getEntityTx(ctx context.Context, q execQueryRower, projectID, name string) (*model.Entity, error) {
	var e model.Entity
	var chunksJSON []byte
	var createdAt, updatedAt string
	row := q.QueryRowContext(ctx, `
		SELECT project_id, name, type, description, source_chunk_ids, created_at, updated_at
		FROM graph_entities WHERE project_id = ? AND name = ?`, projectID, name)
	if err := row.Scan(&e.ProjectID, &e.Name, &e.Type, &e.Description, &chunksJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(chunksJSON, &e.SourceChunkIDs); err != nil {
		return nil, err
	}
	e.CreatedAt, e.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
	return &e, nil
}

func (g *graphStore) UpsertEntity(ctx context.Context, e model.Entity) error {
	if e.Name == "" {
		return storeerr.New(storeerr.KindInvalidArgument, "graph.UpsertEntity", errors.New("entity name must not be empty"))
	}
	name := model.NormalizeName(e.Name)

	return g.s.withRetry(ctx, "graph.UpsertEntity", func(ctx context.Context) error {
		return g.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			existing, err := getEntityTx(ctx, tx, e.ProjectID, name)
			if err != nil {
				return err
			}
			merged := e
			merged.Name = name
			now := formatTime(merged.UpdatedAt)
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
			_, err = tx.ExecContext(ctx, `
				INSERT INTO graph_entities (project_id, name, type, description, source_chunk_ids, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (project_id, name) DO UPDATE SET
				    type             = excluded.type,
				    description      = excluded.description,
				    source_chunk_ids = excluded.source_chunk_ids,
				    updated_at       = excluded.updated_at`,
				merged.ProjectID, merged.Name, merged.Type, merged.Description, chunksJSON, now, now)
			if err != nil {
				return storeerr.New(storeerr.Classify(err), "graph.UpsertEntity", err)
			}
			return nil
		})
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

func (g *graphStore) GetEntity(ctx context.Context, projectID, name string) (*model.Entity, error) {
	normalized := model.NormalizeName(name)
	var out *model.Entity
	err := g.s.withRetry(ctx, "graph.GetEntity", func(ctx context.Context) error {
		return g.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			e, err := getEntityTx(ctx, db, projectID, normalized)
			out = e
			return err
		})
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetEntity", err)
	}
	return out, nil
}

func (g *graphStore) GetEntities(ctx context.Context, projectID string, names []string) ([]model.Entity, error) {
	if len(names) == 0 {
		return []model.Entity{}, nil
	}
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = model.NormalizeName(n)
	}
	var out []model.Entity
	err := g.s.withRetry(ctx, "graph.GetEntities", func(ctx context.Context) error {
		return g.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			q := fmt.Sprintf(`
				SELECT project_id, name, type, description, source_chunk_ids, created_at, updated_at
				FROM graph_entities WHERE project_id = ? AND name IN (%s)`, placeholders(len(normalized)))
			args := append([]any{projectID}, toAnySlice(normalized)...)
			rows, err := db.QueryContext(ctx, q, args...)
			if err != nil {
				return err
			}
			out, err = collectEntities(rows)
			return err
		})
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetEntities", err)
	}
	return out, nil
}

func (g *graphStore) GetEntitiesMapBatch(ctx context.Context, projectID string, names []string) (map[string]model.Entity, error) {
	const maxBatch = 500
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
		return g.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			rows, err := db.QueryContext(ctx, `
				SELECT project_id, name, type, description, source_chunk_ids, created_at, updated_at
				FROM graph_entities WHERE project_id = ? ORDER BY name`, projectID)
			if err != nil {
				return err
			}
			out, err = collectEntities(rows)
			return err
		})
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetAllEntities", err)
	}
	return out, nil
}

func (g *graphStore) DeleteEntity(ctx context.Context, projectID, name string) error {
	normalized := model.NormalizeName(name)
	err := g.s.withRetry(ctx, "graph.DeleteEntity", func(ctx context.Context) error {
		return g.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM graph_entities WHERE project_id = ? AND name = ?`, projectID, normalized)
			return err
		})
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

func getRelationTx(ctx context.Context, q execQueryRower, projectID, src, tgt string) (*model.Relation, error) {
	var r model.Relation
	var chunksJSON []byte
	var createdAt, updatedAt string
	row := q.QueryRowContext(ctx, `
		SELECT project_id, src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at
		FROM graph_relations WHERE project_id = ? AND src = ? AND tgt = ?`, projectID, src, tgt)
	if err := row.Scan(&r.ProjectID, &r.SrcID, &r.TgtID, &r.Description, &r.Keywords, &r.Weight, &chunksJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(chunksJSON, &r.SourceChunkIDs); err != nil {
		return nil, err
	}
	r.CreatedAt, r.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
	return &r, nil
}

func (g *graphStore) UpsertRelation(ctx context.Context, r model.Relation) error {
	src := model.NormalizeName(r.SrcID)
	tgt := model.NormalizeName(r.TgtID)
	if src == tgt {
		return storeerr.New(storeerr.KindInvalidArgument, "graph.UpsertRelation", errors.New("relation src and tgt must differ"))
	}

	return g.s.withRetry(ctx, "graph.UpsertRelation", func(ctx context.Context) error {
		return g.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			existing, err := getRelationTx(ctx, tx, r.ProjectID, src, tgt)
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
				if existing.Weight > weight {
					weight = existing.Weight
				}
			}
			chunksJSON, err := json.Marshal(merged.SourceChunkIDs)
			if err != nil {
				return err
			}
			now := formatTime(merged.UpdatedAt)
			_, err = tx.ExecContext(ctx, `
				INSERT INTO graph_relations (project_id, src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (project_id, src, tgt) DO UPDATE SET
				    description      = excluded.description,
				    keywords         = excluded.keywords,
				    weight           = excluded.weight,
				    source_chunk_ids = excluded.source_chunk_ids,
				    updated_at       = excluded.updated_at`,
				merged.ProjectID, merged.SrcID, merged.TgtID, merged.Description, merged.Keywords, weight, chunksJSON, now, now)
			if err != nil {
				return storeerr.New(storeerr.Classify(err), "graph.UpsertRelation", err)
			}
			return nil
		})
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

func (g *graphStore) GetRelation(ctx context.Context, projectID, src, tgt string) (*model.Relation, error) {
	src, tgt = model.NormalizeName(src), model.NormalizeName(tgt)
	var out *model.Relation
	err := g.s.withRetry(ctx, "graph.GetRelation", func(ctx context.Context) error {
		return g.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			r, err := getRelationTx(ctx, db, projectID, src, tgt)
			out = r
			return err
		})
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
		return g.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			var dirParts []string
			args := []any{projectID}
			if resolved.Outgoing {
				dirParts = append(dirParts, "src = ?")
				args = append(args, name)
			}
			if resolved.Incoming {
				dirParts = append(dirParts, "tgt = ?")
				args = append(args, name)
			}
			q := fmt.Sprintf(`
				SELECT project_id, src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at
				FROM graph_relations WHERE project_id = ? AND (%s) ORDER BY created_at`, joinOr(dirParts))
			rows, err := db.QueryContext(ctx, q, args...)
			if err != nil {
				return err
			}
			out, err = collectRelations(rows)
			return err
		})
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
		return g.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			rows, err := db.QueryContext(ctx, `
				SELECT project_id, src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at
				FROM graph_relations WHERE project_id = ? ORDER BY created_at`, projectID)
			if err != nil {
				return err
			}
			out, err = collectRelations(rows)
			return err
		})
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetAllRelations", err)
	}
	return out, nil
}

func (g *graphStore) DeleteRelation(ctx context.Context, projectID, src, tgt string) error {
	src, tgt = model.NormalizeName(src), model.NormalizeName(tgt)
	err := g.s.withRetry(ctx, "graph.DeleteRelation", func(ctx context.Context) error {
		return g.s.sess.withWrite(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM graph_relations WHERE project_id = ? AND src = ? AND tgt = ?`, projectID, src, tgt)
			return err
		})
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
	if len(normalized) == 0 {
		return out, nil
	}

	err := g.s.withRetry(ctx, "graph.GetNodeDegreesBatch", func(ctx context.Context) error {
		return g.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			ph := placeholders(len(normalized))
			q := fmt.Sprintf(`
				SELECT name, SUM(degree) FROM (
				    SELECT src AS name, COUNT(*) AS degree FROM graph_relations WHERE project_id = ? AND src IN (%s) GROUP BY src
				    UNION ALL
				    SELECT tgt AS name, COUNT(*) AS degree FROM graph_relations WHERE project_id = ? AND tgt IN (%s) GROUP BY tgt
				) degrees GROUP BY name`, ph, ph)
			var fullArgs []any
			fullArgs = append(fullArgs, projectID)
			fullArgs = append(fullArgs, toAnySlice(normalized)...)
			fullArgs = append(fullArgs, projectID)
			fullArgs = append(fullArgs, toAnySlice(normalized)...)
			rows, err := db.QueryContext(ctx, q, fullArgs...)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var name string
				var degree int
				if err := rows.Scan(&name, &degree); err != nil {
					return err
				}
				out[name] = degree
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.GetNodeDegreesBatch", err)
	}
	return out, nil
}

func (g *graphStore) Traverse(ctx context.Context, projectID, startName string, maxDepth int) (model.Subgraph, error) {
	return g.TraverseBFS(ctx, projectID, startName, maxDepth, 0)
}

func (g *graphStore) TraverseBFS(ctx context.Context, projectID, startName string, maxDepth, maxNodes int) (model.Subgraph, error) {
	start := model.NormalizeName(startName)
	var out model.Subgraph

	err := g.s.withRetry(ctx, "graph.TraverseBFS", func(ctx context.Context) error {
		return g.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			startEntity, err := getEntityTx(ctx, db, projectID, start)
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

				ph := placeholders(len(frontier))
				args := append([]any{projectID}, append(toAnySlice(frontier), toAnySlice(frontier)...)...)
				q := fmt.Sprintf(`
					SELECT project_id, src, tgt, description, keywords, weight, source_chunk_ids, created_at, updated_at
					FROM graph_relations WHERE project_id = ? AND (src IN (%s) OR tgt IN (%s))`, ph, ph)
				rows, err := db.QueryContext(ctx, q, args...)
				if err != nil {
					return err
				}
				rels, err := collectRelations(rows)
				if err != nil {
					return err
				}

				var nextNames []string
				for _, r := range rels {
					relSeen[[2]string{r.SrcID, r.TgtID}] = r
					for _, candidate := range []string{r.SrcID, r.TgtID} {
						if _, ok := visited[candidate]; !ok {
							nextNames = append(nextNames, candidate)
						}
					}
				}
				if len(nextNames) == 0 {
					break
				}

				newEntities, err := getEntitiesDB(ctx, db, projectID, nextNames)
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
	})
	if err != nil {
		return model.Subgraph{}, storeerr.New(storeerr.Classify(err), "graph.TraverseBFS", err)
	}
	return out, nil
}

func getEntitiesDB(ctx context.Context, db *sql.DB, projectID string, names []string) ([]model.Entity, error) {
	if len(names) == 0 {
		return []model.Entity{}, nil
	}
	q := fmt.Sprintf(`
		SELECT project_id, name, type, description, source_chunk_ids, created_at, updated_at
		FROM graph_entities WHERE project_id = ? AND name IN (%s)`, placeholders(len(names)))
	args := append([]any{projectID}, toAnySlice(names)...)
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectEntities(rows)
}

func (g *graphStore) FindShortestPath(ctx context.Context, projectID, srcName, tgtName string) ([]model.Entity, error) {
	src := model.NormalizeName(srcName)
	tgt := model.NormalizeName(tgtName)

	var out []model.Entity
	err := g.s.withRetry(ctx, "graph.FindShortestPath", func(ctx context.Context) error {
		return g.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			if src == tgt {
				e, err := getEntityTx(ctx, db, projectID, src)
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

				q := fmt.Sprintf(`SELECT src, tgt FROM graph_relations WHERE project_id = ? AND src IN (%s)`, placeholders(len(frontierNames)))
				args := append([]any{projectID}, toAnySlice(frontierNames)...)
				rows, err := db.QueryContext(ctx, q, args...)
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
						entities, err := getEntitiesDB(ctx, db, projectID, path)
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
	})
	if err != nil {
		return nil, storeerr.New(storeerr.Classify(err), "graph.FindShortestPath", err)
	}
	return out, nil
}

func (g *graphStore) GetStats(ctx context.Context, projectID string) (int, int, error) {
	var entityCount, relationCount int
	err := g.s.withRetry(ctx, "graph.GetStats", func(ctx context.Context) error {
		return g.s.sess.read(ctx, func(ctx context.Context, db *sql.DB) error {
			if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM graph_entities WHERE project_id = ?`, projectID).Scan(&entityCount); err != nil {
				return err
			}
			return db.QueryRowContext(ctx, `SELECT COUNT(*) FROM graph_relations WHERE project_id = ?`, projectID).Scan(&relationCount)
		})
	})
	if err != nil {
		return 0, 0, storeerr.New(storeerr.Classify(err), "graph.GetStats", err)
	}
	return entityCount, relationCount, nil
}

func collectEntities(rows *sql.Rows) ([]model.Entity, error) {
	defer rows.Close()
	var out []model.Entity
	for rows.Next() {
		var e model.Entity
		var chunksJSON []byte
		var createdAt, updatedAt string
		if err := rows.Scan(&e.ProjectID, &e.Name, &e.Type, &e.Description, &chunksJSON, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(chunksJSON, &e.SourceChunkIDs); err != nil {
			return nil, err
		}
		e.CreatedAt, e.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Entity{}
	}
	return out, nil
}

func collectRelations(rows *sql.Rows) ([]model.Relation, error) {
	defer rows.Close()
	var out []model.Relation
	for rows.Next() {
		var r model.Relation
		var chunksJSON []byte
		var createdAt, updatedAt string
		if err := rows.Scan(&r.ProjectID, &r.SrcID, &r.TgtID, &r.Description, &r.Keywords, &r.Weight, &chunksJSON, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(chunksJSON, &r.SourceChunkIDs); err != nil {
			return nil, err
		}
		r.CreatedAt, r.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Relation{}
	}
	return out, nil
}
