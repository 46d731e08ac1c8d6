package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/soundprediction/docgraph/pkg/types"
	"github.com/soundprediction/docgraph/pkg/utils"
)

// Neo4jOptions configures the Neo4j backend.
type Neo4jOptions struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jStore keeps each collection as a set of labelled nodes backed by a
// native vector index. Vectors are stored as float lists.
//
// Graph layout:
//
//	(:DocgraphCollection {name, dimensions, label, index})
//	(:DocgraphAlias {name, target})
//	(:DocgraphRecord:<label> {id, vector, content, metadata})
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
}

var labelUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// NewNeo4jStore connects to Neo4j and verifies connectivity.
func NewNeo4jStore(ctx context.Context, opts Neo4jOptions) (*Neo4jStore, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("neo4j store requires a URI")
	}
	client, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, types.NewVectorStoreError("open", opts.URI, err)
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		client.Close(ctx)
		return nil, types.NewVectorStoreError("open", opts.URI, err)
	}
	database := opts.Database
	if database == "" {
		database = "neo4j"
	}
	s := &Neo4jStore{client: client, database: database}
	if err := s.createConstraints(ctx); err != nil {
		client.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func (s *Neo4jStore) createConstraints(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT docgraph_collection_name IF NOT EXISTS FOR (c:DocgraphCollection) REQUIRE c.name IS UNIQUE",
		"CREATE CONSTRAINT docgraph_alias_name IF NOT EXISTS FOR (a:DocgraphAlias) REQUIRE a.name IS UNIQUE",
	}
	for _, query := range constraints {
		if _, err := session.Run(ctx, query, nil); err != nil {
			if !strings.Contains(err.Error(), "already exists") && !strings.Contains(err.Error(), "An equivalent") {
				return types.NewVectorStoreError("create constraints", "", err)
			}
		}
	}
	return nil
}

func collectionLabel(name string) string {
	return "DocgraphC_" + labelUnsafe.ReplaceAllString(name, "_")
}

func collectionIndex(name string) string {
	return "docgraph_vec_" + labelUnsafe.ReplaceAllString(name, "_")
}

type neo4jCollection struct {
	name  string
	dim   int
	label string
	index string
}

func (s *Neo4jStore) resolve(ctx context.Context, name string) (neo4jCollection, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			OPTIONAL MATCH (direct:DocgraphCollection {name: $name})
			OPTIONAL MATCH (:DocgraphAlias {name: $name})-[:POINTS_TO]->(aliased:DocgraphCollection)
			WITH coalesce(direct, aliased) AS c
			WHERE c IS NOT NULL
			RETURN c
		`
		res, err := tx.Run(ctx, query, map[string]any{"name": name})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return neo4jCollection{}, err
	}
	records := result.([]*db.Record)
	if len(records) == 0 {
		return neo4jCollection{}, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	value, _ := records[0].Get("c")
	node, ok := value.(dbtype.Node)
	if !ok {
		return neo4jCollection{}, fmt.Errorf("unexpected collection value %T", value)
	}
	c := neo4jCollection{
		name:  fmt.Sprint(node.Props["name"]),
		label: fmt.Sprint(node.Props["label"]),
		index: fmt.Sprint(node.Props["index"]),
	}
	if dim, ok := node.Props["dimensions"].(int64); ok {
		c.dim = int(dim)
	}
	return c, nil
}

func (s *Neo4jStore) CreateCollection(ctx context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return types.NewVectorStoreError("create", name, fmt.Errorf("invalid dimensions %d", dimensions))
	}
	if _, err := s.resolve(ctx, name); err == nil {
		return types.NewVectorStoreError("create", name, ErrCollectionExists)
	}
	label := collectionLabel(name)
	index := collectionIndex(name)

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			CREATE (c:DocgraphCollection {name: $name, dimensions: $dimensions, label: $label, index: $index})
		`, map[string]any{
			"name":       name,
			"dimensions": dimensions,
			"label":      label,
			"index":      index,
		})
		return nil, err
	})
	if err != nil {
		return types.NewVectorStoreError("create", name, err)
	}

	// Schema commands cannot share a transaction with data writes.
	indexQuery := fmt.Sprintf(
		"CREATE VECTOR INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.vector) "+
			"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}",
		index, label, dimensions)
	if _, err := session.Run(ctx, indexQuery, nil); err != nil {
		return types.NewVectorStoreError("create index", name, err)
	}
	return nil
}

func toFloat64s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func (s *Neo4jStore) Upsert(ctx context.Context, collection string, records []Record) error {
	c, err := s.resolve(ctx, collection)
	if err != nil {
		return types.NewVectorStoreError("upsert", collection, err)
	}
	if err := checkDimensions(records, c.dim); err != nil {
		return types.NewVectorStoreError("upsert", collection, err)
	}
	if len(records) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(records))
	for _, r := range records {
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return types.NewVectorStoreError("upsert", collection, err)
		}
		rows = append(rows, map[string]any{
			"id":       r.ID,
			"vector":   toFloat64s(r.Vector),
			"content":  r.Content,
			"metadata": string(metadata),
		})
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
			UNWIND $rows AS row
			MERGE (n:DocgraphRecord:%s {id: row.id})
			SET n.vector = row.vector, n.content = row.content, n.metadata = row.metadata
		`, c.label)
		_, err := tx.Run(ctx, query, map[string]any{"rows": rows})
		return nil, err
	})
	return types.NewVectorStoreError("upsert", collection, err)
}

func recordFromNode(node dbtype.Node) (Record, error) {
	r := Record{}
	r.ID, _ = node.Props["id"].(string)
	r.Content, _ = node.Props["content"].(string)
	if raw, ok := node.Props["vector"].([]any); ok {
		r.Vector = make([]float32, len(raw))
		for i, x := range raw {
			f, ok := x.(float64)
			if !ok {
				return Record{}, fmt.Errorf("record %s: vector element %d is %T", r.ID, i, x)
			}
			r.Vector[i] = float32(f)
		}
	}
	if meta, ok := node.Props["metadata"].(string); ok && meta != "" && meta != "null" {
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return Record{}, fmt.Errorf("record %s: %w", r.ID, err)
		}
	}
	return r, nil
}

func (s *Neo4jStore) collectRecords(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	records := result.([]*db.Record)
	out := make([]Record, 0, len(records))
	for _, record := range records {
		value, found := record.Get("n")
		if !found {
			continue
		}
		node, ok := value.(dbtype.Node)
		if !ok {
			continue
		}
		r, err := recordFromNode(node)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// SimilaritySearch queries the native vector index and rescores the hits with
// plain cosine similarity so scores agree with the other backends.
func (s *Neo4jStore) SimilaritySearch(ctx context.Context, collection string, vector []float32, k int) ([]Match, error) {
	c, err := s.resolve(ctx, collection)
	if err != nil {
		return nil, types.NewVectorStoreError("search", collection, err)
	}
	if k <= 0 {
		return []Match{}, nil
	}
	if len(vector) != c.dim {
		return nil, types.NewVectorStoreError("search", collection,
			fmt.Errorf("%w: query has %d values, collection expects %d", ErrDimensionMismatch, len(vector), c.dim))
	}

	records, err := s.collectRecords(ctx, `
		CALL db.index.vector.queryNodes($index, $k, $vector) YIELD node AS n, score
		RETURN n ORDER BY score DESC, n.id ASC
	`, map[string]any{"index": c.index, "k": k, "vector": toFloat64s(vector)})
	if err != nil {
		return nil, types.NewVectorStoreError("search", collection, err)
	}

	scored := make([]utils.ScoredItem[Record], 0, len(records))
	for _, r := range records {
		scored = append(scored, utils.ScoredItem[Record]{Item: r, Score: utils.CosineSimilarity(vector, r.Vector)})
	}
	top := utils.TopK(scored, k)
	matches := make([]Match, 0, len(top))
	for _, hit := range top {
		matches = append(matches, Match{ID: hit.Item.ID, Content: hit.Item.Content, Metadata: hit.Item.Metadata, Score: hit.Score})
	}
	return matches, nil
}

func (s *Neo4jStore) Get(ctx context.Context, collection string, ids []string) ([]Record, error) {
	c, err := s.resolve(ctx, collection)
	if err != nil {
		return nil, types.NewVectorStoreError("get", collection, err)
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}
	found, err := s.collectRecords(ctx, fmt.Sprintf(`
		MATCH (n:%s) WHERE n.id IN $ids RETURN n
	`, c.label), map[string]any{"ids": ids})
	if err != nil {
		return nil, types.NewVectorStoreError("get", collection, err)
	}
	byID := make(map[string]Record, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Neo4jStore) List(ctx context.Context, collection string, limit int) ([]Record, error) {
	c, err := s.resolve(ctx, collection)
	if err != nil {
		return nil, types.NewVectorStoreError("list", collection, err)
	}
	query := fmt.Sprintf("MATCH (n:%s) RETURN n ORDER BY n.id", c.label)
	params := map[string]any{}
	if limit > 0 {
		query += " LIMIT $limit"
		params["limit"] = limit
	}
	records, err := s.collectRecords(ctx, query, params)
	if err != nil {
		return nil, types.NewVectorStoreError("list", collection, err)
	}
	return records, nil
}

func (s *Neo4jStore) Count(ctx context.Context, collection string) (int, error) {
	c, err := s.resolve(ctx, collection)
	if err != nil {
		return 0, types.NewVectorStoreError("count", collection, err)
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS count", c.label), nil)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		count, _ := record.Get("count")
		return count, nil
	})
	if err != nil {
		return 0, types.NewVectorStoreError("count", collection, err)
	}
	count, _ := result.(int64)
	return int(count), nil
}

func (s *Neo4jStore) DropCollection(ctx context.Context, name string) error {
	c, err := s.resolve(ctx, name)
	if err != nil {
		return types.NewVectorStoreError("drop", name, err)
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	if _, err := session.Run(ctx, fmt.Sprintf("DROP INDEX %s IF EXISTS", c.index), nil); err != nil {
		return types.NewVectorStoreError("drop index", name, err)
	}
	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", c.label), nil); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx, `
			MATCH (c:DocgraphCollection {name: $name})
			OPTIONAL MATCH (a:DocgraphAlias)-[:POINTS_TO]->(c)
			DETACH DELETE a, c
		`, map[string]any{"name": c.name})
		return nil, err
	})
	return types.NewVectorStoreError("drop", name, err)
}

func (s *Neo4jStore) SwapAlias(ctx context.Context, alias, name string) (string, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (target:DocgraphCollection {name: $name})
			OPTIONAL MATCH (clash:DocgraphCollection {name: $alias})
			RETURN clash IS NOT NULL AS clash
		`, map[string]any{"name": name, "alias": alias})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		if clash, _ := records[0].Get("clash"); clash == true {
			return nil, fmt.Errorf("alias %s collides with a collection", alias)
		}

		res, err = tx.Run(ctx, `
			MERGE (a:DocgraphAlias {name: $alias})
			WITH a
			OPTIONAL MATCH (a)-[old:POINTS_TO]->(prev:DocgraphCollection)
			WITH a, old, prev.name AS previous
			DELETE old
			WITH a, previous
			MATCH (target:DocgraphCollection {name: $name})
			MERGE (a)-[:POINTS_TO]->(target)
			SET a.target = $name
			RETURN previous
		`, map[string]any{"alias": alias, "name": name})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		previous, _ := record.Get("previous")
		return previous, nil
	})
	if err != nil {
		return "", types.NewVectorStoreError("swap alias", alias, err)
	}
	previous, _ := result.(string)
	return previous, nil
}

func (s *Neo4jStore) ResolveAlias(ctx context.Context, alias string) (string, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (:DocgraphAlias {name: $alias})-[:POINTS_TO]->(c:DocgraphCollection)
			RETURN c.name AS name
		`, map[string]any{"alias": alias})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return "", types.NewVectorStoreError("resolve alias", alias, err)
	}
	records := result.([]*db.Record)
	if len(records) == 0 {
		return "", types.NewVectorStoreError("resolve alias", alias, fmt.Errorf("%w: %s", ErrAliasNotFound, alias))
	}
	name, _ := records[0].Get("name")
	return fmt.Sprint(name), nil
}

func (s *Neo4jStore) Collections(ctx context.Context) ([]string, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (c:DocgraphCollection) RETURN c.name AS name ORDER BY name", nil)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, types.NewVectorStoreError("collections", "", err)
	}
	records := result.([]*db.Record)
	names := make([]string, 0, len(records))
	for _, record := range records {
		name, _ := record.Get("name")
		names = append(names, fmt.Sprint(name))
	}
	return names, nil
}

func (s *Neo4jStore) Close() error {
	return s.client.Close(context.Background())
}
