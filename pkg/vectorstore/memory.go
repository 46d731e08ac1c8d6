package vectorstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/soundprediction/docgraph/pkg/types"
	"github.com/soundprediction/docgraph/pkg/utils"
)

type memoryCollection struct {
	dim     int
	order   []string
	records map[string]Record
}

// MemoryStore keeps collections in process memory. Search is exhaustive cosine
// similarity; ties keep insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	aliases     map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
		aliases:     make(map[string]string),
	}
}

func (m *MemoryStore) resolve(name string) (*memoryCollection, string, error) {
	if c, ok := m.collections[name]; ok {
		return c, name, nil
	}
	if target, ok := m.aliases[name]; ok {
		if c, ok := m.collections[target]; ok {
			return c, target, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
}

func (m *MemoryStore) CreateCollection(ctx context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return types.NewVectorStoreError("create", name, fmt.Errorf("invalid dimensions %d", dimensions))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return types.NewVectorStoreError("create", name, ErrCollectionExists)
	}
	if _, ok := m.aliases[name]; ok {
		return types.NewVectorStoreError("create", name, fmt.Errorf("%w: name is an alias", ErrCollectionExists))
	}
	m.collections[name] = &memoryCollection{dim: dimensions, records: make(map[string]Record)}
	return nil
}

func (m *MemoryStore) Upsert(ctx context.Context, collection string, records []Record) error {
	if err := ctx.Err(); err != nil {
		return types.NewVectorStoreError("upsert", collection, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, _, err := m.resolve(collection)
	if err != nil {
		return types.NewVectorStoreError("upsert", collection, err)
	}
	if err := checkDimensions(records, c.dim); err != nil {
		return types.NewVectorStoreError("upsert", collection, err)
	}
	for _, r := range records {
		if _, exists := c.records[r.ID]; !exists {
			c.order = append(c.order, r.ID)
		}
		c.records[r.ID] = cloneRecord(r)
	}
	return nil
}

func (m *MemoryStore) SimilaritySearch(ctx context.Context, collection string, vector []float32, k int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, _, err := m.resolve(collection)
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

	scored := make([]utils.ScoredItem[string], 0, len(c.order))
	for _, id := range c.order {
		scored = append(scored, utils.ScoredItem[string]{
			Item:  id,
			Score: utils.CosineSimilarity(vector, c.records[id].Vector),
		})
	}
	top := utils.TopK(scored, k)
	matches := make([]Match, 0, len(top))
	for _, s := range top {
		r := cloneRecord(c.records[s.Item])
		matches = append(matches, Match{ID: r.ID, Content: r.Content, Metadata: r.Metadata, Score: s.Score})
	}
	return matches, nil
}

func (m *MemoryStore) Get(ctx context.Context, collection string, ids []string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, _, err := m.resolve(collection)
	if err != nil {
		return nil, types.NewVectorStoreError("get", collection, err)
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := c.records[id]; ok {
			out = append(out, cloneRecord(r))
		}
	}
	return out, nil
}

func (m *MemoryStore) List(ctx context.Context, collection string, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, _, err := m.resolve(collection)
	if err != nil {
		return nil, types.NewVectorStoreError("list", collection, err)
	}
	n := len(c.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, 0, n)
	for _, id := range c.order[:n] {
		out = append(out, cloneRecord(c.records[id]))
	}
	return out, nil
}

func (m *MemoryStore) Count(ctx context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, _, err := m.resolve(collection)
	if err != nil {
		return 0, types.NewVectorStoreError("count", collection, err)
	}
	return len(c.records), nil
}

func (m *MemoryStore) DropCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, target, err := m.resolve(name)
	if err != nil {
		return types.NewVectorStoreError("drop", name, err)
	}
	delete(m.collections, target)
	for alias, t := range m.aliases {
		if t == target {
			delete(m.aliases, alias)
		}
	}
	return nil
}

func (m *MemoryStore) SwapAlias(ctx context.Context, alias, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		return "", types.NewVectorStoreError("swap alias", name, fmt.Errorf("%w: %s", ErrCollectionNotFound, name))
	}
	if _, ok := m.collections[alias]; ok {
		return "", types.NewVectorStoreError("swap alias", alias, fmt.Errorf("alias %s collides with a collection", alias))
	}
	previous := m.aliases[alias]
	m.aliases[alias] = name
	return previous, nil
}

func (m *MemoryStore) ResolveAlias(ctx context.Context, alias string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	target, ok := m.aliases[alias]
	if !ok {
		return "", types.NewVectorStoreError("resolve alias", alias, fmt.Errorf("%w: %s", ErrAliasNotFound, alias))
	}
	return target, nil
}

func (m *MemoryStore) Collections(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
