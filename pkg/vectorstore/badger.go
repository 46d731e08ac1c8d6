package vectorstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/docgraph/pkg/types"
	"github.com/soundprediction/docgraph/pkg/utils"
)

// Key layout:
//
//	c/<collection>       collection metadata
//	r/<collection>/<id>  record
//	a/<alias>            alias target
const (
	collectionPrefix = "c/"
	recordPrefix     = "r/"
	aliasPrefix      = "a/"
)

// BadgerOptions configures the embedded store.
type BadgerOptions struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// BadgerStore is an embedded, persistent vector store. Similarity search scans
// the collection; records are returned in key order on equal scores.
type BadgerStore struct {
	db *badger.DB
}

type collectionMeta struct {
	Dimensions int `json:"dimensions"`
}

type storedRecord struct {
	Vector   []byte         `json:"vector"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewBadgerStore opens (or creates) a badger database.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("badger store requires a path")
		}
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	db, err := badger.Open(bopts.WithLogger(nil))
	if err != nil {
		return nil, types.NewVectorStoreError("open", opts.Path, err)
	}
	return &BadgerStore{db: db}, nil
}

func collectionKey(name string) []byte { return []byte(collectionPrefix + name) }
func aliasKey(alias string) []byte     { return []byte(aliasPrefix + alias) }
func recordsPrefix(name string) []byte { return []byte(recordPrefix + name + "/") }
func recordKey(name, id string) []byte { return []byte(recordPrefix + name + "/" + id) }

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector of %d bytes", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}

func encodeRecord(r Record) ([]byte, error) {
	return json.Marshal(storedRecord{
		Vector:   encodeVector(r.Vector),
		Content:  r.Content,
		Metadata: r.Metadata,
	})
}

func decodeRecord(id string, data []byte) (Record, error) {
	var sr storedRecord
	if err := json.Unmarshal(data, &sr); err != nil {
		return Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	vec, err := decodeVector(sr.Vector)
	if err != nil {
		return Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return Record{ID: id, Vector: vec, Content: sr.Content, Metadata: sr.Metadata}, nil
}

// resolveTxn maps a collection name or alias to the concrete collection.
func resolveTxn(txn *badger.Txn, name string) (string, collectionMeta, error) {
	var meta collectionMeta
	target := name
	item, err := txn.Get(collectionKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		aliasItem, aerr := txn.Get(aliasKey(name))
		if errors.Is(aerr, badger.ErrKeyNotFound) {
			return "", meta, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		if aerr != nil {
			return "", meta, aerr
		}
		val, verr := aliasItem.ValueCopy(nil)
		if verr != nil {
			return "", meta, verr
		}
		target = string(val)
		item, err = txn.Get(collectionKey(target))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", meta, fmt.Errorf("%w: alias %s points at missing %s", ErrCollectionNotFound, name, target)
		}
	}
	if err != nil {
		return "", meta, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	return target, meta, err
}

func (b *BadgerStore) CreateCollection(ctx context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return types.NewVectorStoreError("create", name, fmt.Errorf("invalid dimensions %d", dimensions))
	}
	if strings.Contains(name, "/") {
		return types.NewVectorStoreError("create", name, fmt.Errorf("collection names cannot contain '/'"))
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{collectionKey(name), aliasKey(name)} {
			if _, err := txn.Get(key); err == nil {
				return ErrCollectionExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		meta, err := json.Marshal(collectionMeta{Dimensions: dimensions})
		if err != nil {
			return err
		}
		return txn.Set(collectionKey(name), meta)
	})
	return types.NewVectorStoreError("create", name, err)
}

func (b *BadgerStore) Upsert(ctx context.Context, collection string, records []Record) error {
	if err := ctx.Err(); err != nil {
		return types.NewVectorStoreError("upsert", collection, err)
	}
	var target string
	err := b.db.View(func(txn *badger.Txn) error {
		name, meta, err := resolveTxn(txn, collection)
		if err != nil {
			return err
		}
		target = name
		return checkDimensions(records, meta.Dimensions)
	})
	if err != nil {
		return types.NewVectorStoreError("upsert", collection, err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, r := range records {
		data, err := encodeRecord(r)
		if err != nil {
			return types.NewVectorStoreError("upsert", collection, err)
		}
		if err := wb.Set(recordKey(target, r.ID), data); err != nil {
			return types.NewVectorStoreError("upsert", collection, err)
		}
	}
	return types.NewVectorStoreError("upsert", collection, wb.Flush())
}

// scan visits every record of a resolved collection in key order.
func (b *BadgerStore) scan(ctx context.Context, collection string, visit func(Record) bool) (collectionMeta, error) {
	var meta collectionMeta
	err := b.db.View(func(txn *badger.Txn) error {
		target, m, err := resolveTxn(txn, collection)
		if err != nil {
			return err
		}
		meta = m
		prefix := recordsPrefix(target)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id := string(bytes.TrimPrefix(item.Key(), prefix))
			var rec Record
			if err := item.Value(func(val []byte) error {
				var derr error
				rec, derr = decodeRecord(id, val)
				return derr
			}); err != nil {
				return err
			}
			if !visit(rec) {
				return nil
			}
		}
		return nil
	})
	return meta, err
}

func (b *BadgerStore) SimilaritySearch(ctx context.Context, collection string, vector []float32, k int) ([]Match, error) {
	var scored []utils.ScoredItem[Record]
	meta, err := b.scan(ctx, collection, func(r Record) bool {
		scored = append(scored, utils.ScoredItem[Record]{Item: r, Score: utils.CosineSimilarity(vector, r.Vector)})
		return true
	})
	if err != nil {
		return nil, types.NewVectorStoreError("search", collection, err)
	}
	if len(vector) != meta.Dimensions {
		return nil, types.NewVectorStoreError("search", collection,
			fmt.Errorf("%w: query has %d values, collection expects %d", ErrDimensionMismatch, len(vector), meta.Dimensions))
	}
	top := utils.TopK(scored, k)
	matches := make([]Match, 0, len(top))
	for _, s := range top {
		matches = append(matches, Match{ID: s.Item.ID, Content: s.Item.Content, Metadata: s.Item.Metadata, Score: s.Score})
	}
	return matches, nil
}

func (b *BadgerStore) Get(ctx context.Context, collection string, ids []string) ([]Record, error) {
	out := make([]Record, 0, len(ids))
	err := b.db.View(func(txn *badger.Txn) error {
		target, _, err := resolveTxn(txn, collection)
		if err != nil {
			return err
		}
		for _, id := range ids {
			item, err := txn.Get(recordKey(target, id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeRecord(id, val)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, types.NewVectorStoreError("get", collection, err)
	}
	return out, nil
}

func (b *BadgerStore) List(ctx context.Context, collection string, limit int) ([]Record, error) {
	var out []Record
	_, err := b.scan(ctx, collection, func(r Record) bool {
		out = append(out, r)
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, types.NewVectorStoreError("list", collection, err)
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

func (b *BadgerStore) Count(ctx context.Context, collection string) (int, error) {
	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		target, _, err := resolveTxn(txn, collection)
		if err != nil {
			return err
		}
		prefix := recordsPrefix(target)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, types.NewVectorStoreError("count", collection, err)
	}
	return count, nil
}

func (b *BadgerStore) DropCollection(ctx context.Context, name string) error {
	var target string
	err := b.db.Update(func(txn *badger.Txn) error {
		t, _, err := resolveTxn(txn, name)
		if err != nil {
			return err
		}
		target = t
		aliases, err := aliasesTo(txn, target)
		if err != nil {
			return err
		}
		for _, alias := range aliases {
			if err := txn.Delete(aliasKey(alias)); err != nil {
				return err
			}
		}
		return txn.Delete(collectionKey(target))
	})
	if err != nil {
		return types.NewVectorStoreError("drop", name, err)
	}
	return types.NewVectorStoreError("drop", name, b.db.DropPrefix(recordsPrefix(target)))
}

func aliasesTo(txn *badger.Txn, target string) ([]string, error) {
	var aliases []string
	prefix := []byte(aliasPrefix)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		if string(val) == target {
			aliases = append(aliases, string(bytes.TrimPrefix(item.KeyCopy(nil), prefix)))
		}
	}
	return aliases, nil
}

func (b *BadgerStore) SwapAlias(ctx context.Context, alias, name string) (string, error) {
	var previous string
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(collectionKey(name)); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		} else if err != nil {
			return err
		}
		if _, err := txn.Get(collectionKey(alias)); err == nil {
			return fmt.Errorf("alias %s collides with a collection", alias)
		}
		item, err := txn.Get(aliasKey(alias))
		switch {
		case err == nil:
			val, verr := item.ValueCopy(nil)
			if verr != nil {
				return verr
			}
			previous = string(val)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(aliasKey(alias), []byte(name))
	})
	if err != nil {
		return "", types.NewVectorStoreError("swap alias", alias, err)
	}
	return previous, nil
}

func (b *BadgerStore) ResolveAlias(ctx context.Context, alias string) (string, error) {
	var target string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(aliasKey(alias))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrAliasNotFound, alias)
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		target = string(val)
		return err
	})
	if err != nil {
		return "", types.NewVectorStoreError("resolve alias", alias, err)
	}
	return target, nil
}

func (b *BadgerStore) Collections(ctx context.Context) ([]string, error) {
	names := []string{}
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(collectionPrefix)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, string(bytes.TrimPrefix(it.Item().KeyCopy(nil), prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, types.NewVectorStoreError("collections", "", err)
	}
	return names, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
