// Package cache stores query results in Redis so repeated questions against
// the same index skip retrieval and the language model.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soundprediction/docgraph/pkg/types"
)

const keyPrefix = "docgraph:query:"

// Options configures the Redis connection.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string
	// TTL bounds how long an answer is served. Zero keeps entries until the
	// collection changes.
	TTL            time.Duration
	ConnectTimeout time.Duration
}

// QueryCache caches QueryResults keyed by collection and question.
type QueryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(opts Options) (*QueryCache, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &QueryCache{client: client, ttl: opts.TTL}, nil
}

// Key returns the cache key for a question asked against collection. The
// question is normalised for case and surrounding whitespace.
func Key(collection, question string, includeContext bool) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(question))))
	if includeContext {
		h.Write([]byte{1})
	}
	return keyPrefix + collection + ":" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result, or nil when there is none.
func (c *QueryCache) Get(ctx context.Context, collection, question string, includeContext bool) (*types.QueryResult, error) {
	data, err := c.client.Get(ctx, Key(collection, question, includeContext)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached query: %w", err)
	}
	var result types.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached query: %w", err)
	}
	return &result, nil
}

// Set stores result.
func (c *QueryCache) Set(ctx context.Context, collection string, includeContext bool, result *types.QueryResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode query result: %w", err)
	}
	key := Key(collection, result.Question, includeContext)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache query: %w", err)
	}
	return nil
}

// Invalidate removes every cached answer for collection.
func (c *QueryCache) Invalidate(ctx context.Context, collection string) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, keyPrefix+collection+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("failed to invalidate cache: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan cache: %w", err)
	}
	return removed, nil
}

// Close closes the Redis connection.
func (c *QueryCache) Close() error {
	return c.client.Close()
}
