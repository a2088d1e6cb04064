// internal/demo/redis.go
package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore keeps items in Redis: one JSON value per item plus a sorted
// set of IDs.
type RedisStore struct {
	client *backend.Client
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix. Defaults to "steely:item:".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore connects to the server at addr.
func NewRedisStore(addr string, opts ...RedisOption) *RedisStore {
	return NewRedisStoreFromClient(backend.NewClient(&backend.Options{Addr: addr}), opts...)
}

// NewRedisStoreFromClient uses an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "steely:item:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) indexKey() string { return s.prefix + "index" }

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (Item, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Item{}, fmt.Errorf("get item: %w", err)
	}
	var it Item
	if err := json.Unmarshal(val, &it); err != nil {
		return Item{}, fmt.Errorf("decode item %s: %w", id, err)
	}
	return it, nil
}

// Put stores item, assigning an ID when it has none.
func (s *RedisStore) Put(ctx context.Context, item Item) (Item, error) {
	item, err := normalize(item)
	if err != nil {
		return Item{}, err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return Item{}, fmt.Errorf("encode item: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(item.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: 0, Member: item.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return Item{}, fmt.Errorf("save item: %w", err)
	}
	return item, nil
}

// List returns every item ordered by ID.
func (s *RedisStore) List(ctx context.Context, _ struct{}) ([]Item, error) {
	// Equal scores order members lexicographically.
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		it, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
