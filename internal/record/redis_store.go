package record

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists records in Redis, gob-encoded under a key namespace,
// for callers whose Runtime-mode producer and Playback-mode consumer run
// on different hosts. client can be a *redis.Client or *redis.ClusterClient,
// same indirection the sibling token-bucket limiter uses.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a RedisStore keying entries as prefix+id. A ttl of
// zero means entries never expire.
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Store gob-encodes rec and writes it to Redis under id's key.
func (s *RedisStore) Store(ctx context.Context, id string, rec *Record) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("record: failed to encode record %q: %w", id, err)
	}

	if err := s.client.Set(ctx, s.key(id), buf.Bytes(), s.ttl).Err(); err != nil {
		return fmt.Errorf("record: failed to store record %q: %w", id, err)
	}
	return nil
}

// Get reads and decodes the record stored under id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("record: no record stored for id %q", id)
		}
		return nil, fmt.Errorf("record: failed to read record %q: %w", id, err)
	}

	var rec Record
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&rec); err != nil {
		return nil, fmt.Errorf("record: failed to decode record %q: %w", id, err)
	}
	return &rec, nil
}

// IsHealthy reports whether the backing Redis connection is reachable.
func (s *RedisStore) IsHealthy(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}
