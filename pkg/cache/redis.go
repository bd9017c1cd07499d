package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisNamespace prefixes every key written by RedisStore.
const DefaultRedisNamespace = "httpcache"

// RedisStore stores entries in Redis as JSON documents.
//
// Keys are "<ns>:entry:<member>" where member is
// pathAndQuery NUL method NUL acceptEncoding. Every member is also kept in the
// sorted set "<ns>:index" with score 0, so a lexicographic range over the index
// finds all keys under a path prefix.
//
// Each entry expires in Redis at its SoftExpire. The overall byte budget is left
// to the server's maxmemory policy; only single entries larger than the
// capacity are refused here.
type RedisStore struct {
	redis     *redis.Client
	namespace string
	capacity  int64
	now       func() time.Time
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client, namespace string, capacityBytes int64) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if namespace == "" {
		namespace = DefaultRedisNamespace
	}
	return &RedisStore{
		redis:     redisClient,
		namespace: namespace,
		capacity:  capacityBytes,
		now:       time.Now,
	}
}

// Get retrieves an entry by key.
// Returns ErrCacheMiss if the key doesn't exist.
func (s *RedisStore) Get(ctx context.Context, key CacheKey) (*CachedEntry, error) {
	member := indexMember(key)

	data, err := s.redis.Get(ctx, s.entryKey(member)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// the entry expired in Redis; drop its index member
			_ = s.redis.ZRem(ctx, s.indexKey(), member).Err()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CachedEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}

// Set stores an entry with a Redis TTL reaching its SoftExpire.
// Entries that are already past SoftExpire are not stored.
func (s *RedisStore) Set(ctx context.Context, key CacheKey, entry CachedEntry) error {
	if entry.Bytes() > s.capacity {
		return nil
	}

	ttl := entry.TTL(s.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	member := indexMember(key)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.entryKey(member), data, ttl)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: 0, Member: member})
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes an entry.
func (s *RedisStore) Delete(ctx context.Context, key CacheKey) error {
	member := indexMember(key)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.entryKey(member))
		pipe.ZRem(ctx, s.indexKey(), member)
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// PurgePrefix removes every entry whose PathAndQuery starts with prefix.
func (s *RedisStore) PurgePrefix(ctx context.Context, prefix string) error {
	members, err := s.redis.ZRangeByLex(ctx, s.indexKey(), lexRange(prefix)).Result()
	if err != nil {
		CacheErrors.WithLabelValues("purge").Inc()
		return fmt.Errorf("redis zrangebylex: %w", err)
	}
	if len(members) == 0 {
		return nil
	}

	keys := make([]string, 0, len(members))
	remove := make([]interface{}, 0, len(members))
	for _, m := range members {
		// the range is a superset when prefix contains NUL; confirm each member
		if !strings.HasPrefix(pathOf(m), prefix) {
			continue
		}
		keys = append(keys, s.entryKey(m))
		remove = append(remove, m)
	}
	if len(keys) == 0 {
		return nil
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.indexKey(), remove...)
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("purge").Inc()
		return fmt.Errorf("redis purge: %w", err)
	}
	return nil
}

func (s *RedisStore) entryKey(member string) string {
	return s.namespace + ":entry:" + member
}

func (s *RedisStore) indexKey() string {
	return s.namespace + ":index"
}

// indexMember orders members by path first so prefix ranges are contiguous.
func indexMember(k CacheKey) string {
	return k.PathAndQuery + "\x00" + k.Method + "\x00" + k.AcceptEncoding
}

func pathOf(member string) string {
	path, _, _ := strings.Cut(member, "\x00")
	return path
}

// lexRange covers every member starting with prefix.
func lexRange(prefix string) *redis.ZRangeBy {
	if prefix == "" {
		return &redis.ZRangeBy{Min: "-", Max: "+"}
	}
	next := prefixSuccessor(prefix)
	if next == "" {
		return &redis.ZRangeBy{Min: "[" + prefix, Max: "+"}
	}
	return &redis.ZRangeBy{Min: "[" + prefix, Max: "(" + next}
}

// prefixSuccessor returns the smallest string greater than every string
// starting with prefix, or "" when prefix is all 0xff bytes.
func prefixSuccessor(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}
