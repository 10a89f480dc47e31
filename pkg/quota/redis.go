package quota

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the per-day counter keys.
const DefaultRedisPrefix = "placeskit:quota:"

// redisKeyTTL keeps yesterday's counter around for late readers.
const redisKeyTTL = 48 * time.Hour

// RedisOptions configures [NewRedisStore].
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // defaults to DefaultRedisPrefix
}

// RedisStore keeps one counter per day in Redis. INCR is atomic, so any
// number of processes on any number of hosts can share one quota.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return NewRedisStoreFromClient(client, opts.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client. The store takes
// ownership and closes the client in Close.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(day string) string { return s.prefix + day }

// Increment atomically adds one to day's counter and refreshes its expiry.
func (s *RedisStore) Increment(ctx context.Context, day string) (int, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, s.key(day))
		p.Expire(ctx, s.key(day), redisKeyTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", s.key(day), err)
	}
	return int(incr.Val()), nil
}

// Count returns day's counter, or 0 if the key does not exist.
func (s *RedisStore) Count(ctx context.Context, day string) (int, error) {
	n, err := s.client.Get(ctx, s.key(day)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", s.key(day), err)
	}
	return n, nil
}

// History returns the days still held in Redis, oldest first. Counters
// expire after two days, so this is a short window, not a full log.
func (s *RedisStore) History(ctx context.Context) ([]Entry, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s*: %w", s.prefix, err)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		v, err := s.client.Get(ctx, k).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", k, err)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Date: strings.TrimPrefix(k, s.prefix), Count: n})
	}
	return entries, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
