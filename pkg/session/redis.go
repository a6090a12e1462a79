package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// expiryGrace keeps a Redis key alive past the session expiry so that the
// sweeper can still find it and remove its blobs.
const expiryGrace = time.Hour

// RedisStore stores sessions as JSON values with a TTL. A sorted set scored
// by expiry time indexes the sessions for Expired.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return NewRedisStoreFromClient(client, cfg.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client. prefix defaults to
// "gridcollage:".
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "gridcollage:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(sessionID string) string { return s.prefix + "session:" + sessionID }
func (s *RedisStore) indexKey() string            { return s.prefix + "sessions:expiry" }

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess, err := unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if sess.IsExpired() {
		return nil, nil
	}
	return sess, nil
}

func (s *RedisStore) Set(ctx context.Context, sess *Session) error {
	data, err := marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	var ttl time.Duration
	if !sess.ExpiresAt.IsZero() {
		ttl = time.Until(sess.ExpiresAt) + expiryGrace
		if ttl <= 0 {
			ttl = time.Second
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(sess.ID), data, ttl)
	if ttl > 0 {
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(sess.ExpiresAt.Unix()), Member: sess.ID})
	} else {
		pipe.ZRem(ctx, s.indexKey(), sess.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Expired(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}
	return ids, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
