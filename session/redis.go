package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/creatorops/outreach/core"
	"github.com/redis/go-redis/v9"
)

// RedisOptions tune the Redis-backed store.
type RedisOptions struct {
	// KeyPrefix namespaces session keys; defaults to "outreach:session:".
	KeyPrefix string
	// TTL is the sliding inactivity expiry applied on every write; 0
	// disables expiry.
	TTL time.Duration
	// MaxRetries bounds optimistic-lock retries in Update.
	MaxRetries int
}

// RedisStore persists sessions as JSON documents in Redis. Update uses
// WATCH-based optimistic locking so concurrent writers on the same session
// id are serialized; expiry is a sliding TTL refreshed on every write.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	maxRetries int
}

// NewRedisStore constructs a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient, optFns ...func(o *RedisOptions)) *RedisStore {
	opts := RedisOptions{
		KeyPrefix:  "outreach:session:",
		MaxRetries: 16,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisStore{
		client:     client,
		prefix:     opts.KeyPrefix,
		ttl:        opts.TTL,
		maxRetries: opts.MaxRetries,
	}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

// Create allocates and persists a new empty session.
func (s *RedisStore) Create(ctx context.Context) (*core.Session, error) {
	sess := core.NewSession()
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns a snapshot of the session or ErrSessionNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (*core.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	return decode(data)
}

// Update applies fn under optimistic locking: the key is watched, fn runs
// against the current snapshot, and the write aborts and retries if another
// writer raced in between.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*core.Session) error) error {
	key := s.key(id)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return core.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("redis get session: %w", err)
		}
		sess, err := decode(data)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		sess.Touch()
		encoded, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < s.maxRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("redis update session %s: too many optimistic lock retries", id)
}

// Delete removes the session.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	if n == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) write(ctx context.Context, sess *core.Session) error {
	encoded, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func decode(data []byte) (*core.Session, error) {
	var sess core.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}
