package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "vendorgo:session:"

// RedisSessionStore persists sessions in Redis so a restart does not lose
// mid-onboarding progress. Per-identity locking stays in-process in the
// SessionManager; Redis only holds state.
type RedisSessionStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisSessionStore creates a session store backed by the given Redis
// address.
func NewRedisSessionStore(addr, password string, db int) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisSessionStore{
		client:  client,
		timeout: 3 * time.Second,
	}, nil
}

func (r *RedisSessionStore) key(identity string) string {
	return sessionKeyPrefix + identity
}

func (r *RedisSessionStore) Load(identity string) (*Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", identity, err)
	}
	return &session, nil
}

func (r *RedisSessionStore) Save(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.Identity, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	// Sessions have no TTL: an abandoned onboarding stays resumable.
	return r.client.Set(ctx, r.key(session.Identity), data, 0).Err()
}

func (r *RedisSessionStore) Delete(identity string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.Del(ctx, r.key(identity)).Err()
}

func (r *RedisSessionStore) Count() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var count int
	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return count, nil
}
