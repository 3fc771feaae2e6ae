// Package redis provides a token store shared between processes through Redis.
package redis

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaborage/authclient/tokenstore"
)

const (
	fieldToken    = "token"
	fieldStoredAt = "stored_at"
)

// Store implements tokenstore.Store on a Redis hash.
type Store struct {
	client *redis.Client
	config *Config
	now    func() time.Time
	closed atomic.Bool
}

// NewStore validates cfg, connects and verifies the connection with PING.
func NewStore(cfg *Config, opts ...tokenstore.Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.Database,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, tokenstore.NewOperationError("ping", cfg.Addr, err)
	}

	return &Store{
		client: client,
		config: cfg,
		now:    tokenstore.NowFunc(opts...),
	}, nil
}

// Get returns the stored token or tokenstore.ErrNotFound.
func (s *Store) Get(ctx context.Context) (string, error) {
	if s.closed.Load() {
		return "", tokenstore.ErrClosed
	}

	token, err := s.client.HGet(ctx, s.config.Key, fieldToken).Result()
	if errors.Is(err, redis.Nil) || (err == nil && token == "") {
		return "", tokenstore.ErrNotFound
	}
	if err != nil {
		return "", tokenstore.NewOperationError("get", s.config.Key, err)
	}
	return token, nil
}

// Set writes the token and its stored-at stamp in one transaction.
func (s *Store) Set(ctx context.Context, token string) error {
	if s.closed.Load() {
		return tokenstore.ErrClosed
	}
	if token == "" {
		return tokenstore.ErrEmptyToken
	}

	storedAt := s.now().UnixNano()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.config.Key, fieldToken, token, fieldStoredAt, storedAt)
		if s.config.TTL > 0 {
			pipe.Expire(ctx, s.config.Key, s.config.TTL)
		}
		return nil
	})
	if err != nil {
		return tokenstore.NewOperationError("set", s.config.Key, err)
	}
	return nil
}

// Remove deletes the session hash.
func (s *Store) Remove(ctx context.Context) error {
	if s.closed.Load() {
		return tokenstore.ErrClosed
	}

	if err := s.client.Del(ctx, s.config.Key).Err(); err != nil {
		return tokenstore.NewOperationError("remove", s.config.Key, err)
	}
	return nil
}

// Age reports how old the stored token is.
func (s *Store) Age(ctx context.Context) (time.Duration, error) {
	if s.closed.Load() {
		return 0, tokenstore.ErrClosed
	}

	values, err := s.client.HMGet(ctx, s.config.Key, fieldToken, fieldStoredAt).Result()
	if err != nil {
		return 0, tokenstore.NewOperationError("age", s.config.Key, err)
	}

	token, _ := values[0].(string)
	if token == "" {
		return 0, tokenstore.ErrNotFound
	}

	var storedAt time.Time
	if raw, ok := values[1].(string); ok {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, tokenstore.NewOperationError("age", s.config.Key, err)
		}
		storedAt = time.Unix(0, nanos)
	}

	return tokenstore.AgeOf(token, storedAt, s.now()), nil
}

// Close releases the connection pool. A second Close returns tokenstore.ErrClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return tokenstore.ErrClosed
	}
	return s.client.Close()
}
