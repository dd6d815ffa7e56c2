package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/config"
)

// Client is the hash subset of go-redis the session store needs.
type Client interface {
	HGet(ctx context.Context, key, field string) *goredis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd
}

func NewClient(cfg config.SessionConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Sessions stores each session as one hash of JSON values; every write extends its ttl.
type Sessions struct {
	client Client
	prefix string
	ttl    time.Duration
}

func NewSessions(client Client, prefix string, ttl time.Duration) *Sessions {
	return &Sessions{client: client, prefix: prefix, ttl: ttl}
}

func (s *Sessions) Session(id string) domcart.SessionStore {
	return &session{owner: s, key: s.key(id)}
}

func (s *Sessions) key(id string) string {
	if s.prefix == "" {
		return id
	}
	return s.prefix + ":" + id
}

type session struct {
	owner *Sessions
	key   string
}

func (s *session) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.owner.client.HGet(ctx, s.key, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis: session %s: get %s: %w", s.key, key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("redis: session %s: decode %s: %w", s.key, key, err)
	}
	return true, nil
}

func (s *session) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis: session %s: encode %s: %w", s.key, key, err)
	}
	if err := s.owner.client.HSet(ctx, s.key, key, raw).Err(); err != nil {
		return fmt.Errorf("redis: session %s: set %s: %w", s.key, key, err)
	}
	if s.owner.ttl > 0 {
		if err := s.owner.client.Expire(ctx, s.key, s.owner.ttl).Err(); err != nil {
			return fmt.Errorf("redis: session %s: expire: %w", s.key, err)
		}
	}
	return nil
}
