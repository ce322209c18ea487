package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lunark-labs/drip/core"
	"github.com/lunark-labs/drip/ports"
)

// RedisSessionStore keeps session rows in Redis with a TTL matching the
// session expiry. A per-address set indexes the rows for invalidation.
type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client redis.UniversalClient) ports.SessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: "drip:session:",
	}
}

func (s *RedisSessionStore) sessionKey(id string) string {
	return s.prefix + id
}

func (s *RedisSessionStore) addressKey(address string) string {
	return s.prefix + "addr:" + address
}

func (s *RedisSessionStore) CreateSession(ctx context.Context, session *core.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired: %w", core.ErrDatabase)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(session.ID), payload, ttl)
	pipe.SAdd(ctx, s.addressKey(session.Address), session.ID)
	pipe.Expire(ctx, s.addressKey(session.Address), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) GetSession(ctx context.Context, id string) (*core.Session, error) {
	payload, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session core.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) UpdateSession(ctx context.Context, session *core.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Inactive rows keep a short grace TTL so forged-token probes keep
	// resolving to an explicit inactive row rather than a miss.
	ttl := time.Until(session.ExpiresAt)
	if !session.Active || ttl <= 0 {
		ttl = time.Hour
	}

	if err := s.client.Set(ctx, s.sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) InvalidateSessions(ctx context.Context, address string) error {
	ids, err := s.client.SMembers(ctx, s.addressKey(address)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	for _, id := range ids {
		session, err := s.GetSession(ctx, id)
		if err != nil {
			if err == core.ErrNotFound {
				continue
			}
			return err
		}
		session.Active = false
		if err := s.UpdateSession(ctx, session); err != nil {
			return err
		}
	}
	return nil
}
