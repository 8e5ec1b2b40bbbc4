package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/redis/go-redis/v9"
)

const (
	challengePrefix  = "walletauth:challenge:"
	sessionPrefix    = "walletauth:session:"
	revocationPrefix = "walletauth:revoked:"
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", core.ErrStorageUnavailable, op, err)
}

// RedisChallengeStore is a Redis implementation of ports.ChallengeStore.
// Expiry is delegated to Redis key TTLs.
type RedisChallengeStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisChallengeStore creates a new Redis challenge store
func NewRedisChallengeStore(client redis.UniversalClient) *RedisChallengeStore {
	return &RedisChallengeStore{
		client: client,
		prefix: challengePrefix,
	}
}

func (s *RedisChallengeStore) key(identity core.Identity) string {
	return s.prefix + identity.String()
}

// Set stores the challenge with a key TTL, replacing any pending one
func (s *RedisChallengeStore) Set(ctx context.Context, challenge *core.Challenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	if err := s.client.Set(ctx, s.key(challenge.Identity), payload, ttl).Err(); err != nil {
		return storageErr("set challenge", err)
	}

	return nil
}

// Get returns the pending challenge for identity
func (s *RedisChallengeStore) Get(ctx context.Context, identity core.Identity) (*core.Challenge, error) {
	return s.decode(s.client.Get(ctx, s.key(identity)).Bytes())
}

// Take returns and removes the pending challenge with a single GETDEL
func (s *RedisChallengeStore) Take(ctx context.Context, identity core.Identity) (*core.Challenge, error) {
	return s.decode(s.client.GetDel(ctx, s.key(identity)).Bytes())
}

// Delete removes the pending challenge for identity
func (s *RedisChallengeStore) Delete(ctx context.Context, identity core.Identity) error {
	if err := s.client.Del(ctx, s.key(identity)).Err(); err != nil {
		return storageErr("delete challenge", err)
	}
	return nil
}

func (s *RedisChallengeStore) decode(payload []byte, err error) (*core.Challenge, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrNoChallenge
		}
		return nil, storageErr("get challenge", err)
	}

	var challenge core.Challenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return &challenge, nil
}

// RedisSessionStore is a Redis implementation of ports.SessionStore
type RedisSessionStore struct {
	client redis.UniversalClient
	clock  ports.Clock
	prefix string
}

// NewRedisSessionStore creates a new Redis session store
func NewRedisSessionStore(client redis.UniversalClient, clock ports.Clock) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		clock:  clock,
		prefix: sessionPrefix,
	}
}

// Save stores the session; its expiry becomes the key TTL
func (s *RedisSessionStore) Save(ctx context.Context, session *core.Session) error {
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = session.ExpiresAt.Sub(s.clock.Now())
		if ttl <= 0 {
			return nil
		}
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+session.ID, payload, ttl).Err(); err != nil {
		return storageErr("save session", err)
	}

	return nil
}

// Load returns the session or nil when it is absent
func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) (*core.Session, error) {
	payload, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, storageErr("load session", err)
	}

	var session core.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.ExpiredAt(s.clock.Now()) {
		return nil, nil
	}

	return &session, nil
}

// Delete removes the session
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.prefix+sessionID).Err(); err != nil {
		return storageErr("delete session", err)
	}
	return nil
}

// RedisRevocationStore is a Redis implementation of ports.RevocationStore
type RedisRevocationStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRevocationStore creates a new Redis revocation store
func NewRedisRevocationStore(client redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{
		client: client,
		prefix: revocationPrefix,
	}
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+tokenID, "1", expiry).Err(); err != nil {
		return storageErr("invalidate token", err)
	}
	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		return false, storageErr("check token invalidation", err)
	}
	return val > 0, nil
}
