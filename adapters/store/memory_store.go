package store

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

const shardCount = 32

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiry
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type shard[V any] struct {
	mu   sync.Mutex
	data map[string]entry[V]
}

// shardedMap serializes operations per key while keys on different shards
// proceed in parallel
type shardedMap[V any] struct {
	shards [shardCount]*shard[V]
	clock  ports.Clock
}

func newShardedMap[V any](clock ports.Clock) *shardedMap[V] {
	m := &shardedMap[V]{clock: clock}
	for i := range m.shards {
		m.shards[i] = &shard[V]{data: make(map[string]entry[V])}
	}
	return m
}

func (m *shardedMap[V]) shardFor(key string) *shard[V] {
	return m.shards[xxhash.Sum64String(key)%shardCount]
}

func (m *shardedMap[V]) set(key string, value V, expiresAt time.Time) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry[V]{value: value, expiresAt: expiresAt}
}

func (m *shardedMap[V]) get(key string, remove bool) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	e, ok := s.data[key]
	if !ok {
		return zero, false
	}
	if e.expired(m.clock.Now()) {
		delete(s.data, key)
		return zero, false
	}
	if remove {
		delete(s.data, key)
	}
	return e.value, true
}

func (m *shardedMap[V]) delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (m *shardedMap[V]) sweep() int {
	now := m.clock.Now()
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, e := range s.data {
			if e.expired(now) {
				delete(s.data, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

func expiryFrom(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// MemoryChallengeStore is an in-memory implementation of ports.ChallengeStore
type MemoryChallengeStore struct {
	m *shardedMap[core.Challenge]
}

// NewMemoryChallengeStore creates a new in-memory challenge store
func NewMemoryChallengeStore(clock ports.Clock) *MemoryChallengeStore {
	return &MemoryChallengeStore{m: newShardedMap[core.Challenge](clock)}
}

// Set stores the challenge, replacing any pending one for the same identity
func (s *MemoryChallengeStore) Set(ctx context.Context, challenge *core.Challenge, ttl time.Duration) error {
	s.m.set(challenge.Identity.String(), *challenge, expiryFrom(s.m.clock.Now(), ttl))
	return nil
}

// Get returns the pending challenge for identity
func (s *MemoryChallengeStore) Get(ctx context.Context, identity core.Identity) (*core.Challenge, error) {
	c, ok := s.m.get(identity.String(), false)
	if !ok {
		return nil, core.ErrNoChallenge
	}
	return &c, nil
}

// Delete removes the pending challenge for identity
func (s *MemoryChallengeStore) Delete(ctx context.Context, identity core.Identity) error {
	s.m.delete(identity.String())
	return nil
}

// Take returns and removes the pending challenge for identity
func (s *MemoryChallengeStore) Take(ctx context.Context, identity core.Identity) (*core.Challenge, error) {
	c, ok := s.m.get(identity.String(), true)
	if !ok {
		return nil, core.ErrNoChallenge
	}
	return &c, nil
}

// Sweep drops expired challenges
func (s *MemoryChallengeStore) Sweep(ctx context.Context) (int, error) {
	return s.m.sweep(), nil
}

// MemorySessionStore is an in-memory implementation of ports.SessionStore
type MemorySessionStore struct {
	m *shardedMap[core.Session]
}

// NewMemorySessionStore creates a new in-memory session store
func NewMemorySessionStore(clock ports.Clock) *MemorySessionStore {
	return &MemorySessionStore{m: newShardedMap[core.Session](clock)}
}

// Save stores the session under its id
func (s *MemorySessionStore) Save(ctx context.Context, session *core.Session) error {
	s.m.set(session.ID, *session, session.ExpiresAt)
	return nil
}

// Load returns the session or nil when it is absent or expired
func (s *MemorySessionStore) Load(ctx context.Context, sessionID string) (*core.Session, error) {
	sess, ok := s.m.get(sessionID, false)
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

// Delete removes the session
func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.m.delete(sessionID)
	return nil
}

// Sweep drops expired sessions
func (s *MemorySessionStore) Sweep(ctx context.Context) (int, error) {
	return s.m.sweep(), nil
}

// MemoryRevocationStore is an in-memory implementation of ports.RevocationStore
type MemoryRevocationStore struct {
	m *shardedMap[struct{}]
}

// NewMemoryRevocationStore creates a new in-memory revocation store
func NewMemoryRevocationStore(clock ports.Clock) *MemoryRevocationStore {
	return &MemoryRevocationStore{m: newShardedMap[struct{}](clock)}
}

// InvalidateToken marks a token as invalidated
func (s *MemoryRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.m.set(tokenID, struct{}{}, expiryFrom(s.m.clock.Now(), expiry))
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	_, ok := s.m.get(tokenID, false)
	return ok, nil
}

// Sweep drops revocations whose tokens have expired anyway
func (s *MemoryRevocationStore) Sweep(ctx context.Context) (int, error) {
	return s.m.sweep(), nil
}
