package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultSessionTTL applies to stateless tokens when none is configured
	DefaultSessionTTL = 24 * time.Hour

	// SessionIDLength is the number of random bytes in a stateful session id
	SessionIDLength = 32
)

// StoreSessionManager keeps sessions server side and hands the client an
// opaque random id
type StoreSessionManager struct {
	store ports.SessionStore
	clock ports.Clock
	ttl   time.Duration
}

// NewStoreSessionManager creates a stateful session manager. A zero ttl
// creates sessions that live until logout.
func NewStoreSessionManager(store ports.SessionStore, clock ports.Clock, ttl time.Duration) *StoreSessionManager {
	return &StoreSessionManager{store: store, clock: clock, ttl: ttl}
}

// CreateSession stores a new session for identity
func (m *StoreSessionManager) CreateSession(ctx context.Context, identity core.Identity, profile core.Profile) (*core.Session, error) {
	id, err := generateToken(SessionIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := m.clock.Now()
	session := &core.Session{
		ID:       id,
		Identity: identity,
		Profile:  profile,
		IssuedAt: now,
	}
	if m.ttl > 0 {
		session.ExpiresAt = now.Add(m.ttl)
	}

	if err := m.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// ResolveSession loads the session behind id
func (m *StoreSessionManager) ResolveSession(ctx context.Context, sessionID string) (*core.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// DestroySession removes the session. Unknown ids are ignored.
func (m *StoreSessionManager) DestroySession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// TokenSessionManager hands out signed tokens carrying the session itself.
// Logout is enforced through a revocation list keyed by token id.
type TokenSessionManager struct {
	issuer      ports.TokenIssuer
	revocations ports.RevocationStore
	clock       ports.Clock
	log         logrus.FieldLogger
	ttl         time.Duration
}

// NewTokenSessionManager creates a stateless session manager. Tokens always
// expire so that revocation records can be dropped eventually.
func NewTokenSessionManager(
	issuer ports.TokenIssuer,
	revocations ports.RevocationStore,
	clock ports.Clock,
	log logrus.FieldLogger,
	ttl time.Duration,
) *TokenSessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenSessionManager{
		issuer:      issuer,
		revocations: revocations,
		clock:       clock,
		log:         log.WithField("component", "session"),
		ttl:         ttl,
	}
}

// CreateSession issues a token for identity. The returned session ID is the
// token itself.
func (m *TokenSessionManager) CreateSession(_ context.Context, identity core.Identity, profile core.Profile) (*core.Session, error) {
	now := m.clock.Now()
	session := &core.Session{
		Identity:  identity,
		Profile:   profile,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	token, err := m.issuer.IssueToken(session, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	session.ID = token
	return session, nil
}

// ResolveSession validates the token and checks it was not revoked
func (m *TokenSessionManager) ResolveSession(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		return nil, nil
	}

	session, tokenID, err := m.issuer.ParseToken(token)
	if err != nil {
		m.log.WithError(err).Debug("rejected session token")
		return nil, nil
	}

	revoked, err := m.revocations.IsTokenInvalidated(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, nil
	}
	return session, nil
}

// DestroySession revokes the token until it would have expired anyway
func (m *TokenSessionManager) DestroySession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, tokenID, err := m.issuer.ParseToken(token)
	if err != nil {
		// expired or forged tokens are already unusable
		return nil
	}

	remaining := session.ExpiresAt.Sub(m.clock.Now())
	if remaining <= 0 {
		return nil
	}

	if err := m.revocations.InvalidateToken(ctx, tokenID, remaining); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
