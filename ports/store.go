package ports

import (
	"context"
	"time"

	"github.com/layer-3/walletauth/core"
)

// ChallengeStore keeps at most one pending challenge per identity.
// Get and Take return core.ErrNoChallenge for absent and expired entries alike.
type ChallengeStore interface {
	Set(ctx context.Context, challenge *core.Challenge, ttl time.Duration) error
	Get(ctx context.Context, identity core.Identity) (*core.Challenge, error)
	Delete(ctx context.Context, identity core.Identity) error
	// Take atomically reads and removes the challenge for identity
	Take(ctx context.Context, identity core.Identity) (*core.Challenge, error)
}

// SessionStore persists server side sessions keyed by session id.
// Load returns (nil, nil) when the session is absent or expired.
type SessionStore interface {
	Save(ctx context.Context, session *core.Session) error
	Load(ctx context.Context, sessionID string) (*core.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// RevocationStore interface for stateless token invalidation
type RevocationStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// Sweeper is implemented by stores that can purge expired records in bulk
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
