package ports

import (
	"context"
	"time"

	"github.com/layer-3/walletauth/core"
)

// Clock is the time source used for every TTL calculation
type Clock interface {
	Now() time.Time
}

// SignatureVerifier recovers the identity that produced signature over message
type SignatureVerifier interface {
	RecoverIdentity(message string, signature []byte) (core.Identity, error)
}

// SessionManager owns the session lifecycle.
// ResolveSession returns (nil, nil) for absent, expired or tampered sessions;
// only infrastructure faults are reported as errors.
type SessionManager interface {
	CreateSession(ctx context.Context, identity core.Identity, profile core.Profile) (*core.Session, error)
	ResolveSession(ctx context.Context, sessionID string) (*core.Session, error)
	DestroySession(ctx context.Context, sessionID string) error
}
