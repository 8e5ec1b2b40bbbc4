package service

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/metrics"
	"github.com/layer-3/walletauth/ports"
	"github.com/sirupsen/logrus"
)

// AuthService handles authentication business logic
type AuthService struct {
	challenges *ChallengeService
	sessions   ports.SessionManager
	eventPub   ports.EventPublisher
	log        logrus.FieldLogger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	challenges *ChallengeService,
	sessions ports.SessionManager,
	eventPub ports.EventPublisher,
	log logrus.FieldLogger,
) *AuthService {
	return &AuthService{
		challenges: challenges,
		sessions:   sessions,
		eventPub:   eventPub,
		log:        log.WithField("component", "auth"),
	}
}

// IssueChallenge returns the message the wallet behind identity has to sign
func (s *AuthService) IssueChallenge(ctx context.Context, identity string) (string, error) {
	challenge, err := s.challenges.IssueChallenge(ctx, identity)
	metrics.ChallengesIssued.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return "", err
	}
	return challenge.Message, nil
}

// Login verifies the signed challenge and opens a session for identity
func (s *AuthService) Login(ctx context.Context, identity string, signature []byte, profile core.Profile) (*core.Session, error) {
	err := s.challenges.Verify(ctx, identity, signature)
	metrics.Verifications.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	// Verify already normalized it successfully
	id, _ := core.NormalizeIdentity(identity)

	session, err := s.sessions.CreateSession(ctx, id, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	metrics.SessionsCreated.Inc()

	s.log.WithField("identity", id).Info("login")
	if err := s.eventPub.PublishLogin(ctx, id, SessionRef(session.ID)); err != nil {
		s.log.WithError(err).Warn("failed to publish login event")
	}

	return session, nil
}

// CurrentSession returns the session behind sessionID, or nil when the
// caller is not authenticated
func (s *AuthService) CurrentSession(ctx context.Context, sessionID string) (*core.Session, error) {
	return s.sessions.ResolveSession(ctx, sessionID)
}

// CurrentIdentity returns the identity behind sessionID, or "" when the
// caller is not authenticated
func (s *AuthService) CurrentIdentity(ctx context.Context, sessionID string) (core.Identity, error) {
	session, err := s.sessions.ResolveSession(ctx, sessionID)
	if err != nil || session == nil {
		return "", err
	}
	return session.Identity, nil
}

// Logout ends the session. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	session, err := s.sessions.ResolveSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := s.sessions.DestroySession(ctx, sessionID); err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	metrics.SessionsDestroyed.Inc()

	s.log.WithField("identity", session.Identity).Info("logout")
	if err := s.eventPub.PublishLogout(ctx, session.Identity, SessionRef(sessionID)); err != nil {
		// the session is already gone, which is what matters
		s.log.WithError(err).Warn("failed to publish logout event")
	}

	return nil
}

// SessionRef derives a stable public reference for a session credential
func SessionRef(sessionID string) string {
	return crypto.Keccak256Hash([]byte(sessionID)).Hex()
}
