package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultChallengeTTL is how long an issued challenge can be answered
	DefaultChallengeTTL = 60 * time.Second

	// DefaultMessagePrefix is prepended to the random token the wallet signs
	DefaultMessagePrefix = "Authentication request\n"

	// NonceLength is the number of random bytes in every challenge
	NonceLength = 32
)

// ChallengeConfig tunes challenge issuance
type ChallengeConfig struct {
	TTL           time.Duration
	MessagePrefix string
}

// ChallengeService issues single-use challenges and verifies signed answers
type ChallengeService struct {
	store    ports.ChallengeStore
	verifier ports.SignatureVerifier
	clock    ports.Clock
	log      logrus.FieldLogger

	ttl    time.Duration
	prefix string
}

// NewChallengeService creates a new challenge service
func NewChallengeService(
	store ports.ChallengeStore,
	verifier ports.SignatureVerifier,
	clock ports.Clock,
	log logrus.FieldLogger,
	cfg ChallengeConfig,
) *ChallengeService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultChallengeTTL
	}
	if cfg.MessagePrefix == "" {
		cfg.MessagePrefix = DefaultMessagePrefix
	}
	return &ChallengeService{
		store:    store,
		verifier: verifier,
		clock:    clock,
		log:      log.WithField("component", "challenge"),
		ttl:      cfg.TTL,
		prefix:   cfg.MessagePrefix,
	}
}

// TTL returns the lifetime of issued challenges
func (s *ChallengeService) TTL() time.Duration {
	return s.ttl
}

// IssueChallenge generates a new challenge for identity, superseding any
// pending one
func (s *ChallengeService) IssueChallenge(ctx context.Context, rawIdentity string) (*core.Challenge, error) {
	identity, err := core.NormalizeIdentity(rawIdentity)
	if err != nil {
		return nil, err
	}

	nonce, err := generateToken(NonceLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.clock.Now()
	challenge := &core.Challenge{
		ID:        uuid.NewString(),
		Identity:  identity,
		Message:   s.prefix + nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.Set(ctx, challenge, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	s.log.WithField("identity", identity).Debug("challenge issued")
	return challenge, nil
}

// Verify consumes the pending challenge for identity and checks that
// signature over it was produced by identity. The challenge is gone after
// this call whatever the outcome.
func (s *ChallengeService) Verify(ctx context.Context, rawIdentity string, signature []byte) error {
	identity, err := core.NormalizeIdentity(rawIdentity)
	if err != nil {
		return err
	}
	log := s.log.WithField("identity", identity)

	challenge, err := s.store.Take(ctx, identity)
	if err != nil {
		if errors.Is(err, core.ErrNoChallenge) {
			log.Debug("no pending challenge")
			return core.ErrNoChallenge
		}
		return fmt.Errorf("failed to take challenge: %w", err)
	}

	if challenge.ExpiredAt(s.clock.Now()) {
		log.Debug("challenge expired")
		return core.ErrChallengeExpired
	}

	recovered, err := s.verifier.RecoverIdentity(challenge.Message, signature)
	if err != nil {
		log.WithError(err).Debug("signature rejected")
		return err
	}

	if recovered != identity {
		log.WithField("recovered", recovered).Debug("signature from another wallet")
		return core.ErrSignatureMismatch
	}

	return nil
}

func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
