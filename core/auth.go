package core

import (
	"strings"
	"time"
)

// Identity identifies a wallet, usually a hex encoded address
type Identity string

// NormalizeIdentity trims and lower-cases an identity so that checksummed and
// plain addresses compare equal
func NormalizeIdentity(raw string) (Identity, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		return "", ErrInvalidIdentity
	}
	return Identity(id), nil
}

// String returns the identity as a plain string
func (i Identity) String() string {
	return string(i)
}

// Challenge represents an authentication challenge
type Challenge struct {
	ID        string    `json:"id"`         // Unique identifier for the challenge
	Identity  Identity  `json:"identity"`   // Wallet the challenge was issued to
	Message   string    `json:"message"`    // Full text the wallet has to sign
	IssuedAt  time.Time `json:"issued_at"`  // When the challenge was created
	ExpiresAt time.Time `json:"expires_at"` // When the challenge expires
}

// ExpiredAt reports whether the challenge is no longer valid at t
func (c *Challenge) ExpiredAt(t time.Time) bool {
	return !t.Before(c.ExpiresAt)
}

// Profile is application defined metadata attached to a session
type Profile map[string]any

// Session represents an authenticated user session
type Session struct {
	ID        string    `json:"id"`                   // Opaque credential handed to the client
	Identity  Identity  `json:"identity"`             // Wallet that completed the challenge
	Profile   Profile   `json:"profile,omitempty"`    // Registration metadata
	IssuedAt  time.Time `json:"issued_at"`            // When the session was created
	ExpiresAt time.Time `json:"expires_at,omitempty"` // Zero means the session never expires
}

// ExpiredAt reports whether the session is no longer valid at t
func (s *Session) ExpiredAt(t time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !t.Before(s.ExpiresAt)
}
