package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

const AudienceSession = "session:access"

// SessionClaims combines standard claims with the session profile
type SessionClaims struct {
	jwt.RegisteredClaims
	Profile core.Profile `json:"profile,omitempty"`
}

// JWTTokenizer implements ports.TokenIssuer using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
	clock   ports.Clock
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, clock ports.Clock) *JWTTokenizer {
	return &JWTTokenizer{signKey: signKey, clock: clock}
}

// IssueToken converts a Session to a signed JWT
func (j *JWTTokenizer) IssueToken(session *core.Session, tokenID string) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  session.Identity.String(),
			ID:       tokenID,
			IssuedAt: jwt.NewNumericDate(session.IssuedAt),
			Audience: jwt.ClaimStrings{AudienceSession},
		},
		Profile: session.Profile,
	}
	if !session.ExpiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(session.ExpiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signedToken, nil
}

// ParseToken validates a JWT and returns the session it carries with its jti
func (j *JWTTokenizer) ParseToken(tokenStr string) (*core.Session, string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	},
		jwt.WithAudience(AudienceSession),
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithTimeFunc(j.clock.Now),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse token: %w: %w", core.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, "", core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, "", fmt.Errorf("invalid claims type: %w", core.ErrInvalidToken)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, "", fmt.Errorf("missing subject or id: %w", core.ErrInvalidToken)
	}

	session := &core.Session{
		ID:       tokenStr,
		Identity: core.Identity(claims.Subject),
		Profile:  claims.Profile,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}

	return session, claims.ID, nil
}

// GenerateKey creates a new P-256 signing key
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// LoadPrivateKey parses a PEM encoded EC private key
func LoadPrivateKey(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// EncodePrivateKey serializes key as a PEM "EC PRIVATE KEY" block
func EncodePrivateKey(key *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}
