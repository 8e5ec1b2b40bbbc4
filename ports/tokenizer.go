package ports

import (
	"github.com/layer-3/walletauth/core"
)

// TokenIssuer converts sessions to self-contained signed tokens and back
type TokenIssuer interface {
	// IssueToken signs the session claims; tokenID becomes the jti
	IssueToken(session *core.Session, tokenID string) (string, error)
	// ParseToken validates signature and expiry and returns the session and its jti
	ParseToken(token string) (*core.Session, string, error)
}
