package core

import "errors"

var (
	ErrNoChallenge        = errors.New("no challenge pending for identity")
	ErrChallengeExpired   = errors.New("challenge has expired")
	ErrSignatureMismatch  = errors.New("signature does not match identity")
	ErrMalformedSignature = errors.New("malformed signature")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidIdentity    = errors.New("invalid identity")
	ErrInvalidToken       = errors.New("invalid token")
)

// IsAuthFailure reports whether err is one of the verification outcomes that
// must look the same to a caller
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrNoChallenge) ||
		errors.Is(err, ErrChallengeExpired) ||
		errors.Is(err, ErrSignatureMismatch)
}
