package testutil

import (
	"crypto/ecdsa"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletauth/adapters/verifier"
	"github.com/stretchr/testify/require"
)

// Clock is a manually advanced clock
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at a fixed instant
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Wallet is a throwaway secp256k1 key pair
type Wallet struct {
	Key     *ecdsa.PrivateKey
	Address string // checksummed
}

// NewWallet generates a fresh wallet
func NewWallet(t *testing.T) Wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return Wallet{Key: key, Address: verifier.Address(key)}
}

// Sign produces a personal_sign signature over message
func (w Wallet) Sign(t *testing.T, message string) []byte {
	t.Helper()
	sig, err := verifier.PersonalSign([]byte(message), w.Key)
	require.NoError(t, err)
	return sig
}

// SignHex is Sign encoded the way wallets return it
func (w Wallet) SignHex(t *testing.T, message string) string {
	return hexutil.Encode(w.Sign(t, message))
}
