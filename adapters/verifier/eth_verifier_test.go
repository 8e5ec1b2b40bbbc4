package verifier_test

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletauth/adapters/verifier"
	"github.com/layer-3/walletauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEthVerifier_RecoverIdentity(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := verifier.Address(key)
	message := "Authentication request\n00ff"

	sig, err := verifier.PersonalSign([]byte(message), key)
	require.NoError(t, err)

	v := verifier.NewEthVerifier()

	t.Run("Success", func(t *testing.T) {
		identity, err := v.RecoverIdentity(message, sig)
		require.NoError(t, err)
		assert.Equal(t, core.Identity(strings.ToLower(address)), identity)
	})

	t.Run("RawRecoveryID", func(t *testing.T) {
		raw := append([]byte(nil), sig...)
		raw[64] -= 27
		identity, err := v.RecoverIdentity(message, raw)
		require.NoError(t, err)
		assert.Equal(t, core.Identity(strings.ToLower(address)), identity)
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, err := v.RecoverIdentity(message, sig)
		require.NoError(t, err)
		b, err := v.RecoverIdentity(message, sig)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("DoesNotMutateInput", func(t *testing.T) {
		before := append([]byte(nil), sig...)
		_, err := v.RecoverIdentity(message, sig)
		require.NoError(t, err)
		assert.Equal(t, before, sig)
	})

	t.Run("DifferentMessage", func(t *testing.T) {
		identity, err := v.RecoverIdentity(message+"x", sig)
		require.NoError(t, err)
		assert.NotEqual(t, core.Identity(strings.ToLower(address)), identity)
	})

	t.Run("WrongLength", func(t *testing.T) {
		_, err := v.RecoverIdentity(message, sig[:64])
		assert.ErrorIs(t, err, core.ErrMalformedSignature)

		_, err = v.RecoverIdentity(message, nil)
		assert.ErrorIs(t, err, core.ErrMalformedSignature)
	})

	t.Run("InvalidRecoveryID", func(t *testing.T) {
		bad := append([]byte(nil), sig...)
		bad[64] = 5
		_, err := v.RecoverIdentity(message, bad)
		assert.ErrorIs(t, err, core.ErrMalformedSignature)
	})

	t.Run("ZeroSignature", func(t *testing.T) {
		_, err := v.RecoverIdentity(message, make([]byte, verifier.SignatureLength))
		assert.ErrorIs(t, err, core.ErrMalformedSignature)
	})
}
