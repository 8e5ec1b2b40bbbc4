package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/adapters/verifier"
	"github.com/layer-3/walletauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignMessage(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyHex := hexutil.Encode(crypto.FromECDSA(key))

	address, signature, err := signMessage(keyHex, "Authentication request\nabc")
	require.NoError(t, err)
	assert.Equal(t, verifier.Address(key), address)

	sig, err := hexutil.Decode(signature)
	require.NoError(t, err)
	recovered, err := verifier.NewEthVerifier().RecoverIdentity("Authentication request\nabc", sig)
	require.NoError(t, err)
	assert.Equal(t, core.Identity(strings.ToLower(address)), recovered)

	_, _, err = signMessage("zz", "hello")
	assert.Error(t, err)

	_, _, err = signMessage(keyHex, "")
	assert.Error(t, err)
}

func TestSignCmd_Stdin(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	cmd := signCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("hello from stdin"))
	cmd.SetArgs([]string{"--key", hexutil.Encode(crypto.FromECDSA(key))})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), verifier.Address(key))
	assert.Contains(t, out.String(), "signature: 0x")
}

func TestKeygenCmd(t *testing.T) {
	t.Run("Stdout", func(t *testing.T) {
		cmd := keygenCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(nil)

		require.NoError(t, cmd.Execute())
		_, err := tokenizer.LoadPrivateKey(out.Bytes())
		assert.NoError(t, err)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.pem")
		cmd := keygenCmd()
		cmd.SetArgs([]string{"--out", path})
		require.NoError(t, cmd.Execute())

		pemBytes, err := os.ReadFile(path)
		require.NoError(t, err)
		_, err = tokenizer.LoadPrivateKey(pemBytes)
		assert.NoError(t, err)

		// never clobber an existing key
		cmd = keygenCmd()
		cmd.SetArgs([]string{"--out", path})
		cmd.SetErr(&bytes.Buffer{})
		assert.Error(t, cmd.Execute())
	})

	t.Run("Wallet", func(t *testing.T) {
		cmd := keygenCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--wallet"})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "address:     0x")
		assert.Contains(t, out.String(), "private key: 0x")
	})
}
