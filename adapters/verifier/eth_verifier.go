package verifier

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// SignatureLength is the size of an R || S || V secp256k1 signature
const SignatureLength = crypto.SignatureLength

// EthVerifier recovers Ethereum addresses from EIP-191 personal_sign signatures
type EthVerifier struct{}

// NewEthVerifier creates a new EIP-191 signature verifier
func NewEthVerifier() ports.SignatureVerifier {
	return EthVerifier{}
}

// RecoverIdentity returns the normalized address that signed message
func (EthVerifier) RecoverIdentity(message string, signature []byte) (core.Identity, error) {
	if len(signature) != SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes: %w", SignatureLength, core.ErrMalformedSignature)
	}

	// Wallets emit V as 27/28, the recovery primitive wants 0/1.
	// https://eips.ethereum.org/EIPS/eip-155
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return "", fmt.Errorf("invalid recovery id: %w", core.ErrMalformedSignature)
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", core.ErrMalformedSignature)
	}

	return core.NormalizeIdentity(crypto.PubkeyToAddress(*pub).Hex())
}

// PersonalSign signs data the way wallets implement personal_sign.
// https://eips.ethereum.org/EIPS/eip-191
func PersonalSign(data []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(data), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Address returns the checksummed address for key
func Address(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}
