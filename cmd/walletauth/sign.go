package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletauth/adapters/verifier"
	"github.com/spf13/cobra"
)

func signCmd() *cobra.Command {
	var (
		keyHex  string
		message string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a challenge the way a wallet would (personal_sign)",
		Long: "Sign a challenge message with a hex encoded secp256k1 key and print the 0x prefixed signature. " +
			"The message is read from --message or, when absent, from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				message = string(b)
			}

			address, signature, err := signMessage(keyHex, message)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "address:   %s\nsignature: %s\n", address, signature)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyHex, "key", "k", "", "hex encoded secp256k1 private key")
	cmd.Flags().StringVarP(&message, "message", "m", "", "challenge message to sign")
	cmd.MarkFlagRequired("key")

	return cmd
}

func signMessage(keyHex, message string) (string, string, error) {
	if message == "" {
		return "", "", errors.New("nothing to sign")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return "", "", fmt.Errorf("invalid private key: %w", err)
	}

	sig, err := verifier.PersonalSign([]byte(message), key)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign message: %w", err)
	}

	return verifier.Address(key), hexutil.Encode(sig), nil
}
