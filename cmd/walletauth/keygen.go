package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/adapters/verifier"
	"github.com/spf13/cobra"
)

func keygenCmd() *cobra.Command {
	var (
		out    string
		wallet bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a session signing key",
		Long: "Generate a PEM encoded P-256 key for the jwt session strategy. " +
			"With --wallet, generate a throwaway secp256k1 wallet key instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if wallet {
				return writeWalletKey(cmd.OutOrStdout())
			}
			if out == "" {
				return writeSessionKey(cmd.OutOrStdout())
			}

			f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
			if err != nil {
				return err
			}
			if err := writeSessionKey(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the key to this file instead of stdout")
	cmd.Flags().BoolVar(&wallet, "wallet", false, "generate a secp256k1 wallet key")

	return cmd
}

func writeSessionKey(w io.Writer) error {
	key, err := tokenizer.GenerateKey()
	if err != nil {
		return err
	}
	pemBytes, err := tokenizer.EncodePrivateKey(key)
	if err != nil {
		return err
	}
	_, err = w.Write(pemBytes)
	return err
}

func writeWalletKey(w io.Writer) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "address:     %s\nprivate key: %s\n", verifier.Address(key), hexutil.Encode(crypto.FromECDSA(key)))
	return err
}
