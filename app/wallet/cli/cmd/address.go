package cmd

import (
	"fmt"

	"github.com/ardanlabs/slowchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

// addressCmd represents the address command.
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address and public key for the specific wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "address:    %s\npublic_key: %s\n",
			signature.PublicKeyToAddress(privateKey.PublicKey),
			signature.PublicKeyHex(privateKey.PublicKey))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
}
