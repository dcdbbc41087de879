package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ardanlabs/slowchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

// mineCmd represents the mine command.
var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to mine a block crediting this wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			return err
		}

		resp, err := mine(cmd.Context(), http.DefaultClient, nodeURL, signature.PublicKeyToAddress(privateKey.PublicKey))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
}

// mine asks the node at url to mine a block crediting the address. The
// body of the node's response is returned.
func mine(ctx context.Context, client *http.Client, url string, address string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/mine/%s", url, address), nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return string(bytes.TrimSpace(body)), nil
}
