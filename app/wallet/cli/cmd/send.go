package cmd

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ardanlabs/slowchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount float64
)

// newTx is the transfer body the node accepts for submission.
type newTx struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
	PublicKey string  `json:"public_key"`
	Signature string  `json:"signature"`
}

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign a transfer and submit it to the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			return err
		}

		resp, err := send(cmd.Context(), http.DefaultClient, nodeURL, privateKey, to, amount)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the recipient.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.Flags().Float64VarP(&amount, "amount", "a", 0, "Amount to send.")
}

// send signs the transfer with the private key and submits it to the node
// at url. The body of the node's response is returned.
func send(ctx context.Context, client *http.Client, url string, privateKey *ecdsa.PrivateKey, to string, amount float64) (string, error) {
	sender := signature.PublicKeyToAddress(privateKey.PublicKey)

	sig, err := signature.Sign(signature.Message(sender, to, amount), privateKey)
	if err != nil {
		return "", fmt.Errorf("signing: %w", err)
	}

	tx := newTx{
		Sender:    sender,
		Recipient: to,
		Amount:    amount,
		PublicKey: signature.PublicKeyHex(privateKey.PublicKey),
		Signature: sig,
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/v1/transactions/new", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return string(bytes.TrimSpace(body)), nil
}
