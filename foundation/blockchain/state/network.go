package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ardanlabs/slowchain/foundation/blockchain/consensus"
	"github.com/ardanlabs/slowchain/foundation/blockchain/peer"
)

const baseURL = "http://%s/v1/node"

// HTTPFetcher retrieves the chain from a peer over the private node api.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher constructs a fetcher using a dedicated http client.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{},
	}
}

// FetchChain implements the consensus.Fetcher interface.
func (hf *HTTPFetcher) FetchChain(ctx context.Context, pr peer.Peer) (consensus.ChainSnapshot, error) {
	url := fmt.Sprintf("%s/chain", fmt.Sprintf(baseURL, pr.Host))

	var snapshot consensus.ChainSnapshot
	if err := send(ctx, hf.Client, http.MethodGet, url, nil, &snapshot); err != nil {
		return consensus.ChainSnapshot{}, err
	}

	return snapshot, nil
}

// =============================================================================

// send is a helper function to send an HTTP request to a node.
func send(ctx context.Context, client *http.Client, method string, url string, dataSend any, dataRecv any) error {
	var body io.Reader

	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}

	if dataSend != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return errors.Join(errors.New("malformed response"), err)
		}
	}

	return nil
}
