package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/slowchain/app/services/node/handlers"
	"github.com/ardanlabs/slowchain/foundation/blockchain/signature"
	"github.com/ardanlabs/slowchain/foundation/blockchain/state"
	"github.com/ardanlabs/slowchain/foundation/events"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

type node struct {
	state   *state.State
	public  http.Handler
	private http.Handler
}

func newNode(t *testing.T, minerID string) node {
	t.Helper()

	st := state.New(state.Config{MinerID: minerID})

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		Evts:     events.New(),
	}

	return node{
		state:   st,
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
	}
}

func call(t *testing.T, h http.Handler, method string, path string, body any, resp any) int {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Should be able to marshal the request: %s", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if resp != nil {
		if err := json.NewDecoder(w.Body).Decode(resp); err != nil {
			t.Fatalf("Should be able to unmarshal the response for %s: %s", path, err)
		}
	}

	return w.Code
}

// =============================================================================

func Test_Hello(t *testing.T) {
	n := newNode(t, "miner1")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	n.public.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "hello, this is SlowChain!") {
		t.Fatalf("Should greet the caller: %d %q", w.Code, w.Body.String())
	}
}

func Test_TransactionAndMine(t *testing.T) {
	n := newNode(t, "node-id")

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load a private key: %s", err)
	}

	sender := signature.PublicKeyToAddress(pk.PublicKey)
	sig, err := signature.Sign(signature.Message(sender, "bob", 42), pk)
	if err != nil {
		t.Fatalf("Should be able to sign: %s", err)
	}

	t.Log("Given the need to submit transactions over the public api.")
	{
		var errResp struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}

		status := call(t, n.public, http.MethodPost, "/v1/transactions/new", map[string]any{"sender": sender}, &errResp)
		if status != http.StatusBadRequest || errResp.Fields["recipient"] == "" || errResp.Fields["amount"] == "" {
			t.Fatalf("\t%s\tShould reject missing fields: %d %+v", failed, status, errResp)
		}
		t.Logf("\t%s\tShould reject missing fields.", success)

		unsigned := map[string]any{"sender": "alice", "recipient": "bob", "amount": 42}
		if status := call(t, n.public, http.MethodPost, "/v1/transactions/new", unsigned, &errResp); status != http.StatusUnauthorized {
			t.Fatalf("\t%s\tShould reject an unsigned transaction: %d", failed, status)
		}
		t.Logf("\t%s\tShould reject an unsigned transaction.", success)

		var submitted struct {
			Message    string           `json:"message"`
			BlockIndex uint64           `json:"block_index"`
			Pending    []map[string]any `json:"pending_transactions"`
		}

		signed := map[string]any{
			"sender":     sender,
			"receiver":   "bob",
			"amount":     42,
			"public_key": signature.PublicKeyHex(pk.PublicKey),
			"signature":  sig,
		}

		status = call(t, n.public, http.MethodPost, "/v1/transactions/new", signed, &submitted)
		if status != http.StatusCreated {
			t.Fatalf("\t%s\tShould accept a signed transaction: %d", failed, status)
		}
		t.Logf("\t%s\tShould accept a signed transaction.", success)

		if submitted.Message != "Transaction will be added to block 2" || len(submitted.Pending) != 1 {
			t.Fatalf("\t%s\tShould report the block and the pending pool: %+v", failed, submitted)
		}
		t.Logf("\t%s\tShould report the block and the pending pool.", success)
	}

	t.Log("Given the need to mine over the public api.")
	{
		var mined struct {
			Message      string           `json:"message"`
			NodeID       string           `json:"node_id"`
			Index        uint64           `json:"index"`
			Transactions []map[string]any `json:"transactions"`
			LenOfChain   int              `json:"len_of_chain"`
		}

		if status := call(t, n.public, http.MethodGet, "/v1/mine/miner1", nil, &mined); status != http.StatusOK {
			t.Fatalf("\t%s\tShould be able to mine: %d", failed, status)
		}
		t.Logf("\t%s\tShould be able to mine.", success)

		if mined.Index != 2 || mined.LenOfChain != 2 || mined.NodeID != "node-id" {
			t.Fatalf("\t%s\tShould report the new block: %+v", failed, mined)
		}

		if len(mined.Transactions) != 2 || mined.Transactions[1]["receiver"] != "miner1" || mined.Transactions[1]["sender"] != "0" {
			t.Fatalf("\t%s\tShould credit the named miner: %+v", failed, mined.Transactions)
		}
		t.Logf("\t%s\tShould credit the named miner.", success)

		var pending struct {
			Count int `json:"count"`
		}
		call(t, n.public, http.MethodGet, "/v1/transactions/pending", nil, &pending)
		if pending.Count != 0 {
			t.Fatalf("\t%s\tShould empty the pending pool: %d", failed, pending.Count)
		}
		t.Logf("\t%s\tShould empty the pending pool.", success)

		call(t, n.public, http.MethodGet, "/v1/mine", nil, &mined)
		if mined.Transactions[0]["receiver"] != "node-id" {
			t.Fatalf("\t%s\tShould credit the node by default: %+v", failed, mined.Transactions)
		}
		t.Logf("\t%s\tShould credit the node by default.", success)

		var validity struct {
			Message string `json:"message"`
			Valid   bool   `json:"valid"`
		}
		call(t, n.public, http.MethodGet, "/v1/chain/validate", nil, &validity)
		if !validity.Valid || validity.Message != "Current chain is valid" {
			t.Fatalf("\t%s\tShould report a valid chain: %+v", failed, validity)
		}
		t.Logf("\t%s\tShould report a valid chain.", success)
	}
}

func Test_RegisterAndResolve(t *testing.T) {
	nodeA := newNode(t, "node-a")
	nodeB := newNode(t, "node-b")

	for i := 0; i < 2; i++ {
		if _, err := nodeB.state.Mine(context.Background(), "node-b"); err != nil {
			t.Fatalf("Should be able to mine: %s", err)
		}
	}

	srvB := httptest.NewServer(nodeB.private)
	defer srvB.Close()

	t.Log("Given the need to register a peer and adopt its longer chain.")
	{
		var errResp map[string]any
		if status := call(t, nodeA.private, http.MethodPost, "/v1/node/register", map[string]any{"nodes": []string{}}, &errResp); status != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject an empty list of nodes: %d", failed, status)
		}
		t.Logf("\t%s\tShould reject an empty list of nodes.", success)

		status := call(t, nodeA.private, http.MethodPost, "/v1/node/register", map[string]any{"nodes": []string{"10.0.0.1:5000", "http://"}}, &errResp)
		if status != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject a list with an invalid address: %d", failed, status)
		}

		if peers := nodeA.state.RetrieveKnownPeers(); len(peers) != 0 {
			t.Fatalf("\t%s\tShould not keep any address from a rejected list: %v", failed, peers)
		}
		t.Logf("\t%s\tShould reject a list with an invalid address as a whole.", success)

		var registered struct {
			Message string   `json:"message"`
			Nodes   []string `json:"nodes"`
		}

		host := strings.TrimPrefix(srvB.URL, "http://")

		status = call(t, nodeA.private, http.MethodPost, "/v1/node/register", map[string]any{"nodes": []string{srvB.URL}}, &registered)
		if status != http.StatusCreated || len(registered.Nodes) != 1 || registered.Nodes[0] != host {
			t.Fatalf("\t%s\tShould register the peer by its network location: %d %+v", failed, status, registered)
		}
		t.Logf("\t%s\tShould register the peer by its network location.", success)

		var list struct {
			Count int `json:"count"`
		}
		call(t, nodeA.private, http.MethodGet, "/v1/node/list", nil, &list)
		if list.Count != 1 {
			t.Fatalf("\t%s\tShould list the peer: %d", failed, list.Count)
		}

		var resolved struct {
			Message  string           `json:"message"`
			Replaced bool             `json:"replaced"`
			Chain    []map[string]any `json:"chain"`
		}

		call(t, nodeA.private, http.MethodGet, "/v1/node/resolve", nil, &resolved)
		if !resolved.Replaced || len(resolved.Chain) != 3 || resolved.Message != "Our chain was replaced by a longer valid chain" {
			t.Fatalf("\t%s\tShould adopt the longer chain: %+v", failed, resolved.Message)
		}
		t.Logf("\t%s\tShould adopt the longer chain.", success)

		call(t, nodeA.private, http.MethodGet, "/v1/node/resolve", nil, &resolved)
		if resolved.Replaced || len(resolved.Chain) != 3 || resolved.Message != "Our chain is authoritative" {
			t.Fatalf("\t%s\tShould keep the chain on a second round: %+v", failed, resolved.Message)
		}
		t.Logf("\t%s\tShould keep the chain on a second round.", success)

		var chain struct {
			Length int `json:"length"`
		}
		call(t, nodeA.public, http.MethodGet, "/v1/chain", nil, &chain)
		if chain.Length != 3 {
			t.Fatalf("\t%s\tShould serve the adopted chain: %d", failed, chain.Length)
		}
	}
}

func Test_Liveness(t *testing.T) {
	st := state.New(state.Config{MinerID: "miner1"})
	debug := handlers.DebugMux("test", zap.NewNop().Sugar(), st)

	if _, err := st.Mine(context.Background(), ""); err != nil {
		t.Fatalf("Should be able to mine: %s", err)
	}

	var live struct {
		Status  string `json:"status"`
		MinerID string `json:"miner_id"`
		Length  int    `json:"length"`
		Pending int    `json:"pending"`
	}

	if status := call(t, debug, http.MethodGet, "/debug/liveness", nil, &live); status != http.StatusOK {
		t.Fatalf("Should report the node is alive: %d", status)
	}

	if live.Status != "up" || live.MinerID != "miner1" || live.Length != 2 || live.Pending != 0 {
		t.Fatalf("Should report the chain and the mempool: %+v", live)
	}
}
