// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/slowchain/business/web/errs"
	"github.com/ardanlabs/slowchain/foundation/blockchain/database"
	"github.com/ardanlabs/slowchain/foundation/blockchain/state"
	"github.com/ardanlabs/slowchain/foundation/blockchain/worker"
	"github.com/ardanlabs/slowchain/foundation/events"
	"github.com/ardanlabs/slowchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Hello greets the caller.
func (h Handlers) Hello(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.RespondText(ctx, w, "hello, this is SlowChain!", http.StatusOK)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	id, ch := h.Evts.Subscribe()
	defer h.Evts.Unsubscribe(id)

	h.Log.Infow("websocket open", "traceid", web.GetTraceID(ctx), "id", id, "subscribers", h.Evts.Count())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction adds a new transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var ntx NewTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	tx := ntx.toTx()

	h.Log.Infow("add tran", "traceid", web.GetTraceID(ctx), "sender", tx.Sender, "receiver", tx.Receiver, "amount", tx.Amount)

	index, err := h.State.SubmitTransaction(tx)
	if err != nil {
		if errors.Is(err, database.ErrAuthorization) {
			return errs.NewTrusted(err, http.StatusUnauthorized)
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := submitted{
		Message:    fmt.Sprintf("Transaction will be added to block %d", index),
		BlockIndex: index,
		Pending:    h.State.RetrieveMempool(),
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Mempool returns the set of pending transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pool := h.State.RetrieveMempool()

	resp := pending{
		Pending: pool,
		Count:   len(pool),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mine forges a new block holding every pending transaction and credits the
// miner named in the path, or this node when none is named.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	beneficiary := web.Param(r, "miner")
	if beneficiary == "" {
		beneficiary = h.State.RetrieveMinerID()
	}

	block, err := h.State.Mine(ctx, beneficiary)
	if err != nil {
		if errors.Is(err, worker.ErrShutdown) {
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("mining: %w", err)
	}

	resp := mined{
		Message:      "New block created on blockchain",
		NodeID:       h.State.RetrieveMinerID(),
		Index:        block.Index,
		TimeStamp:    block.TimeStamp,
		Transactions: block.Transactions,
		ProofOfWork:  block.ProofOfWork,
		PreviousHash: block.PreviousHash,
		LenOfChain:   h.State.RetrieveChainLength(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Chain returns the full chain held by this node.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks := h.State.RetrieveChain()

	resp := chain{
		Chain:  blocks,
		Length: len(blocks),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Validate reports whether the chain held by this node is valid.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	valid := h.State.ValidateChain(h.State.RetrieveChain())

	status := "valid"
	if !valid {
		status = "invalid"
	}

	resp := validity{
		Message: fmt.Sprintf("Current chain is %s", status),
		Valid:   valid,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
