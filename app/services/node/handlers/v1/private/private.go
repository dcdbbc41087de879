// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/slowchain/business/web/errs"
	"github.com/ardanlabs/slowchain/foundation/blockchain/consensus"
	"github.com/ardanlabs/slowchain/foundation/blockchain/state"
	"github.com/ardanlabs/slowchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Chain returns the chain in the shape consumed by peers resolving
// conflicts.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks := h.State.RetrieveChain()

	resp := consensus.ChainSnapshot{
		Length: len(blocks),
		Chain:  blocks,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Register adds the specified nodes to the set of known peers and signals
// a resolve round when any of them is new. A list holding an invalid
// address is rejected as a whole.
func (h Handlers) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var reg Register
	if err := web.Decode(r, &reg); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	added, err := h.State.AddKnownPeers(reg.Nodes...)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	for _, pr := range added {
		h.Log.Infow("register node", "traceid", web.GetTraceID(ctx), "host", pr.Host)
	}

	if len(added) > 0 && h.State.Worker != nil {
		h.State.Worker.SignalResolve()
	}

	resp := registered{
		Message: "Nodes registered successfully",
		Nodes:   hosts(h.State.RetrieveKnownPeers()),
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Nodes returns the set of known peers.
func (h Handlers) Nodes(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	peers := h.State.RetrieveKnownPeers()

	resp := nodes{
		Nodes: hosts(peers),
		Count: len(peers),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Resolve runs a round of conflict resolution against the known peers and
// returns the resulting chain.
func (h Handlers) Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	replaced, chain := h.State.Resolve(ctx)

	msg := "Our chain is authoritative"
	if replaced {
		msg = "Our chain was replaced by a longer valid chain"
	}

	resp := resolved{
		Message:  msg,
		Replaced: replaced,
		Chain:    chain,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
