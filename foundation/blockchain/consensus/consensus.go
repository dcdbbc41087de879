// Package consensus implements the longest valid chain rule used to
// reconcile the local chain with the chains held by known peers.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/slowchain/foundation/blockchain/database"
	"github.com/ardanlabs/slowchain/foundation/blockchain/peer"
)

// DefaultTimeout bounds a single peer fetch when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Set of errors recovered from while resolving. Neither is ever returned
// from Resolve, a failing peer is skipped.
var (
	ErrPeerUnreachable = errors.New("peer unreachable")
	ErrInvalidChain    = errors.New("invalid chain")
)

// =============================================================================

// ChainSnapshot is the shape a node reports its chain in, both when serving
// it and when it is consumed from a peer.
type ChainSnapshot struct {
	Length int              `json:"length"`
	Chain  []database.Block `json:"chain"`
}

// Fetcher represents the behavior required to retrieve the chain from a peer.
type Fetcher interface {
	FetchChain(ctx context.Context, pr peer.Peer) (ChainSnapshot, error)
}

// FetchFunc is an adapter that allows a function to be used as a Fetcher.
type FetchFunc func(ctx context.Context, pr peer.Peer) (ChainSnapshot, error)

// FetchChain implements the Fetcher interface.
func (f FetchFunc) FetchChain(ctx context.Context, pr peer.Peer) (ChainSnapshot, error) {
	return f(ctx, pr)
}

// Result reports the outcome of one resolution round.
type Result struct {
	Replaced bool
	Chain    []database.Block
	Peer     peer.Peer
}

// =============================================================================

// Resolver runs resolution rounds against a set of peers.
type Resolver struct {
	fetcher   Fetcher
	timeout   time.Duration
	evHandler func(v string, args ...any)
}

// New constructs a resolver that uses the fetcher to query peers, bounding
// every fetch by the timeout.
func New(fetcher Fetcher, timeout time.Duration, evHandler func(v string, args ...any)) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Resolver{
		fetcher:   fetcher,
		timeout:   timeout,
		evHandler: ev,
	}
}

// Resolve asks every peer for its chain and returns the longest chain that
// is strictly longer than the local chain and every earlier candidate and
// that passes validation. When no such chain exists the local chain is
// returned with Replaced set to false.
func (r *Resolver) Resolve(ctx context.Context, peers []peer.Peer, local []database.Block) Result {
	r.evHandler("consensus: Resolve: started: peers[%d]: local-len[%d]", len(peers), len(local))
	defer r.evHandler("consensus: Resolve: completed")

	result := Result{
		Chain: local,
	}
	maxLength := len(local)

	for _, pr := range peers {
		if ctx.Err() != nil {
			r.evHandler("consensus: Resolve: CANCELLED")
			break
		}

		snapshot, err := r.candidate(ctx, pr, maxLength)
		if err != nil {
			r.evHandler("consensus: Resolve: peer[%s]: skipped: %s", pr, err)
			continue
		}

		if snapshot.Length <= maxLength {
			r.evHandler("consensus: Resolve: peer[%s]: not longer: len[%d] max[%d]", pr, snapshot.Length, maxLength)
			continue
		}

		r.evHandler("consensus: Resolve: peer[%s]: accepted: len[%d]", pr, snapshot.Length)

		maxLength = snapshot.Length
		result = Result{
			Replaced: true,
			Chain:    snapshot.Chain,
			Peer:     pr,
		}
	}

	return result
}

// candidate fetches the peer's chain and validates it when it is long
// enough to matter.
func (r *Resolver) candidate(ctx context.Context, pr peer.Peer, maxLength int) (ChainSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snapshot, err := r.fetcher.FetchChain(ctx, pr)
	if err != nil {
		return ChainSnapshot{}, fmt.Errorf("%w: %s", ErrPeerUnreachable, err)
	}

	if snapshot.Length != len(snapshot.Chain) {
		return ChainSnapshot{}, fmt.Errorf("%w: length %d does not match %d blocks", ErrPeerUnreachable, snapshot.Length, len(snapshot.Chain))
	}

	if snapshot.Length <= maxLength {
		return snapshot, nil
	}

	if err := database.ValidateChain(snapshot.Chain, r.evHandler); err != nil {
		return ChainSnapshot{}, fmt.Errorf("%w: %s", ErrInvalidChain, err)
	}

	return snapshot, nil
}
