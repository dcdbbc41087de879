// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/slowchain/foundation/blockchain/consensus"
	"github.com/ardanlabs/slowchain/foundation/blockchain/database"
	"github.com/ardanlabs/slowchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/slowchain/foundation/blockchain/peer"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the blockchain.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and scheduled conflict resolution.
type Worker interface {
	Shutdown()
	Mine(ctx context.Context, beneficiary string) (database.Block, error)
	SignalResolve()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerID     string
	Host        string
	KnownPeers  *peer.PeerSet
	Fetcher     consensus.Fetcher
	PeerTimeout time.Duration
	EvHandler   EventHandler
}

// State manages the chain, the pending transactions and the known peers.
// Every mutation of the chain or the mempool happens under mu.
type State struct {
	mu sync.RWMutex

	minerID   string
	host      string
	evHandler EventHandler

	knownPeers *peer.PeerSet
	db         *database.Database
	mempool    *mempool.Mempool
	resolver   *consensus.Resolver

	Worker Worker
}

// New constructs a new blockchain for data management starting from a
// genesis block.
func New(cfg Config) *State {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	// Peers are asked for their chain over http unless told otherwise.
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher()
	}

	state := State{
		minerID:   cfg.MinerID,
		host:      cfg.Host,
		evHandler: ev,

		knownPeers: knownPeers,
		db:         database.New(database.Genesis()),
		mempool:    mempool.New(),
		resolver:   consensus.New(fetcher, cfg.PeerTimeout, ev),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: Shutdown: started")
	defer s.evHandler("state: Shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// ValidateChain reports whether the chain is linked by hash and proof of
// work and every transfer in it is authorized.
func (s *State) ValidateChain(blocks []database.Block) bool {
	if err := database.ValidateChain(blocks, s.evHandler); err != nil {
		s.evHandler("state: ValidateChain: invalid: %s", err)
		return false
	}

	return true
}
