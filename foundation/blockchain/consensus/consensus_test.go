package consensus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/slowchain/foundation/blockchain/consensus"
	"github.com/ardanlabs/slowchain/foundation/blockchain/database"
	"github.com/ardanlabs/slowchain/foundation/blockchain/peer"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Resolve(t *testing.T) {
	local := chain(t, 1)
	two := chain(t, 2)
	three := chain(t, 3)

	tampered := chain(t, 4)
	tampered[2].Transactions[0].Amount = 1000

	type table struct {
		name     string
		local    []database.Block
		peers    map[string]consensus.ChainSnapshot
		replaced bool
		length   int
	}

	tt := []table{
		{
			name:     "longer",
			local:    local,
			peers:    map[string]consensus.ChainSnapshot{"b:9080": snap(two)},
			replaced: true,
			length:   2,
		},
		{
			name:   "tie",
			local:  two,
			peers:  map[string]consensus.ChainSnapshot{"b:9080": snap(chain(t, 2))},
			length: 2,
		},
		{
			name:   "shorter",
			local:  three,
			peers:  map[string]consensus.ChainSnapshot{"b:9080": snap(two)},
			length: 3,
		},
		{
			name:     "longest",
			local:    local,
			peers:    map[string]consensus.ChainSnapshot{"b:9080": snap(two), "c:9080": snap(three), "d:9080": snap(two)},
			replaced: true,
			length:   3,
		},
		{
			name:     "invalid",
			local:    local,
			peers:    map[string]consensus.ChainSnapshot{"b:9080": snap(tampered), "c:9080": snap(two)},
			replaced: true,
			length:   2,
		},
		{
			name:   "invalid-only",
			local:  local,
			peers:  map[string]consensus.ChainSnapshot{"b:9080": snap(tampered)},
			length: 1,
		},
		{
			name:   "length-mismatch",
			local:  local,
			peers:  map[string]consensus.ChainSnapshot{"b:9080": {Length: 5, Chain: two}},
			length: 1,
		},
		{
			name:     "unreachable",
			local:    local,
			peers:    map[string]consensus.ChainSnapshot{"c:9080": snap(two)},
			replaced: true,
			length:   2,
		},
		{
			name:   "no-peers",
			local:  local,
			length: 1,
		},
	}

	t.Log("Given the need to resolve conflicts with peers.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				fetcher := consensus.FetchFunc(func(ctx context.Context, pr peer.Peer) (consensus.ChainSnapshot, error) {
					s, exists := tst.peers[pr.Host]
					if !exists {
						return consensus.ChainSnapshot{}, errors.New("connection refused")
					}
					return s, nil
				})

				peers := []peer.Peer{peer.New("a:9080")}
				for host := range tst.peers {
					peers = append(peers, peer.New(host))
				}

				resolver := consensus.New(fetcher, time.Second, nil)
				result := resolver.Resolve(context.Background(), peers, tst.local)

				if result.Replaced != tst.replaced {
					t.Fatalf("\t%s\tTest %d:\tShould report replaced %t, got %t.", failed, testID, tst.replaced, result.Replaced)
				}
				t.Logf("\t%s\tTest %d:\tShould report replaced %t.", success, testID, tst.replaced)

				if len(result.Chain) != tst.length {
					t.Fatalf("\t%s\tTest %d:\tShould end with a chain of %d, got %d.", failed, testID, tst.length, len(result.Chain))
				}
				t.Logf("\t%s\tTest %d:\tShould end with a chain of %d.", success, testID, tst.length)

				if !tst.replaced && result.Chain[len(result.Chain)-1].Hash() != tst.local[len(tst.local)-1].Hash() {
					t.Fatalf("\t%s\tTest %d:\tShould keep the local chain.", failed, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Idempotent(t *testing.T) {
	remote := chain(t, 2)

	fetcher := consensus.FetchFunc(func(ctx context.Context, pr peer.Peer) (consensus.ChainSnapshot, error) {
		return snap(remote), nil
	})

	resolver := consensus.New(fetcher, time.Second, nil)
	peers := []peer.Peer{peer.New("b:9080")}

	first := resolver.Resolve(context.Background(), peers, chain(t, 1))
	if !first.Replaced {
		t.Fatalf("Should replace the chain on the first round.")
	}

	second := resolver.Resolve(context.Background(), peers, first.Chain)
	if second.Replaced {
		t.Fatalf("Should not replace the chain on the second round.")
	}

	if second.Chain[1].Hash() != remote[1].Hash() {
		t.Fatalf("Should keep the adopted chain.")
	}
}

func Test_Timeout(t *testing.T) {
	fetcher := consensus.FetchFunc(func(ctx context.Context, pr peer.Peer) (consensus.ChainSnapshot, error) {
		if pr.Host == "slow:9080" {
			<-ctx.Done()
			return consensus.ChainSnapshot{}, ctx.Err()
		}
		return snap(chain(t, 2)), nil
	})

	resolver := consensus.New(fetcher, 50*time.Millisecond, nil)
	peers := []peer.Peer{peer.New("slow:9080"), peer.New("fast:9080")}

	start := time.Now()
	result := resolver.Resolve(context.Background(), peers, chain(t, 1))

	if time.Since(start) > 5*time.Second {
		t.Fatalf("Should bound the fetch from a slow peer.")
	}

	if !result.Replaced || result.Peer.Host != "fast:9080" {
		t.Fatalf("Should skip the slow peer and use the fast one: %+v", result.Peer)
	}
}

// =============================================================================

func noop(v string, args ...any) {}

func snap(blocks []database.Block) consensus.ChainSnapshot {
	return consensus.ChainSnapshot{Length: len(blocks), Chain: blocks}
}

// chain mines a valid chain of the specified length with a reward in
// every block after genesis.
func chain(t *testing.T, length int) []database.Block {
	t.Helper()

	blocks := []database.Block{database.Genesis()}
	for len(blocks) < length {
		prev := blocks[len(blocks)-1]

		proof, err := database.POW(context.Background(), prev.ProofOfWork, database.Difficulty, noop)
		if err != nil {
			t.Fatalf("Should be able to find a proof: %s", err)
		}

		blocks = append(blocks, database.NewBlock(prev, proof, []database.Tx{database.NewRewardTx("miner")}))
	}

	return blocks
}
