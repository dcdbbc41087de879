package state

import (
	"context"

	"github.com/ardanlabs/slowchain/foundation/blockchain/database"
)

// Mine runs a mining operation on the worker's goroutine when a worker is
// registered, otherwise on the caller's.
func (s *State) Mine(ctx context.Context, beneficiary string) (database.Block, error) {
	if s.Worker == nil {
		return s.MineNewBlock(ctx, beneficiary)
	}

	return s.Worker.Mine(ctx, beneficiary)
}

// MineNewBlock solves the proof of work for the latest block, then credits
// the beneficiary and writes a new block holding every pending transaction.
// If the chain moves while the puzzle is being solved, the search starts
// again from the new latest block.
func (s *State) MineNewBlock(ctx context.Context, beneficiary string) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: started: beneficiary[%s]", beneficiary)
	defer s.evHandler("state: MineNewBlock: MINING: completed")

	if beneficiary == "" {
		beneficiary = s.minerID
	}

	for {
		prevBlock := s.RetrieveLatestBlock()

		s.evHandler("state: MineNewBlock: MINING: perform POW: blk[%d]", prevBlock.Index+1)

		proof, err := database.POW(ctx, prevBlock.ProofOfWork, database.Difficulty, s.evHandler)
		if err != nil {
			return database.Block{}, err
		}

		block, committed := s.commitBlock(prevBlock, proof, beneficiary)
		if !committed {
			s.evHandler("state: MineNewBlock: MINING: latest block changed, restarting")
			continue
		}

		s.evHandler("state: MineNewBlock: MINING: SOLVED: blk[%d]: txs[%d]", block.Index, len(block.Transactions))

		return block, nil
	}
}

// commitBlock adds the reward, snapshots the mempool and writes the block
// in one step. Nothing is written if prevBlock is no longer the latest block.
func (s *State) commitBlock(prevBlock database.Block, proof uint64, beneficiary string) (database.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.LatestBlock().Hash() != prevBlock.Hash() {
		return database.Block{}, false
	}

	s.mempool.Add(database.NewRewardTx(beneficiary))

	block := database.NewBlock(prevBlock, proof, s.mempool.Drain())
	s.db.Write(block)

	return block, true
}
