// Package database handles the block and transaction model for the chain and
// maintains the in memory copy of the blocks.
package database

import (
	"sync"
)

// Database manages the ordered set of blocks that make up the chain. The
// chain always starts with a genesis block.
type Database struct {
	mu     sync.RWMutex
	blocks []Block
}

// New constructs a database holding only the genesis block.
func New(genesis Block) *Database {
	return &Database{
		blocks: []Block{genesis.Copy()},
	}
}

// LatestBlock returns a copy of the last block in the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1].Copy()
}

// Length returns the number of blocks in the chain.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// Copy returns a copy of the chain.
func (db *Database) Copy() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return copyBlocks(db.blocks)
}

// Write appends the block to the end of the chain.
func (db *Database) Write(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.blocks = append(db.blocks, block.Copy())
}

// Replace swaps the entire chain for the specified blocks. An empty set
// of blocks is ignored since the chain can never be empty.
func (db *Database) Replace(blocks []Block) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.blocks = copyBlocks(blocks)

	return nil
}

// =============================================================================

func copyBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, block := range blocks {
		out[i] = block.Copy()
	}

	return out
}
