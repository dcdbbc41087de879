package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ardanlabs/slowchain/foundation/blockchain/signature"
)

// Difficulty is the number of leading zeros a proof of work hash needs.
const Difficulty uint = 4

// Values for the first block of every chain.
const (
	GenesisPreviousHash        = "1"
	GenesisProof        uint64 = 100
)

// Set of errors for chains that do not start with a genesis block.
var (
	ErrEmptyChain = errors.New("chain is empty")
	ErrNotGenesis = errors.New("chain does not start with a genesis block")
)

// =============================================================================

// Block represents a group of transactions batched together.
type Block struct {
	Index        uint64 `json:"index"`         // Position in the chain starting at 1.
	TimeStamp    uint64 `json:"timestamp"`     // Unix milliseconds the block was created.
	Transactions []Tx   `json:"transactions"`  // Pending transactions at creation time.
	ProofOfWork  uint64 `json:"proof_of_work"` // Solution relative to the previous block's proof.
	PreviousHash string `json:"previous_hash"` // Hash of the previous block.
}

// Genesis constructs the first block for a chain.
func Genesis() Block {
	return Block{
		Index:        1,
		TimeStamp:    uint64(time.Now().UTC().UnixMilli()),
		Transactions: []Tx{},
		ProofOfWork:  GenesisProof,
		PreviousHash: GenesisPreviousHash,
	}
}

// NewBlock constructs the block that follows the previous block with the
// specified proof and transactions.
func NewBlock(prevBlock Block, proof uint64, trans []Tx) Block {
	txs := make([]Tx, len(trans))
	copy(txs, trans)

	return Block{
		Index:        prevBlock.Index + 1,
		TimeStamp:    uint64(time.Now().UTC().UnixMilli()),
		Transactions: txs,
		ProofOfWork:  proof,
		PreviousHash: prevBlock.Hash(),
	}
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() string {

	// An empty set of transactions must serialize the same way no matter
	// how the block was decoded.
	if b.Transactions == nil {
		b.Transactions = []Tx{}
	}

	return signature.Hash(b)
}

// Copy returns a block that shares no memory with the original.
func (b Block) Copy() Block {
	txs := make([]Tx, len(b.Transactions))
	copy(txs, b.Transactions)
	b.Transactions = txs

	return b
}

// ValidateBlock takes a block and validates it can follow the previous
// block in the chain.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block index is the next index", b.Index)

	if b.Index != previousBlock.Index+1 {
		return fmt.Errorf("this block is not the next index, got %d, exp %d", b.Index, previousBlock.Index+1)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: previous hash does match previous block", b.Index)

	if hash := previousBlock.Hash(); b.PreviousHash != hash {
		return fmt.Errorf("previous block hash doesn't match, got %s, exp %s", b.PreviousHash, hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: proof of work is solved", b.Index)

	if !ValidatePOW(previousBlock.ProofOfWork, b.ProofOfWork, Difficulty) {
		return fmt.Errorf("proof of work %d does not solve previous proof %d", b.ProofOfWork, previousBlock.ProofOfWork)
	}

	return b.validateTransactions(evHandler)
}

// validateTransactions checks every transfer in the block is authorized.
func (b Block) validateTransactions(evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: transactions are authorized", b.Index)

	for i, tx := range b.Transactions {
		if !(tx.Amount >= 0) || math.IsInf(tx.Amount, 0) {
			return fmt.Errorf("transaction %d: %w: %v", i, ErrInvalidAmount, tx.Amount)
		}

		if tx.trusted() {
			continue
		}

		if err := tx.Authorize(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	return nil
}

// =============================================================================

// ValidateChain checks the chain is linked by hash and proof of work and
// that every transfer carries a valid signature. The genesis block is not
// checked for a proof of work.
func ValidateChain(blocks []Block, evHandler func(v string, args ...any)) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}

	evHandler("database: ValidateChain: validate: blk[%d]: check: chain starts with a genesis block", blocks[0].Index)

	if blocks[0].Index != 1 || blocks[0].PreviousHash != GenesisPreviousHash {
		return fmt.Errorf("%w: index %d, previous hash %q", ErrNotGenesis, blocks[0].Index, blocks[0].PreviousHash)
	}

	if err := blocks[0].validateTransactions(evHandler); err != nil {
		return err
	}

	for i := 1; i < len(blocks); i++ {
		if err := blocks[i].ValidateBlock(blocks[i-1], evHandler); err != nil {
			return fmt.Errorf("blk[%d]: %w", blocks[i].Index, err)
		}
	}

	return nil
}

// =============================================================================

// ValidatePOW reports whether the proof solves the puzzle for the previous
// proof at the specified difficulty.
func ValidatePOW(previousProof uint64, proof uint64, difficulty uint) bool {
	data := strconv.AppendUint(nil, previousProof, 10)
	data = strconv.AppendUint(data, proof, 10)

	return isHashSolved(difficulty, signature.Digest(data))
}

// POW performs the work of finding the smallest proof that solves the
// puzzle for the previous proof. The search can be cancelled.
func POW(ctx context.Context, previousProof uint64, difficulty uint, ev func(v string, args ...any)) (uint64, error) {
	ev("database: POW: MINING: started: prevProof[%d]", previousProof)

	var proof uint64
	for {
		if proof%1_000_000 == 0 && proof > 0 {
			ev("database: POW: MINING: attempts[%d]", proof)
		}

		// Did we get cancelled trying to solve the problem.
		if proof%1024 == 0 && ctx.Err() != nil {
			ev("database: POW: MINING: CANCELLED")
			return 0, ctx.Err()
		}

		if ValidatePOW(previousProof, proof, difficulty) {
			ev("database: POW: MINING: SOLVED: prevProof[%d]: proof[%d]", previousProof, proof)
			return proof, nil
		}

		proof++
	}
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	const match = "0000000000000000000000000000000000000000000000000000000000000000"

	if len(hash) != len(match) || difficulty > uint(len(match)) {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}
