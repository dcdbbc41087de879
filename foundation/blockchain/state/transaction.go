package state

import (
	"github.com/ardanlabs/slowchain/foundation/blockchain/database"
)

// SubmitTransaction validates the transaction and adds it to the mempool.
// The index of the block expected to hold the transaction is returned.
func (s *State) SubmitTransaction(tx database.Tx) (uint64, error) {
	if err := tx.Validate(); err != nil {
		s.evHandler("state: SubmitTransaction: rejected: tx[%s]: %s", tx, err)
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.mempool.Add(tx)
	s.evHandler("state: SubmitTransaction: accepted: tx[%s]: pending[%d]", tx, n)

	return uint64(s.db.Length()) + 1, nil
}
