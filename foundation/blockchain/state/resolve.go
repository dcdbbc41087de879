package state

import (
	"context"

	"github.com/ardanlabs/slowchain/foundation/blockchain/database"
)

// Resolve runs one round of conflict resolution against the known peers.
// Peers are queried without holding the lock. The local chain is replaced
// only when the winning chain is still longer than the local chain at the
// time of the swap. The resulting chain is always returned.
func (s *State) Resolve(ctx context.Context) (bool, []database.Block) {
	s.evHandler("state: Resolve: started")
	defer s.evHandler("state: Resolve: completed")

	result := s.resolver.Resolve(ctx, s.RetrieveKnownPeers(), s.RetrieveChain())
	if !result.Replaced {
		return false, result.Chain
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(result.Chain) <= s.db.Length() {
		s.evHandler("state: Resolve: local chain grew to len[%d], keeping it", s.db.Length())
		return false, s.db.Copy()
	}

	if err := s.db.Replace(result.Chain); err != nil {
		s.evHandler("state: Resolve: ERROR: %s", err)
		return false, s.db.Copy()
	}

	s.evHandler("state: Resolve: chain replaced: peer[%s]: len[%d]", result.Peer, len(result.Chain))

	return true, s.db.Copy()
}
