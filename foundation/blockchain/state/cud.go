package state

import (
	"github.com/ardanlabs/slowchain/foundation/blockchain/peer"
)

// AddKnownPeers normalizes every address and then adds the nodes to the set
// of known peers. Nothing is added if any address is invalid. The peers
// that were not already known are returned.
func (s *State) AddKnownPeers(addresses ...string) ([]peer.Peer, error) {
	peers := make([]peer.Peer, 0, len(addresses))
	for _, address := range addresses {
		pr, err := peer.Parse(address)
		if err != nil {
			return nil, err
		}
		peers = append(peers, pr)
	}

	var added []peer.Peer
	for _, pr := range peers {
		if s.knownPeers.Add(pr) {
			added = append(added, pr)
		}
		s.evHandler("state: AddKnownPeers: peer[%s]: known[%d]", pr, s.knownPeers.Len())
	}

	return added, nil
}
