package private

import (
	"github.com/ardanlabs/slowchain/business/sys/validate"
	"github.com/ardanlabs/slowchain/foundation/blockchain/database"
	"github.com/ardanlabs/slowchain/foundation/blockchain/peer"
)

// Register is the set of node addresses an operator or peer announces.
type Register struct {
	Nodes []string `json:"nodes" validate:"required,min=1,dive,required"`
}

// Validate checks the data in the model is considered clean.
func (reg Register) Validate() error {
	return validate.Check(reg)
}

type registered struct {
	Message string   `json:"message"`
	Nodes   []string `json:"nodes"`
}

type nodes struct {
	Nodes []string `json:"nodes"`
	Count int      `json:"count"`
}

type resolved struct {
	Message  string           `json:"message"`
	Replaced bool             `json:"replaced"`
	Chain    []database.Block `json:"chain"`
}

func hosts(peers []peer.Peer) []string {
	out := make([]string, len(peers))
	for i, pr := range peers {
		out[i] = pr.Host
	}
	return out
}
