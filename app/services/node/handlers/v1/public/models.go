package public

import (
	"github.com/ardanlabs/slowchain/business/sys/validate"
	"github.com/ardanlabs/slowchain/foundation/blockchain/database"
)

// NewTx is what a client submits to transfer an amount.
type NewTx struct {
	Sender    string   `json:"sender" validate:"required"`
	Recipient string   `json:"recipient" validate:"required_without=Receiver"`
	Receiver  string   `json:"receiver,omitempty" validate:"required_without=Recipient"`
	Amount    *float64 `json:"amount" validate:"required"`
	PublicKey string   `json:"public_key,omitempty"`
	Signature string   `json:"signature,omitempty"`
}

// Validate checks the data in the model is considered clean.
func (ntx NewTx) Validate() error {
	return validate.Check(ntx)
}

func (ntx NewTx) toTx() database.Tx {
	receiver := ntx.Recipient
	if receiver == "" {
		receiver = ntx.Receiver
	}

	return database.Tx{
		Sender:    ntx.Sender,
		Receiver:  receiver,
		Amount:    *ntx.Amount,
		PublicKey: ntx.PublicKey,
		Signature: ntx.Signature,
	}
}

type submitted struct {
	Message    string        `json:"message"`
	BlockIndex uint64        `json:"block_index"`
	Pending    []database.Tx `json:"pending_transactions"`
}

type pending struct {
	Pending []database.Tx `json:"pending_transactions"`
	Count   int           `json:"count"`
}

type mined struct {
	Message      string        `json:"message"`
	NodeID       string        `json:"node_id"`
	Index        uint64        `json:"index"`
	TimeStamp    uint64        `json:"timestamp"`
	Transactions []database.Tx `json:"transactions"`
	ProofOfWork  uint64        `json:"proof_of_work"`
	PreviousHash string        `json:"previous_hash"`
	LenOfChain   int           `json:"len_of_chain"`
}

type chain struct {
	Chain  []database.Block `json:"chain"`
	Length int              `json:"length"`
}

type validity struct {
	Message string `json:"message"`
	Valid   bool   `json:"valid"`
}
