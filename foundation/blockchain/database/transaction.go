package database

import (
	"errors"
	"fmt"
	"math"

	"github.com/ardanlabs/slowchain/foundation/blockchain/signature"
)

// RewardSender is the sender recorded on the transaction that credits a
// miner for solving a block.
const RewardSender = "0"

// MiningReward is the amount credited to the miner of every block.
const MiningReward = 12.5

// Set of errors returned when a transaction is not accepted.
var (
	ErrAuthorization = errors.New("transaction not authorized")
	ErrInvalidReward = errors.New("invalid reward transaction")
	ErrInvalidAmount = errors.New("invalid transaction amount")
)

// =============================================================================

// Tx is the transactional information between two parties.
type Tx struct {
	Sender    string  `json:"sender"`               // Address of the signer or the reward marker.
	Receiver  string  `json:"receiver"`             // Address receiving the amount.
	Amount    float64 `json:"amount"`               // Monetary value of the transfer.
	PublicKey string  `json:"public_key,omitempty"` // Hex public key of the signer.
	Signature string  `json:"signature,omitempty"`  // Hex [R|S] signature of the transfer message.
	IsReward  bool    `json:"is_reward"`            // Marks the miner reward for a block.
}

// NewTx constructs a signed transfer and checks the signature belongs
// to the sender.
func NewTx(sender string, receiver string, amount float64, publicKey string, sig string) (Tx, error) {
	tx := Tx{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		PublicKey: publicKey,
		Signature: sig,
	}

	if err := tx.Validate(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// NewRewardTx constructs the unsigned transaction that credits the
// beneficiary for mining a block.
func NewRewardTx(beneficiary string) Tx {
	return Tx{
		Sender:   RewardSender,
		Receiver: beneficiary,
		Amount:   MiningReward,
		IsReward: true,
	}
}

// Message returns the string the sender signs for this transaction.
func (tx Tx) Message() string {
	return signature.Message(tx.Sender, tx.Receiver, tx.Amount)
}

// Validate checks the transaction is well formed for submission. A reward
// must come from the reward marker and everything else must be authorized
// by the sender's key.
func (tx Tx) Validate() error {
	if !(tx.Amount >= 0) || math.IsInf(tx.Amount, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, tx.Amount)
	}

	if tx.IsReward {
		if tx.Sender != RewardSender {
			return fmt.Errorf("%w: reward sender must be %q", ErrInvalidReward, RewardSender)
		}
		return nil
	}

	if tx.Sender == RewardSender {
		return fmt.Errorf("%w: sender %q is reserved for rewards", ErrInvalidReward, RewardSender)
	}

	return tx.Authorize()
}

// Authorize verifies the public key derives the sender's address and the
// signature covers the transfer message.
func (tx Tx) Authorize() error {
	if tx.PublicKey == "" || tx.Signature == "" {
		return fmt.Errorf("%w: public key and signature are required", ErrAuthorization)
	}

	address, err := signature.Address(tx.PublicKey)
	if err != nil || address != tx.Sender {
		return fmt.Errorf("%w: public key does not match sender", ErrAuthorization)
	}

	if !signature.Verify(tx.PublicKey, tx.Signature, tx.Message()) {
		return fmt.Errorf("%w: invalid signature", ErrAuthorization)
	}

	return nil
}

// trusted reports whether the transaction is accepted inside a block
// without authorization. Rewards carry no signature.
func (tx Tx) trusted() bool {
	return tx.IsReward || tx.Sender == RewardSender
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return tx.Message()
}
