package store

import (
	"context"
	"fmt"

	"github.com/intrepidkarthi/feaws-sub001/internal/htlc"
)

// Store persists swap records and the escrow ledger. Every mutating method
// is atomic: the balance movement and the record change commit together or
// not at all. CloseSwap and RefundSwap only transition a swap that is
// still OPEN, so of two racing resolutions exactly one succeeds and the
// other observes htlc.ErrInvalidState.
type Store interface {
	// Credit adds amount to the (party, asset) balance, creating the
	// account on first use.
	Credit(ctx context.Context, party, asset string, amount int64) error

	// Balance returns the current balance, zero for unknown accounts.
	Balance(ctx context.Context, party, asset string) (int64, error)

	// InsertSwap debits the sender and creates the swap record in one
	// step, assigning the id on the passed record. Fails with
	// htlc.ErrInsufficientFunds without any state change if the sender
	// balance does not cover the input amount.
	InsertSwap(ctx context.Context, s *htlc.Swap) (int64, error)

	// GetSwap returns the swap or htlc.ErrSwapNotFound.
	GetSwap(ctx context.Context, id int64) (*htlc.Swap, error)

	// CloseSwap transitions OPEN -> CLOSED, records the preimage and
	// pays the escrowed amount out to the receiver. The expiry bound is
	// re-verified against the store's clock inside the same transaction
	// as the transition, so a close can never commit at or after
	// expiration no matter when it was validated.
	CloseSwap(ctx context.Context, id int64, preimage []byte) error

	// RefundSwap transitions OPEN -> EXPIRED and returns the escrowed
	// amount to the sender.
	RefundSwap(ctx context.Context, id int64) error

	// EscrowBalance returns the amount currently held in escrow for the
	// swap: the input amount while OPEN, zero after resolution.
	EscrowBalance(ctx context.Context, id int64) (int64, error)

	Close() error
}

// EscrowParty is the ledger account that holds a swap's escrowed funds
// between open and resolution. Deriving it from the id keeps every escrow
// position auditable through the ordinary balance queries.
func EscrowParty(id int64) string {
	return fmt.Sprintf("swap:%d", id)
}
