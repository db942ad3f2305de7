package api

import (
	"encoding/hex"
	"time"

	"github.com/intrepidkarthi/feaws-sub001/internal/htlc"
)

// CreditAccountRequest funds a party balance (dev faucet / seeder).
type CreditAccountRequest struct {
	Party  string `json:"party"`
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
}

// OpenSwapRequest is the payload for opening a swap. HashLock is the
// hex-encoded sha256 digest of the counterpart secret.
type OpenSwapRequest struct {
	Sender       string    `json:"sender"`
	Receiver     string    `json:"receiver"`
	HashLock     string    `json:"hash_lock"`
	Expiration   time.Time `json:"expiration"`
	InputAsset   string    `json:"input_asset"`
	InputAmount  int64     `json:"input_amount"`
	OutputAsset  string    `json:"output_asset"`
	OutputAmount int64     `json:"output_amount"`
}

// CloseSwapRequest reveals the hex-encoded preimage.
type CloseSwapRequest struct {
	Preimage string `json:"preimage"`
}

// RefundSwapRequest names the caller reclaiming the escrow.
type RefundSwapRequest struct {
	Sender string `json:"sender"`
}

// SwapResponse is the canonical wire form of a swap record plus the
// derived read-only views.
type SwapResponse struct {
	ID                   int64     `json:"id"`
	Sender               string    `json:"sender"`
	Receiver             string    `json:"receiver"`
	HashLock             string    `json:"hash_lock"`
	Expiration           time.Time `json:"expiration"`
	InputAsset           string    `json:"input_asset"`
	InputAmount          int64     `json:"input_amount"`
	OutputAsset          string    `json:"output_asset"`
	OutputAmount         int64     `json:"output_amount"`
	State                string    `json:"state"`
	Preimage             string    `json:"preimage,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	Open                 bool      `json:"open"`
	Expired              bool      `json:"expired"`
	TimeRemainingSeconds int64     `json:"time_remaining_seconds"`
}

// BalanceResponse reports a single (party, asset) balance.
type BalanceResponse struct {
	Party   string `json:"party"`
	Asset   string `json:"asset"`
	Balance int64  `json:"balance"`
}

// EscrowResponse reports the escrow held for one swap.
type EscrowResponse struct {
	SwapID int64  `json:"swap_id"`
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
}

func newSwapResponse(s *htlc.Swap, open, expired bool, remaining time.Duration) SwapResponse {
	return SwapResponse{
		ID:                   s.ID,
		Sender:               s.Sender,
		Receiver:             s.Receiver,
		HashLock:             hex.EncodeToString(s.HashLock),
		Expiration:           s.Expiration,
		InputAsset:           s.InputAsset,
		InputAmount:          s.InputAmount,
		OutputAsset:          s.OutputAsset,
		OutputAmount:         s.OutputAmount,
		State:                string(s.State),
		Preimage:             hex.EncodeToString(s.Preimage),
		CreatedAt:            s.CreatedAt,
		Open:                 open,
		Expired:              expired,
		TimeRemainingSeconds: int64(remaining / time.Second),
	}
}
