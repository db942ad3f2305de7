package htlc

import "errors"

// The full failure taxonomy of the registry. Every operation aborts with
// exactly one of these (possibly wrapped with detail) and leaves no
// partial state behind.
var (
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrInvalidState      = errors.New("swap is not open")
	ErrInvalidPreimage   = errors.New("preimage does not match hash lock")
	ErrSwapExpired       = errors.New("swap is expired")
	ErrNotExpired        = errors.New("swap is not expired yet")
	ErrNotSender         = errors.New("caller is not the swap sender")
	ErrSwapNotFound      = errors.New("swap not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
