package htlc

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a swap. CLOSED and EXPIRED are terminal;
// a swap never leaves a terminal state.
type State string

const (
	StateOpen    State = "OPEN"
	StateClosed  State = "CLOSED"
	StateExpired State = "EXPIRED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateExpired
}

// Time-lock window bounds for new swaps. The expiration supplied at open
// time must fall within [now+MinTimeLock, now+MaxTimeLock].
const (
	MinTimeLock = 3600 * time.Second
	MaxTimeLock = 172800 * time.Second
)

// Swap is the escrow record held by the registry. HashLock and Expiration
// are immutable after creation; Preimage is set exactly once on close.
type Swap struct {
	ID           int64
	Sender       string
	Receiver     string
	HashLock     []byte
	Expiration   time.Time
	InputAsset   string
	InputAmount  int64
	OutputAsset  string
	OutputAmount int64
	State        State
	Preimage     []byte
	CreatedAt    time.Time
}

// OpenRequest carries the caller-supplied parameters for a new swap.
// Output asset and amount are informational only; they describe what the
// counterpart leg on the other ledger is expected to deliver.
type OpenRequest struct {
	Sender       string
	Receiver     string
	HashLock     []byte
	Expiration   time.Time
	InputAsset   string
	InputAmount  int64
	OutputAsset  string
	OutputAmount int64
}

// Validate checks every open precondition against the given current time.
// The first violation aborts with ErrInvalidParameters; nothing is checked
// against stored state here.
func (r OpenRequest) Validate(now time.Time) error {
	if r.Sender == "" {
		return fmt.Errorf("%w: sender is required", ErrInvalidParameters)
	}
	if r.Receiver == "" {
		return fmt.Errorf("%w: receiver is required", ErrInvalidParameters)
	}
	if len(r.HashLock) != HashLockSize {
		return fmt.Errorf("%w: hash lock must be exactly %d bytes", ErrInvalidParameters, HashLockSize)
	}
	if r.InputAsset == "" {
		return fmt.Errorf("%w: input asset is required", ErrInvalidParameters)
	}
	if r.InputAmount <= 0 {
		return fmt.Errorf("%w: input amount must be positive", ErrInvalidParameters)
	}
	if r.OutputAmount < 0 {
		return fmt.Errorf("%w: output amount must not be negative", ErrInvalidParameters)
	}
	if r.Expiration.Before(now.Add(MinTimeLock)) {
		return fmt.Errorf("%w: expiration is less than %s from now", ErrInvalidParameters, MinTimeLock)
	}
	if r.Expiration.After(now.Add(MaxTimeLock)) {
		return fmt.Errorf("%w: expiration is more than %s from now", ErrInvalidParameters, MaxTimeLock)
	}
	return nil
}
