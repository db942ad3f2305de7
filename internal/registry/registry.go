// Package registry implements the swap state machine. Every entry point
// validates its preconditions in a fixed order and performs all state
// mutation through a single atomic store operation, so a failed check
// never leaves partial effects behind.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"go.uber.org/zap"

	"github.com/intrepidkarthi/feaws-sub001/internal/htlc"
	"github.com/intrepidkarthi/feaws-sub001/internal/store"
)

// Registry owns the swap records and the escrow ledger behind them. Time
// is read exclusively from the injected clock; expiry is evaluated lazily
// on each call, never by timers.
type Registry struct {
	store store.Store
	clock clock.Clock
	log   *zap.Logger
}

func New(s store.Store, c clock.Clock, log *zap.Logger) *Registry {
	if c == nil {
		c = clock.NewDefaultClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{store: s, clock: c, log: log}
}

// Open validates the request, debits the sender into escrow and creates
// the swap in OPEN state. The debit and the record creation happen in one
// store transaction; on any failure neither takes place.
func (r *Registry) Open(ctx context.Context, req htlc.OpenRequest) (*htlc.Swap, error) {
	now := r.clock.Now()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	swap := &htlc.Swap{
		Sender:       req.Sender,
		Receiver:     req.Receiver,
		HashLock:     req.HashLock,
		Expiration:   req.Expiration,
		InputAsset:   req.InputAsset,
		InputAmount:  req.InputAmount,
		OutputAsset:  req.OutputAsset,
		OutputAmount: req.OutputAmount,
		State:        htlc.StateOpen,
		CreatedAt:    now,
	}
	id, err := r.store.InsertSwap(ctx, swap)
	if err != nil {
		return nil, err
	}

	r.log.Info("swap opened",
		zap.Int64("id", id),
		zap.String("sender", swap.Sender),
		zap.String("receiver", swap.Receiver),
		zap.String("input_asset", swap.InputAsset),
		zap.Int64("input_amount", swap.InputAmount),
		zap.Time("expiration", swap.Expiration),
	)
	return swap, nil
}

// Close releases the escrowed funds to the receiver if the supplied
// preimage digests to the swap's hash lock before expiration.
//
// State and expiry are checked before the digest so an expired swap never
// reveals whether a preimage would have matched. HashLock, Expiration and
// the parties are immutable after creation, so only State and the passage
// of time can invalidate these checks before the write lands; the store
// re-verifies both inside the transition transaction, rejecting a raced
// resolution with ErrInvalidState and a late close with ErrSwapExpired.
func (r *Registry) Close(ctx context.Context, id int64, preimage []byte) error {
	swap, err := r.store.GetSwap(ctx, id)
	if err != nil {
		return err
	}
	if swap.State != htlc.StateOpen {
		return htlc.ErrInvalidState
	}
	if !r.clock.Now().Before(swap.Expiration) {
		return htlc.ErrSwapExpired
	}
	if len(preimage) != htlc.PreimageSize {
		return fmt.Errorf("%w: preimage must be exactly %d bytes", htlc.ErrInvalidPreimage, htlc.PreimageSize)
	}
	if !htlc.MatchesLock(preimage, swap.HashLock) {
		return htlc.ErrInvalidPreimage
	}

	if err := r.store.CloseSwap(ctx, id, preimage); err != nil {
		return err
	}

	r.log.Info("swap closed",
		zap.Int64("id", id),
		zap.String("receiver", swap.Receiver),
		zap.Int64("input_amount", swap.InputAmount),
	)
	return nil
}

// Refund returns the escrowed funds to the sender once the swap has
// expired. Only the original sender may refund.
func (r *Registry) Refund(ctx context.Context, id int64, caller string) error {
	swap, err := r.store.GetSwap(ctx, id)
	if err != nil {
		return err
	}
	if swap.State != htlc.StateOpen {
		return htlc.ErrInvalidState
	}
	if r.clock.Now().Before(swap.Expiration) {
		return htlc.ErrNotExpired
	}
	if caller != swap.Sender {
		return htlc.ErrNotSender
	}

	if err := r.store.RefundSwap(ctx, id); err != nil {
		return err
	}

	r.log.Info("swap refunded",
		zap.Int64("id", id),
		zap.String("sender", swap.Sender),
		zap.Int64("input_amount", swap.InputAmount),
	)
	return nil
}

// Get returns the swap record for audit; terminal swaps stay queryable.
func (r *Registry) Get(ctx context.Context, id int64) (*htlc.Swap, error) {
	return r.store.GetSwap(ctx, id)
}

// IsOpen reports whether the swap is still in OPEN state.
func (r *Registry) IsOpen(ctx context.Context, id int64) (bool, error) {
	swap, err := r.store.GetSwap(ctx, id)
	if err != nil {
		return false, err
	}
	return swap.State == htlc.StateOpen, nil
}

// IsExpired reports whether the swap can no longer be closed for time
// reasons: either it was refunded, or it is OPEN past its expiration.
func (r *Registry) IsExpired(ctx context.Context, id int64) (bool, error) {
	swap, err := r.store.GetSwap(ctx, id)
	if err != nil {
		return false, err
	}
	if swap.State == htlc.StateExpired {
		return true, nil
	}
	return swap.State == htlc.StateOpen && !r.clock.Now().Before(swap.Expiration), nil
}

// TimeRemaining returns how long the swap can still be closed, zero once
// expired or resolved.
func (r *Registry) TimeRemaining(ctx context.Context, id int64) (time.Duration, error) {
	swap, err := r.store.GetSwap(ctx, id)
	if err != nil {
		return 0, err
	}
	if swap.State != htlc.StateOpen {
		return 0, nil
	}
	remaining := swap.Expiration.Sub(r.clock.Now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// EscrowBalance returns the amount held in escrow for the swap.
func (r *Registry) EscrowBalance(ctx context.Context, id int64) (int64, error) {
	return r.store.EscrowBalance(ctx, id)
}

// CreditAccount funds a party balance; used by the seeder and dev faucet.
func (r *Registry) CreditAccount(ctx context.Context, party, asset string, amount int64) error {
	if party == "" || asset == "" || amount <= 0 {
		return fmt.Errorf("%w: party, asset and positive amount required", htlc.ErrInvalidParameters)
	}
	return r.store.Credit(ctx, party, asset, amount)
}

// AccountBalance returns the party's balance in the given asset.
func (r *Registry) AccountBalance(ctx context.Context, party, asset string) (int64, error) {
	return r.store.Balance(ctx, party, asset)
}
