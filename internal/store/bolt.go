package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/lightningnetwork/lnd/clock"
	"go.etcd.io/bbolt"

	"github.com/intrepidkarthi/feaws-sub001/internal/htlc"
)

var (
	swapsBucket    = []byte("swaps")
	accountsBucket = []byte("accounts")
)

// BoltStore is a single-file Store for standalone deployments and tests.
// bbolt serializes write transactions, which gives the same one-writer
// discipline the Postgres store gets from its conditional transitions.
type BoltStore struct {
	db    *bbolt.DB
	clock clock.Clock
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the database file at path. A nil clock
// falls back to wall time.
func NewBoltStore(path string, c clock.Clock) (*BoltStore, error) {
	if c == nil {
		c = clock.NewDefaultClock()
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(swapsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(accountsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, clock: c}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Credit(_ context.Context, party, asset string, amount int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return adjustBalance(tx, party, asset, amount)
	})
}

func (s *BoltStore) Balance(_ context.Context, party, asset string) (int64, error) {
	var balance int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		balance = readBalance(tx, party, asset)
		return nil
	})
	return balance, err
}

func (s *BoltStore) InsertSwap(_ context.Context, swap *htlc.Swap) (int64, error) {
	var id int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if readBalance(tx, swap.Sender, swap.InputAsset) < swap.InputAmount {
			return htlc.ErrInsufficientFunds
		}

		b := tx.Bucket(swapsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = int64(seq)
		swap.ID = id
		swap.State = htlc.StateOpen

		if err := adjustBalance(tx, swap.Sender, swap.InputAsset, -swap.InputAmount); err != nil {
			return err
		}
		if err := adjustBalance(tx, EscrowParty(id), swap.InputAsset, swap.InputAmount); err != nil {
			return err
		}
		return putSwap(b, swap)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *BoltStore) GetSwap(_ context.Context, id int64) (*htlc.Swap, error) {
	var swap *htlc.Swap
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		swap, err = getSwap(tx.Bucket(swapsBucket), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return swap, nil
}

func (s *BoltStore) CloseSwap(_ context.Context, id int64, preimage []byte) error {
	return s.resolveSwap(id, htlc.StateClosed, preimage)
}

func (s *BoltStore) RefundSwap(_ context.Context, id int64) error {
	return s.resolveSwap(id, htlc.StateExpired, nil)
}

func (s *BoltStore) resolveSwap(id int64, terminal htlc.State, preimage []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(swapsBucket)
		swap, err := getSwap(b, id)
		if err != nil {
			return err
		}
		if swap.State != htlc.StateOpen {
			return htlc.ErrInvalidState
		}
		// The expiry bound must hold at commit time, not only when the
		// caller validated; both run inside this write transaction.
		if terminal == htlc.StateClosed && !s.clock.Now().Before(swap.Expiration) {
			return htlc.ErrSwapExpired
		}

		payee := swap.Receiver
		if terminal == htlc.StateExpired {
			payee = swap.Sender
		}
		if err := adjustBalance(tx, EscrowParty(id), swap.InputAsset, -swap.InputAmount); err != nil {
			return err
		}
		if err := adjustBalance(tx, payee, swap.InputAsset, swap.InputAmount); err != nil {
			return err
		}

		swap.State = terminal
		swap.Preimage = preimage
		return putSwap(b, swap)
	})
}

func (s *BoltStore) EscrowBalance(ctx context.Context, id int64) (int64, error) {
	swap, err := s.GetSwap(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.Balance(ctx, EscrowParty(id), swap.InputAsset)
}

func putSwap(b *bbolt.Bucket, swap *htlc.Swap) error {
	jData, err := json.Marshal(swap)
	if err != nil {
		return err
	}
	return b.Put(itob(swap.ID), jData)
}

func getSwap(b *bbolt.Bucket, id int64) (*htlc.Swap, error) {
	jData := b.Get(itob(id))
	if jData == nil {
		return nil, htlc.ErrSwapNotFound
	}
	swap := &htlc.Swap{}
	if err := json.Unmarshal(jData, swap); err != nil {
		return nil, err
	}
	return swap, nil
}

func accountKey(party, asset string) []byte {
	return []byte(party + "\x00" + asset)
}

func readBalance(tx *bbolt.Tx, party, asset string) int64 {
	v := tx.Bucket(accountsBucket).Get(accountKey(party, asset))
	if v == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(v))
}

func adjustBalance(tx *bbolt.Tx, party, asset string, delta int64) error {
	next := readBalance(tx, party, asset) + delta
	if next < 0 {
		return fmt.Errorf("balance of %s would go negative", party)
	}
	return tx.Bucket(accountsBucket).Put(accountKey(party, asset), itob(next))
}

func itob(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}
