package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	postgres_migrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lightningnetwork/lnd/clock"

	"github.com/intrepidkarthi/feaws-sub001/internal/htlc"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore is the production Store backed by a Postgres database.
// All multi-row operations run inside a single transaction so the escrow
// ledger can never drift from the swap records.
type PostgresStore struct {
	pool  *pgxpool.Pool
	clock clock.Clock
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to the database, applies any pending schema
// migrations from the embedded file system and returns a ready store. A
// nil clock falls back to wall time.
func NewPostgresStore(ctx context.Context, dsn string, c clock.Clock) (*PostgresStore, error) {
	if c == nil {
		c = clock.NewDefaultClock()
	}
	if err := applyMigrations(dsn); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, clock: c}, nil
}

func applyMigrations(dsn string) error {
	// Migrations run over database/sql because that is what the migrate
	// driver expects; the pool itself stays on native pgx.
	rawDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer rawDB.Close()

	driver, err := postgres_migrate.WithInstance(rawDB, &postgres_migrate.Config{})
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Credit(ctx context.Context, party, asset string, amount int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (party, asset, balance) VALUES ($1, $2, $3)
		 ON CONFLICT (party, asset) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance`,
		party, asset, amount,
	)
	return err
}

func (s *PostgresStore) Balance(ctx context.Context, party, asset string) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx,
		"SELECT balance FROM accounts WHERE party = $1 AND asset = $2",
		party, asset,
	).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

// InsertSwap debits the sender, creates the swap row and moves the input
// amount onto the swap's escrow account, all in one transaction.
func (s *PostgresStore) InsertSwap(ctx context.Context, swap *htlc.Swap) (int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return 0, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx,
		"SELECT balance FROM accounts WHERE party = $1 AND asset = $2 FOR UPDATE",
		swap.Sender, swap.InputAsset,
	).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, htlc.ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("lock acquisition failed: %w", err)
	}
	if balance < swap.InputAmount {
		return 0, htlc.ErrInsufficientFunds
	}

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO swaps (sender, receiver, hash_lock, expiration, input_asset, input_amount,
		                    output_asset, output_amount, state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		swap.Sender, swap.Receiver, swap.HashLock, swap.Expiration, swap.InputAsset,
		swap.InputAmount, swap.OutputAsset, swap.OutputAmount, string(htlc.StateOpen), swap.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("swap insert failed: %w", err)
	}

	escrow := EscrowParty(id)
	_, err = tx.Exec(ctx,
		"UPDATE accounts SET balance = balance - $1 WHERE party = $2 AND asset = $3",
		swap.InputAmount, swap.Sender, swap.InputAsset,
	)
	if err != nil {
		return 0, err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO accounts (party, asset, balance) VALUES ($1, $2, $3)
		 ON CONFLICT (party, asset) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance`,
		escrow, swap.InputAsset, swap.InputAmount,
	)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO ledger_entries (swap_id, party, asset, delta)
		 VALUES ($1, $2, $3, $4), ($1, $5, $3, $6)`,
		id, swap.Sender, swap.InputAsset, -swap.InputAmount, escrow, swap.InputAmount,
	)
	if err != nil {
		return 0, fmt.Errorf("ledger entry failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("tx commit failed: %w", err)
	}

	swap.ID = id
	swap.State = htlc.StateOpen
	return id, nil
}

func (s *PostgresStore) GetSwap(ctx context.Context, id int64) (*htlc.Swap, error) {
	var swap htlc.Swap
	var state string
	err := s.pool.QueryRow(ctx,
		`SELECT id, sender, receiver, hash_lock, expiration, input_asset, input_amount,
		        output_asset, output_amount, state, preimage, created_at
		 FROM swaps WHERE id = $1`, id,
	).Scan(&swap.ID, &swap.Sender, &swap.Receiver, &swap.HashLock, &swap.Expiration,
		&swap.InputAsset, &swap.InputAmount, &swap.OutputAsset, &swap.OutputAmount,
		&state, &swap.Preimage, &swap.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, htlc.ErrSwapNotFound
	}
	if err != nil {
		return nil, err
	}
	swap.State = htlc.State(state)
	return &swap, nil
}

func (s *PostgresStore) CloseSwap(ctx context.Context, id int64, preimage []byte) error {
	return s.resolveSwap(ctx, id, htlc.StateClosed, preimage)
}

func (s *PostgresStore) RefundSwap(ctx context.Context, id int64) error {
	return s.resolveSwap(ctx, id, htlc.StateExpired, nil)
}

// resolveSwap performs the terminal transition. The conditional UPDATE on
// state = OPEN is what guarantees mutual exclusion of close and refund;
// for a close the expiry bound is part of the same condition, so it holds
// at commit time and not just when the caller validated.
func (s *PostgresStore) resolveSwap(ctx context.Context, id int64, terminal htlc.State, preimage []byte) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	now := s.clock.Now()
	transition := `UPDATE swaps SET state = $2, preimage = $3 WHERE id = $1 AND state = $4
		 RETURNING sender, receiver, input_asset, input_amount`
	args := []interface{}{id, string(terminal), preimage, string(htlc.StateOpen)}
	if terminal == htlc.StateClosed {
		transition = `UPDATE swaps SET state = $2, preimage = $3
		 WHERE id = $1 AND state = $4 AND expiration > $5
		 RETURNING sender, receiver, input_asset, input_amount`
		args = append(args, now)
	}

	var sender, receiver, asset string
	var amount int64
	err = tx.QueryRow(ctx, transition, args...).Scan(&sender, &receiver, &asset, &amount)
	if err == pgx.ErrNoRows {
		var state string
		scanErr := tx.QueryRow(ctx,
			"SELECT state FROM swaps WHERE id = $1", id,
		).Scan(&state)
		if scanErr == pgx.ErrNoRows {
			return htlc.ErrSwapNotFound
		}
		if scanErr != nil {
			return scanErr
		}
		if htlc.State(state) != htlc.StateOpen {
			return htlc.ErrInvalidState
		}
		return htlc.ErrSwapExpired
	}
	if err != nil {
		return fmt.Errorf("swap transition failed: %w", err)
	}

	payee := receiver
	if terminal == htlc.StateExpired {
		payee = sender
	}
	escrow := EscrowParty(id)

	_, err = tx.Exec(ctx,
		"UPDATE accounts SET balance = balance - $1 WHERE party = $2 AND asset = $3",
		amount, escrow, asset,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO accounts (party, asset, balance) VALUES ($1, $2, $3)
		 ON CONFLICT (party, asset) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance`,
		payee, asset, amount,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO ledger_entries (swap_id, party, asset, delta)
		 VALUES ($1, $2, $3, $4), ($1, $5, $3, $6)`,
		id, escrow, asset, -amount, payee, amount,
	)
	if err != nil {
		return fmt.Errorf("ledger entry failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) EscrowBalance(ctx context.Context, id int64) (int64, error) {
	swap, err := s.GetSwap(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.Balance(ctx, EscrowParty(id), swap.InputAsset)
}
