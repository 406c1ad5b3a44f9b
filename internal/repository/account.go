// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when a debit would take balance or
	// deposited below zero. Withdrawal approvals hit this when funds moved
	// between submission and the admin's decision.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

const accountColumns = `telegram_id, username, balance, deposited, referral_count,
		referred_by, last_trade_at, trades_today, trade_day, boost_until,
		created_at, updated_at`

// AccountRepository handles account persistence.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.TelegramID,
		&a.Username,
		&a.Balance,
		&a.Deposited,
		&a.ReferralCount,
		&a.ReferredBy,
		&a.LastTradeAt,
		&a.TradesToday,
		&a.TradeDay,
		&a.BoostUntil,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an account by Telegram ID.
// Returns ErrAccountNotFound if the account does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, telegramID int64) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE telegram_id = $1`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// CreateIfAbsent inserts a fresh account unless one already exists.
// The returned bool is true only for the call that actually inserted the row,
// which makes it safe to hang one-shot side effects (referral credit) off it
// even when /start is replayed.
func (r *AccountRepository) CreateIfAbsent(ctx context.Context, telegramID int64, username string, referredBy *int64) (*model.Account, bool, error) {
	query := `
		INSERT INTO accounts (telegram_id, username, referred_by, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (telegram_id) DO NOTHING
		RETURNING ` + accountColumns

	account, err := scanAccount(r.pool.QueryRow(ctx, query, telegramID, username, referredBy))
	if err == nil {
		return account, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create account: %w", err)
	}

	// Conflict: the account already existed.
	account, err = r.GetByID(ctx, telegramID)
	if err != nil {
		return nil, false, err
	}
	return account, false, nil
}

// UpdateUsername updates an account's username.
func (r *AccountRepository) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	const query = `
		UPDATE accounts SET username = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.pool.Exec(ctx, query, telegramID, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CreditBalance atomically adds amount to an account's balance. Deposited is
// untouched; this is the reward engine's and referral bonus's path.
func (r *AccountRepository) CreditBalance(ctx context.Context, telegramID int64, amount int64) (*model.Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.pool.QueryRow(ctx, query, telegramID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}
	return account, nil
}

// ApplyDeposit atomically credits both balance and deposited.
// Called only from the admin approval gate.
func (r *AccountRepository) ApplyDeposit(ctx context.Context, telegramID int64, amount int64) (*model.Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2, deposited = deposited + $2, updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.pool.QueryRow(ctx, query, telegramID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to apply deposit: %w", err)
	}
	return account, nil
}

// ApplyWithdrawal atomically debits both balance and deposited, re-validating
// the invariant amount <= min(balance, deposited) inside the statement.
// Returns ErrInsufficientFunds when the account no longer covers the amount.
func (r *AccountRepository) ApplyWithdrawal(ctx context.Context, telegramID int64, amount int64) (*model.Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance - $2, deposited = deposited - $2, updated_at = NOW()
		WHERE telegram_id = $1 AND balance >= $2 AND deposited >= $2
		RETURNING ` + accountColumns

	account, err := scanAccount(r.pool.QueryRow(ctx, query, telegramID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing account from an underfunded one.
			if _, getErr := r.GetByID(ctx, telegramID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to apply withdrawal: %w", err)
	}
	return account, nil
}

// CreditReferral atomically pays the referral bonus, bumps referral_count and
// opens the cooldown boost window on the referrer's account.
func (r *AccountRepository) CreditReferral(ctx context.Context, referrerID int64, bonus int64, boostUntil time.Time) (*model.Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2,
		    referral_count = referral_count + 1,
		    boost_until = $3,
		    updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.pool.QueryRow(ctx, query, referrerID, bonus, boostUntil))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to credit referral: %w", err)
	}
	return account, nil
}

// MarkTradeStarted records the trade attempt timestamp and maintains the
// per-day trade counter, resetting it when the UTC calendar day changed.
func (r *AccountRepository) MarkTradeStarted(ctx context.Context, telegramID int64, at time.Time) (*model.Account, error) {
	utc := at.UTC()
	day := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)

	query := `
		UPDATE accounts
		SET last_trade_at = $2,
		    trades_today = CASE WHEN trade_day = $3 THEN trades_today + 1 ELSE 1 END,
		    trade_day = $3,
		    updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.pool.QueryRow(ctx, query, telegramID, at, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to mark trade started: %w", err)
	}
	return account, nil
}

// ListTradeReady returns activated accounts whose cooldown elapsed before the
// cutoff. Used by the re-engagement ping job.
func (r *AccountRepository) ListTradeReady(ctx context.Context, minDeposit int64, cutoff time.Time, limit int) ([]*model.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE deposited >= $1
		  AND last_trade_at IS NOT NULL
		  AND last_trade_at < $2
		ORDER BY last_trade_at ASC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, minDeposit, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trade-ready accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// Exists checks if an account with the given Telegram ID exists.
func (r *AccountRepository) Exists(ctx context.Context, telegramID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE telegram_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, telegramID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}
