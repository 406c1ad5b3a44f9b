package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
)

// TradeRepository handles the append-only trade history.
type TradeRepository struct {
	pool *pgxpool.Pool
}

// NewTradeRepository creates a new TradeRepository instance.
func NewTradeRepository(pool *pgxpool.Pool) *TradeRepository {
	return &TradeRepository{pool: pool}
}

// Append records a settled trade. The history is never updated or deleted.
func (r *TradeRepository) Append(ctx context.Context, id uuid.UUID, userID int64, direction model.TradeDirection, profit, balanceAfter int64) (*model.Trade, error) {
	const query = `
		INSERT INTO trades (id, user_id, direction, profit, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, user_id, direction, profit, balance_after, created_at
	`

	var t model.Trade
	err := r.pool.QueryRow(ctx, query, id, userID, direction, profit, balanceAfter).Scan(
		&t.ID,
		&t.UserID,
		&t.Direction,
		&t.Profit,
		&t.BalanceAfter,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append trade: %w", err)
	}
	return &t, nil
}

// GetRecent retrieves a user's most recent trades, newest first.
func (r *TradeRepository) GetRecent(ctx context.Context, userID int64, limit int) ([]*model.Trade, error) {
	const query = `
		SELECT id, user_id, direction, profit, balance_after, created_at
		FROM trades
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	defer rows.Close()

	var trades []*model.Trade
	for rows.Next() {
		var t model.Trade
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Direction,
			&t.Profit,
			&t.BalanceAfter,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}
