// Package model defines the data models for the BitcoinFun bot.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a player's persistent record. Balance and deposited are
// integer BT Fun units. Deposited only moves through admin-approved deposits
// and withdrawals, never through the reward engine.
type Account struct {
	TelegramID    int64      `db:"telegram_id"`
	Username      string     `db:"username"`
	Balance       int64      `db:"balance"`
	Deposited     int64      `db:"deposited"`
	ReferralCount int        `db:"referral_count"`
	ReferredBy    *int64     `db:"referred_by"`
	LastTradeAt   *time.Time `db:"last_trade_at"`
	TradesToday   int        `db:"trades_today"`
	TradeDay      *time.Time `db:"trade_day"`
	BoostUntil    *time.Time `db:"boost_until"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Activated reports whether the account has enough approved deposits to play.
func (a *Account) Activated(minDeposit int64) bool {
	return a.Deposited >= minDeposit
}

// WithdrawableLimit is the most the account may request for withdrawal.
func (a *Account) WithdrawableLimit() int64 {
	if a.Balance < a.Deposited {
		return a.Balance
	}
	return a.Deposited
}

// RequestKind distinguishes deposit from withdrawal approval requests.
type RequestKind string

const (
	KindDeposit    RequestKind = "deposit"
	KindWithdrawal RequestKind = "withdrawal"
)

// RequestStatus is the lifecycle state of an approval request.
// Terminal states (approved, rejected) are final.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// ApprovalRequest is a deposit or withdrawal waiting for an admin decision.
// It is the only path through which balance and deposited change for money
// movement; the reward engine never touches deposited.
type ApprovalRequest struct {
	ID          uuid.UUID     `db:"id"`
	Kind        RequestKind   `db:"kind"`
	UserID      int64         `db:"user_id"`
	Amount      int64         `db:"amount"`
	Address     *string       `db:"address"`
	ProofFileID *string       `db:"proof_file_id"`
	Status      RequestStatus `db:"status"`
	DecidedBy   *int64        `db:"decided_by"`
	CreatedAt   time.Time     `db:"created_at"`
	DecidedAt   *time.Time    `db:"decided_at"`
}

// Terminal reports whether the request has already been decided.
func (r *ApprovalRequest) Terminal() bool {
	return r.Status != StatusPending
}

// TradeDirection is the direction a player picked for a BTC round.
// It is cosmetic: rounds always settle with a profit.
type TradeDirection string

const (
	DirectionUp   TradeDirection = "up"
	DirectionDown TradeDirection = "down"
)

// Trade is one settled BTC round, append-only.
type Trade struct {
	ID           uuid.UUID      `db:"id"`
	UserID       int64          `db:"user_id"`
	Direction    TradeDirection `db:"direction"`
	Profit       int64          `db:"profit"`
	BalanceAfter int64          `db:"balance_after"`
	CreatedAt    time.Time      `db:"created_at"`
}
