package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
)

// AccountStore is the persistence contract the services need for accounts.
// Implemented by repository.AccountRepository; tests supply in-memory fakes.
// All credit/debit methods must have atomic increment semantics.
type AccountStore interface {
	GetByID(ctx context.Context, telegramID int64) (*model.Account, error)
	CreateIfAbsent(ctx context.Context, telegramID int64, username string, referredBy *int64) (*model.Account, bool, error)
	UpdateUsername(ctx context.Context, telegramID int64, username string) error
	CreditBalance(ctx context.Context, telegramID int64, amount int64) (*model.Account, error)
	ApplyDeposit(ctx context.Context, telegramID int64, amount int64) (*model.Account, error)
	ApplyWithdrawal(ctx context.Context, telegramID int64, amount int64) (*model.Account, error)
	CreditReferral(ctx context.Context, referrerID int64, bonus int64, boostUntil time.Time) (*model.Account, error)
	MarkTradeStarted(ctx context.Context, telegramID int64, at time.Time) (*model.Account, error)
	ListTradeReady(ctx context.Context, minDeposit int64, cutoff time.Time, limit int) ([]*model.Account, error)
}

// ApprovalStore persists pending deposit/withdrawal requests. Finalize must be
// conditional on pending status so that a terminal request can never be
// finalized twice.
type ApprovalStore interface {
	Create(ctx context.Context, kind model.RequestKind, userID, amount int64, address, proofFileID *string) (*model.ApprovalRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error)
	Finalize(ctx context.Context, id uuid.UUID, status model.RequestStatus, decidedBy int64, decidedAt time.Time) (*model.ApprovalRequest, error)
	ListPending(ctx context.Context, limit int) ([]*model.ApprovalRequest, error)
}

// TradeStore persists the append-only trade history.
type TradeStore interface {
	Append(ctx context.Context, id uuid.UUID, userID int64, direction model.TradeDirection, profit, balanceAfter int64) (*model.Trade, error)
	GetRecent(ctx context.Context, userID int64, limit int) ([]*model.Trade, error)
}

// Notifier is the outbound messaging contract. The bot package implements it
// over Telegram; services never see the transport.
type Notifier interface {
	// SendToUser delivers a plain message to a user's private chat.
	SendToUser(userID int64, text string) error
	// SendApprovalRequest delivers a new pending request to the admin chat,
	// including the proof (if any) and approve/reject affordances.
	SendApprovalRequest(req *model.ApprovalRequest, account *model.Account) error
	// SendToAdmin delivers a plain message to the admin chat.
	SendToAdmin(text string) error
}

// SettleScheduler schedules the deferred trade settlement. Keys are
// userID+tradeID; tasks are cancellable only by process shutdown.
type SettleScheduler interface {
	ScheduleOnce(key string, delay time.Duration, task func())
}
