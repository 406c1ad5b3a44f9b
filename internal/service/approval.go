package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/pkg/lock"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/repository"
)

// ApprovalService is the admin approval gate: the single place where balances
// change for deposits and withdrawals.
type ApprovalService struct {
	accounts  AccountStore
	approvals ApprovalStore
	userLock  *lock.UserLock
	adminID   int64
	notifier  Notifier
}

// NewApprovalService creates a new ApprovalService instance.
func NewApprovalService(accounts AccountStore, approvals ApprovalStore, userLock *lock.UserLock, adminID int64) *ApprovalService {
	return &ApprovalService{
		accounts:  accounts,
		approvals: approvals,
		userLock:  userLock,
		adminID:   adminID,
	}
}

// SetNotifier wires the outbound messaging implementation.
func (s *ApprovalService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Approve finalizes a pending request and applies the balance mutation.
// Deposits credit balance and deposited; withdrawals debit both, re-validated
// against the account's current state rather than the stale session values.
// A request that is already terminal yields ErrAlreadyFinalized and changes
// nothing.
func (s *ApprovalService) Approve(ctx context.Context, requestID uuid.UUID, approverID int64) (*model.ApprovalRequest, error) {
	if approverID != s.adminID {
		log.Warn().Int64("user_id", approverID).Str("request_id", requestID.String()).Msg("Non-admin attempted approval")
		return nil, ErrAuthorization
	}

	req, err := s.approvals.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// Serialize against trades, settles and the sibling decision on the same
	// account. The store's conditional finalize is the hard guarantee; the
	// lock makes apply+finalize a single step relative to other mutations.
	s.userLock.Lock(req.UserID)
	defer s.userLock.Unlock(req.UserID)

	req, err = s.approvals.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Terminal() {
		return nil, ErrAlreadyFinalized
	}

	switch req.Kind {
	case model.KindDeposit:
		return s.approveDeposit(ctx, req, approverID)
	case model.KindWithdrawal:
		return s.approveWithdrawal(ctx, req, approverID)
	default:
		return nil, fmt.Errorf("unknown request kind %q", req.Kind)
	}
}

func (s *ApprovalService) approveDeposit(ctx context.Context, req *model.ApprovalRequest, approverID int64) (*model.ApprovalRequest, error) {
	// Credit first, finalize second: a failed credit leaves the request
	// pending so the admin can retry once the store recovers.
	account, err := s.accounts.ApplyDeposit(ctx, req.UserID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit approved deposit: %w", err)
	}

	final, err := s.approvals.Finalize(ctx, req.ID, model.StatusApproved, approverID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrRequestFinalized) {
			// Unreachable while the user lock is held; reverse the credit so a
			// broken store cannot double-credit.
			_, _ = s.accounts.ApplyWithdrawal(ctx, req.UserID, req.Amount)
			return nil, ErrAlreadyFinalized
		}
		return nil, err
	}

	log.Info().
		Str("request_id", req.ID.String()).
		Int64("user_id", req.UserID).
		Int64("amount", req.Amount).
		Int64("balance", account.Balance).
		Msg("Deposit approved")

	s.notifyUser(req.UserID, fmt.Sprintf(
		"✅ Your deposit of %d BT Fun was confirmed!\n💼 Capital: %d BT Fun\n🎯 You can now play BTC rounds",
		req.Amount, account.Balance))
	return final, nil
}

func (s *ApprovalService) approveWithdrawal(ctx context.Context, req *model.ApprovalRequest, approverID int64) (*model.ApprovalRequest, error) {
	account, err := s.accounts.ApplyWithdrawal(ctx, req.UserID, req.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			// Funds moved since submission. The request still terminates
			// exactly once, as a rejection.
			final, finErr := s.approvals.Finalize(ctx, req.ID, model.StatusRejected, approverID, time.Now())
			if finErr != nil {
				if errors.Is(finErr, repository.ErrRequestFinalized) {
					return nil, ErrAlreadyFinalized
				}
				return nil, finErr
			}
			log.Warn().
				Str("request_id", req.ID.String()).
				Int64("user_id", req.UserID).
				Int64("amount", req.Amount).
				Msg("Withdrawal no longer covered, rejected")
			s.notifyUser(req.UserID, fmt.Sprintf(
				"❌ Your withdrawal of %d BT Fun was declined: your withdrawable balance no longer covers it.",
				req.Amount))
			return final, repository.ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to debit approved withdrawal: %w", err)
	}

	final, err := s.approvals.Finalize(ctx, req.ID, model.StatusApproved, approverID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrRequestFinalized) {
			// Unreachable while the user lock is held; restore the debit so a
			// broken store cannot double-charge.
			_, _ = s.accounts.ApplyDeposit(ctx, req.UserID, req.Amount)
			return nil, ErrAlreadyFinalized
		}
		return nil, err
	}

	log.Info().
		Str("request_id", req.ID.String()).
		Int64("user_id", req.UserID).
		Int64("amount", req.Amount).
		Int64("balance", account.Balance).
		Msg("Withdrawal approved")

	s.notifyUser(req.UserID, fmt.Sprintf(
		"✅ Your withdrawal of %d BT Fun was approved and is on its way!\n💼 Capital: %d BT Fun",
		req.Amount, account.Balance))
	return final, nil
}

// Reject finalizes a pending request without touching balances.
func (s *ApprovalService) Reject(ctx context.Context, requestID uuid.UUID, approverID int64) (*model.ApprovalRequest, error) {
	if approverID != s.adminID {
		log.Warn().Int64("user_id", approverID).Str("request_id", requestID.String()).Msg("Non-admin attempted rejection")
		return nil, ErrAuthorization
	}

	req, err := s.approvals.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.userLock.Lock(req.UserID)
	defer s.userLock.Unlock(req.UserID)

	final, err := s.approvals.Finalize(ctx, requestID, model.StatusRejected, approverID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrRequestFinalized) {
			return nil, ErrAlreadyFinalized
		}
		return nil, err
	}

	log.Info().
		Str("request_id", requestID.String()).
		Int64("user_id", final.UserID).
		Msg("Request rejected")

	verb := "deposit"
	if final.Kind == model.KindWithdrawal {
		verb = "withdrawal"
	}
	s.notifyUser(final.UserID, fmt.Sprintf("❌ Your %s of %d BT Fun was rejected by the admin.", verb, final.Amount))
	return final, nil
}

// ListPending returns open requests for the admin overview.
func (s *ApprovalService) ListPending(ctx context.Context, limit int) ([]*model.ApprovalRequest, error) {
	return s.approvals.ListPending(ctx, limit)
}

func (s *ApprovalService) notifyUser(userID int64, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendToUser(userID, text); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to notify user of decision")
	}
}
