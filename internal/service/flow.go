package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/session"
)

// FlowService is the per-user conversation state machine. It interprets text
// and photo messages according to the user's current session mode and either
// advances the flow, reports a validation error (mode unchanged), or completes
// the flow by creating a pending approval request.
type FlowService struct {
	sessions      *session.Store
	accounts      AccountStore
	approvals     ApprovalStore
	minDeposit    int64
	minWithdrawal int64
	notifier      Notifier
}

// NewFlowService creates a new FlowService instance.
func NewFlowService(sessions *session.Store, accounts AccountStore, approvals ApprovalStore, minDeposit, minWithdrawal int64) *FlowService {
	return &FlowService{
		sessions:      sessions,
		accounts:      accounts,
		approvals:     approvals,
		minDeposit:    minDeposit,
		minWithdrawal: minWithdrawal,
	}
}

// SetNotifier wires the outbound messaging implementation.
func (s *FlowService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Mode returns the user's current conversation mode.
func (s *FlowService) Mode(userID int64) session.Mode {
	return s.sessions.Get(userID).Mode
}

// BeginDeposit moves the user into the deposit flow.
func (s *FlowService) BeginDeposit(userID int64) {
	s.sessions.Clear(userID)
	s.sessions.SetMode(userID, session.ModeAwaitingDepositAmount)
}

// SubmitDepositAmount parses the deposit amount. On validation failure the
// user stays in AwaitingDepositAmount.
func (s *FlowService) SubmitDepositAmount(userID int64, rawText string) (int64, error) {
	st := s.sessions.Get(userID)
	if st.Mode != session.ModeAwaitingDepositAmount {
		return 0, validationf("no deposit in progress")
	}

	amount, err := ParseAmount(rawText)
	if err != nil {
		return 0, err
	}
	if amount < s.minDeposit {
		return 0, validationf("minimum deposit is %d", s.minDeposit)
	}

	s.sessions.SetAmount(userID, amount, session.ModeAwaitingDepositProof)
	return amount, nil
}

// SubmitDepositProof completes the deposit flow: it files a pending approval
// request carrying the proof screenshot and clears the session.
func (s *FlowService) SubmitDepositProof(ctx context.Context, userID int64, proofFileID string) (*model.ApprovalRequest, error) {
	st := s.sessions.Get(userID)
	if st.Mode != session.ModeAwaitingDepositProof {
		return nil, validationf("no deposit awaiting proof")
	}
	if proofFileID == "" {
		return nil, validationf("a payment screenshot is required")
	}

	req, err := s.approvals.Create(ctx, model.KindDeposit, userID, st.PendingAmount, nil, &proofFileID)
	if err != nil {
		return nil, fmt.Errorf("failed to create deposit request: %w", err)
	}
	s.sessions.Clear(userID)

	log.Info().
		Str("request_id", req.ID.String()).
		Int64("user_id", userID).
		Int64("amount", req.Amount).
		Msg("Deposit request filed")

	s.notifyAdmin(ctx, req)
	return req, nil
}

// BeginWithdrawal moves the user into the withdrawal flow.
// Precondition: balance covers the minimum withdrawal.
func (s *FlowService) BeginWithdrawal(ctx context.Context, userID int64) error {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return ErrAccountNotFound
	}
	if account.Balance < s.minWithdrawal {
		return validationf("you need at least %d BT Fun to withdraw, your balance is %d", s.minWithdrawal, account.Balance)
	}

	s.sessions.Clear(userID)
	s.sessions.SetMode(userID, session.ModeAwaitingWithdrawAmount)
	return nil
}

// SubmitWithdrawAmount validates the amount against the minimum and the
// withdrawable limit min(balance, deposited). Reward profits on top of the
// deposited total cannot be withdrawn.
func (s *FlowService) SubmitWithdrawAmount(ctx context.Context, userID int64, rawText string) (int64, error) {
	st := s.sessions.Get(userID)
	if st.Mode != session.ModeAwaitingWithdrawAmount {
		return 0, validationf("no withdrawal in progress")
	}

	amount, err := ParseAmount(rawText)
	if err != nil {
		return 0, err
	}
	if amount < s.minWithdrawal {
		return 0, validationf("minimum withdrawal is %d", s.minWithdrawal)
	}

	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return 0, ErrAccountNotFound
	}
	if limit := account.WithdrawableLimit(); amount > limit {
		return 0, validationf("you can withdraw at most %d BT Fun", limit)
	}

	s.sessions.SetAmount(userID, amount, session.ModeAwaitingWithdrawAddress)
	return amount, nil
}

// SubmitWithdrawAddress completes the withdrawal flow with the payout address
// and files a pending approval request.
func (s *FlowService) SubmitWithdrawAddress(ctx context.Context, userID int64, rawText string) (*model.ApprovalRequest, error) {
	st := s.sessions.Get(userID)
	if st.Mode != session.ModeAwaitingWithdrawAddress {
		return nil, validationf("no withdrawal awaiting an address")
	}

	address := strings.TrimSpace(rawText)
	if len(address) < 10 {
		return nil, validationf("that doesn't look like a wallet address")
	}

	req, err := s.approvals.Create(ctx, model.KindWithdrawal, userID, st.PendingAmount, &address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	s.sessions.Clear(userID)

	log.Info().
		Str("request_id", req.ID.String()).
		Int64("user_id", userID).
		Int64("amount", req.Amount).
		Msg("Withdrawal request filed")

	s.notifyAdmin(ctx, req)
	return req, nil
}

// BeginSupport moves the user into the support flow; the next text message is
// forwarded to the admin.
func (s *FlowService) BeginSupport(userID int64) {
	s.sessions.Clear(userID)
	s.sessions.SetMode(userID, session.ModeAwaitingSupportMessage)
}

// SubmitSupportMessage forwards the user's message to the admin chat and
// clears the session.
func (s *FlowService) SubmitSupportMessage(userID int64, username, text string) error {
	st := s.sessions.Get(userID)
	if st.Mode != session.ModeAwaitingSupportMessage {
		return validationf("no support conversation in progress")
	}
	if strings.TrimSpace(text) == "" {
		return validationf("please type your message")
	}

	s.sessions.Clear(userID)
	if s.notifier != nil {
		return s.notifier.SendToAdmin(fmt.Sprintf("🆘 Support message from @%s (%d):\n\n%s", username, userID, text))
	}
	return nil
}

// Cancel forces the user back to Idle, dropping any captured values. It is
// reachable from every step of every flow.
func (s *FlowService) Cancel(userID int64) bool {
	active := s.sessions.Get(userID).Mode != session.ModeIdle
	s.sessions.Clear(userID)
	return active
}

func (s *FlowService) notifyAdmin(ctx context.Context, req *model.ApprovalRequest) {
	if s.notifier == nil {
		return
	}
	account, err := s.accounts.GetByID(ctx, req.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", req.UserID).Msg("Failed to load account for admin notification")
		account = &model.Account{TelegramID: req.UserID}
	}
	if err := s.notifier.SendApprovalRequest(req, account); err != nil {
		log.Error().Err(err).Str("request_id", req.ID.String()).Msg("Failed to notify admin")
	}
}

// ParseAmount parses a whole BT Fun amount from user text. Decimals, signs and
// currency suffixes are rejected: amounts are positive integers.
func ParseAmount(rawText string) (int64, error) {
	text := strings.TrimSpace(rawText)
	text = strings.TrimPrefix(text, "$")
	if text == "" {
		return 0, validationf("please enter an amount")
	}

	amount, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, validationf("amount is out of range")
		}
		return 0, validationf("%q is not a whole number", rawText)
	}
	if amount <= 0 {
		return 0, validationf("amount must be positive")
	}
	return amount, nil
}
