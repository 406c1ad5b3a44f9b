package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/pkg/lock"
)

// TradeService is the reward engine: a cooldown-gated pseudo-trade that
// credits a percentage profit after a fixed "processing" delay. Payout policy
// is percentage-of-balance, applied uniformly: profit = balance*bps/10000,
// floor 1 unit. The engine never touches the deposited counter.
type TradeService struct {
	accounts    AccountStore
	trades      TradeStore
	userLock    *lock.UserLock
	scheduler   SettleScheduler
	minDeposit  int64
	cooldown    time.Duration
	settleDelay time.Duration
	profitBps   int64
	notifier    Notifier

	mu      sync.Mutex
	pending map[int64]uuid.UUID // userID -> in-flight trade id
}

// NewTradeService creates a new TradeService instance.
func NewTradeService(
	accounts AccountStore,
	trades TradeStore,
	userLock *lock.UserLock,
	scheduler SettleScheduler,
	minDeposit int64,
	cooldown, settleDelay time.Duration,
	profitBps int64,
) *TradeService {
	return &TradeService{
		accounts:    accounts,
		trades:      trades,
		userLock:    userLock,
		scheduler:   scheduler,
		minDeposit:  minDeposit,
		cooldown:    cooldown,
		settleDelay: settleDelay,
		profitBps:   profitBps,
		pending:     make(map[int64]uuid.UUID),
	}
}

// SetNotifier wires the outbound messaging implementation.
func (s *TradeService) SetNotifier(n Notifier) {
	s.notifier = n
}

// EffectiveCooldown returns the cooldown that applies to the account now: the
// configured interval, halved while a referral boost window is open.
func (s *TradeService) EffectiveCooldown(account *model.Account, now time.Time) time.Duration {
	if account.BoostUntil != nil && account.BoostUntil.After(now) {
		return s.cooldown / 2
	}
	return s.cooldown
}

// AttemptTrade starts a BTC round for the user. It fails with ErrNotActivated
// below the deposit threshold and with *CooldownError inside the cooldown
// window. On success last_trade_at is recorded immediately, before the delay,
// so a concurrent second attempt cannot race the settlement; the credit itself
// is deferred to the scheduler.
func (s *TradeService) AttemptTrade(ctx context.Context, userID int64, direction model.TradeDirection) (uuid.UUID, error) {
	s.userLock.Lock(userID)
	defer s.userLock.Unlock(userID)

	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return uuid.Nil, ErrAccountNotFound
	}

	if !account.Activated(s.minDeposit) {
		return uuid.Nil, ErrNotActivated
	}

	now := time.Now()
	if account.LastTradeAt != nil {
		cooldown := s.EffectiveCooldown(account, now)
		if elapsed := now.Sub(*account.LastTradeAt); elapsed < cooldown {
			return uuid.Nil, &CooldownError{Remaining: cooldown - elapsed}
		}
	}

	if _, err := s.accounts.MarkTradeStarted(ctx, userID, now); err != nil {
		return uuid.Nil, fmt.Errorf("failed to record trade start: %w", err)
	}

	tradeID := uuid.New()
	s.mu.Lock()
	s.pending[userID] = tradeID
	s.mu.Unlock()

	log.Info().
		Str("trade_id", tradeID.String()).
		Int64("user_id", userID).
		Str("direction", string(direction)).
		Msg("BTC round started")

	key := fmt.Sprintf("%d:%s", userID, tradeID)
	s.scheduler.ScheduleOnce(key, s.settleDelay, func() {
		s.settle(context.Background(), userID, tradeID, direction)
	})

	return tradeID, nil
}

// settle fires once per trade. It re-reads the account at commit time so that
// deposits approved during the delay window are included in the percentage
// base rather than lost to a stale snapshot.
func (s *TradeService) settle(ctx context.Context, userID int64, tradeID uuid.UUID, direction model.TradeDirection) {
	s.userLock.Lock(userID)
	defer s.userLock.Unlock(userID)

	s.mu.Lock()
	current, ok := s.pending[userID]
	s.mu.Unlock()
	if !ok || current != tradeID {
		log.Warn().Str("trade_id", tradeID.String()).Int64("user_id", userID).Msg("Stale settle task dropped")
		return
	}

	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Settle failed to load account, retrying")
		s.reschedule(userID, tradeID, direction)
		return
	}

	profit := ComputeProfit(account.Balance, s.profitBps)
	account, err = s.accounts.CreditBalance(ctx, userID, profit)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Settle failed to credit profit, retrying")
		s.reschedule(userID, tradeID, direction)
		return
	}

	// The round stays pending until the credit lands so a failed settle is
	// visible through PendingSettle and gets retried instead of vanishing.
	s.mu.Lock()
	delete(s.pending, userID)
	s.mu.Unlock()

	if _, err := s.trades.Append(ctx, tradeID, userID, direction, profit, account.Balance); err != nil {
		log.Error().Err(err).Str("trade_id", tradeID.String()).Msg("Failed to append trade history")
	}

	log.Info().
		Str("trade_id", tradeID.String()).
		Int64("user_id", userID).
		Int64("profit", profit).
		Int64("balance", account.Balance).
		Msg("BTC round settled")

	if s.notifier != nil {
		arrow := "📈"
		if direction == model.DirectionDown {
			arrow = "📉"
		}
		_ = s.notifier.SendToUser(userID, fmt.Sprintf(
			"%s BTC round closed!\n💰 +%d BT Fun profit\n💼 Capital: %d BT Fun",
			arrow, profit, account.Balance))
	}
}

// reschedule queues another settle attempt for the same trade. The scheduler
// frees the key before running a task, so reusing it here is accepted.
func (s *TradeService) reschedule(userID int64, tradeID uuid.UUID, direction model.TradeDirection) {
	key := fmt.Sprintf("%d:%s", userID, tradeID)
	s.scheduler.ScheduleOnce(key, s.settleDelay, func() {
		s.settle(context.Background(), userID, tradeID, direction)
	})
}

// PendingSettle reports whether the user has an unsettled round in flight.
func (s *TradeService) PendingSettle(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[userID]
	return ok
}

// History returns the user's most recent settled rounds.
func (s *TradeService) History(ctx context.Context, userID int64, limit int) ([]*model.Trade, error) {
	return s.trades.GetRecent(ctx, userID, limit)
}

// ComputeProfit applies the payout policy: bps of the current balance,
// rounded down, never less than one unit.
func ComputeProfit(balance, bps int64) int64 {
	profit := balance * bps / 10000
	if profit < 1 {
		return 1
	}
	return profit
}
