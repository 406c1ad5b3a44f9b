package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/repository"
)

// AccountService handles registration, referral crediting and account reads.
type AccountService struct {
	accounts      AccountStore
	referralBonus int64
	boostDuration time.Duration
	notifier      Notifier
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(accounts AccountStore, referralBonus int64, boostDuration time.Duration) *AccountService {
	return &AccountService{
		accounts:      accounts,
		referralBonus: referralBonus,
		boostDuration: boostDuration,
	}
}

// SetNotifier wires the outbound messaging implementation. Called once after
// the bot is constructed.
func (s *AccountService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Register ensures an account exists for the user, crediting the referrer
// exactly once if this is a genuinely first registration. The store's
// CreateIfAbsent decides first-ness atomically, so a replayed /start (or two
// racing ones) can never double-credit the referrer.
func (s *AccountService) Register(ctx context.Context, telegramID int64, username string, referrerID int64) (*model.Account, bool, error) {
	var referredBy *int64
	if referrerID != 0 && referrerID != telegramID {
		referredBy = &referrerID
	}

	account, created, err := s.accounts.CreateIfAbsent(ctx, telegramID, username, referredBy)
	if err != nil {
		return nil, false, fmt.Errorf("failed to register account: %w", err)
	}

	if !created {
		// Keep the stored username current; non-fatal on failure.
		if username != "" && account.Username != username {
			if err := s.accounts.UpdateUsername(ctx, telegramID, username); err != nil {
				log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to refresh username")
			} else {
				account.Username = username
			}
		}
		return account, false, nil
	}

	if referredBy != nil {
		s.creditReferrer(ctx, *referredBy, telegramID)
	}

	return account, true, nil
}

func (s *AccountService) creditReferrer(ctx context.Context, referrerID, newUserID int64) {
	boostUntil := time.Now().Add(s.boostDuration)
	_, err := s.accounts.CreditReferral(ctx, referrerID, s.referralBonus, boostUntil)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Unknown referrer code: the new account stands, nobody is paid.
			log.Debug().Int64("referrer_id", referrerID).Msg("Referral code does not match any account")
			return
		}
		log.Error().Err(err).Int64("referrer_id", referrerID).Msg("Failed to credit referral bonus")
		return
	}

	log.Info().
		Int64("referrer_id", referrerID).
		Int64("new_user_id", newUserID).
		Int64("bonus", s.referralBonus).
		Msg("Referral bonus credited")

	if s.notifier != nil {
		_ = s.notifier.SendToUser(referrerID, fmt.Sprintf(
			"🤝 A friend just joined with your link!\n💰 +%d BT Fun added to your capital\n⚡ Your round cooldown is halved for the next %s",
			s.referralBonus, formatDuration(s.boostDuration)))
	}
}

// Get retrieves an account, mapping the store's not-found error.
func (s *AccountService) Get(ctx context.Context, telegramID int64) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}
