package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/service"
)

const pingBatchSize = 200

// PingJob nudges activated players whose cooldown has elapsed to come back
// for their next round.
type PingJob struct {
	accounts   service.AccountStore
	notifier   service.Notifier
	minDeposit int64
	cooldown   time.Duration

	lastPinged map[int64]time.Time
}

// NewPingJob creates a new PingJob instance.
func NewPingJob(accounts service.AccountStore, notifier service.Notifier, minDeposit int64, cooldown time.Duration) *PingJob {
	return &PingJob{
		accounts:   accounts,
		notifier:   notifier,
		minDeposit: minDeposit,
		cooldown:   cooldown,
		lastPinged: make(map[int64]time.Time),
	}
}

// Run performs one ping sweep. Each user is nudged at most once per cooldown
// interval, however often the sweep runs.
func (j *PingJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	cutoff := now.Add(-j.cooldown)

	accounts, err := j.accounts.ListTradeReady(ctx, j.minDeposit, cutoff, pingBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Re-engagement sweep failed")
		return
	}

	sent := 0
	for _, account := range accounts {
		if last, ok := j.lastPinged[account.TelegramID]; ok && now.Sub(last) < j.cooldown {
			continue
		}
		err := j.notifier.SendToUser(account.TelegramID, fmt.Sprintf(
			"⏰ Your next BTC round is ready!\n💼 Capital: %d BT Fun\n🎯 Tap Play BTC Round to keep the streak going",
			account.Balance))
		if err != nil {
			log.Debug().Err(err).Int64("user_id", account.TelegramID).Msg("Re-engagement ping not delivered")
			continue
		}
		j.lastPinged[account.TelegramID] = now
		sent++
	}

	if sent > 0 {
		log.Info().Int("sent", sent).Msg("Re-engagement pings sent")
	}
}
