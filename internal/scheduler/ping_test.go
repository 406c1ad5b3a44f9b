package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/service"
)

// stubAccounts serves a fixed trade-ready list; the embedded interface covers
// the methods the ping job never calls.
type stubAccounts struct {
	service.AccountStore
	ready []*model.Account
	err   error
}

func (s *stubAccounts) ListTradeReady(_ context.Context, _ int64, _ time.Time, _ int) ([]*model.Account, error) {
	return s.ready, s.err
}

type stubNotifier struct {
	service.Notifier
	sent map[int64]int
	fail map[int64]bool
}

func (s *stubNotifier) SendToUser(userID int64, _ string) error {
	if s.fail[userID] {
		return errors.New("blocked the bot")
	}
	s.sent[userID]++
	return nil
}

func newPingFixture(ready []*model.Account) (*PingJob, *stubNotifier) {
	notifier := &stubNotifier{sent: make(map[int64]int), fail: make(map[int64]bool)}
	job := NewPingJob(&stubAccounts{ready: ready}, notifier, 35, 12*time.Hour)
	return job, notifier
}

func TestPingNudgesReadyAccounts(t *testing.T) {
	job, notifier := newPingFixture([]*model.Account{
		{TelegramID: 1, Balance: 100},
		{TelegramID: 2, Balance: 200},
	})

	job.Run()

	assert.Equal(t, 1, notifier.sent[1])
	assert.Equal(t, 1, notifier.sent[2])
}

func TestPingOncePerCooldown(t *testing.T) {
	job, notifier := newPingFixture([]*model.Account{{TelegramID: 1, Balance: 100}})

	// Sweeps can run far more often than the cooldown; the user still gets a
	// single nudge.
	job.Run()
	job.Run()
	job.Run()

	assert.Equal(t, 1, notifier.sent[1])
}

func TestPingRetriesAfterDeliveryFailure(t *testing.T) {
	job, notifier := newPingFixture([]*model.Account{{TelegramID: 1, Balance: 100}})
	notifier.fail[1] = true

	job.Run()
	assert.Zero(t, notifier.sent[1])

	// Delivery recovers; a failed ping did not consume the per-cooldown slot.
	notifier.fail[1] = false
	job.Run()
	assert.Equal(t, 1, notifier.sent[1])
}

func TestPingSurvivesStoreError(t *testing.T) {
	notifier := &stubNotifier{sent: make(map[int64]int), fail: make(map[int64]bool)}
	job := NewPingJob(&stubAccounts{err: errors.New("db down")}, notifier, 35, 12*time.Hour)

	job.Run()
	assert.Empty(t, notifier.sent)
}
