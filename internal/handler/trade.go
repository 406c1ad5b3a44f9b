package handler

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/service"
)

// TradeHandler handles BTC round play.
type TradeHandler struct {
	tradeService *service.TradeService
	minDeposit   int64
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeService *service.TradeService, minDeposit int64) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
		minDeposit:   minDeposit,
	}
}

// HandlePlay starts a round. The round direction alternates presentation
// only; the engine treats both the same.
func (h *TradeHandler) HandlePlay(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if h.tradeService.PendingSettle(sender.ID) {
		return c.Reply("⏳ Your round is still processing, hold tight!")
	}

	_, err := h.tradeService.AttemptTrade(context.Background(), sender.ID, model.DirectionUp)
	if err != nil {
		var cooldownErr *service.CooldownError
		switch {
		case errors.As(err, &cooldownErr):
			return c.Reply(fmt.Sprintf("⏰ Next round available in %s", formatRemaining(cooldownErr)))
		case errors.Is(err, service.ErrNotActivated):
			return c.Reply(fmt.Sprintf(
				"🔒 BTC rounds unlock after your first deposit of %d BT Fun.\n📥 Tap Deposit to get started!",
				h.minDeposit))
		case errors.Is(err, service.ErrAccountNotFound):
			return c.Reply("❌ No account yet — send /start first")
		default:
			return c.Reply("❌ Could not start your round, please try again later")
		}
	}

	return c.Reply("🎯 BTC round started!\n⚙️ The engine is working... results in ~20 seconds 📊")
}

func formatRemaining(err *service.CooldownError) string {
	d := err.Remaining
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
