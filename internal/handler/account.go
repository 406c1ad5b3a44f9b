package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/service"
)

// AccountHandler handles registration and account views.
type AccountHandler struct {
	accountService *service.AccountService
	tradeService   *service.TradeService
	botUsername    string
	minDeposit     int64
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService, tradeService *service.TradeService, botUsername string, minDeposit int64) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		tradeService:   tradeService,
		botUsername:    botUsername,
		minDeposit:     minDeposit,
	}
}

// HandleStart handles /start, optionally carrying a referrer id payload
// (deep-link: t.me/<bot>?start=<referrer_id>).
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	var referrerID int64
	if payload := strings.TrimSpace(c.Message().Payload); payload != "" {
		referrerID, _ = strconv.ParseInt(payload, 10, 64)
	}

	account, created, err := h.accountService.Register(ctx, sender.ID, displayName(sender), referrerID)
	if err != nil {
		return c.Reply("❌ Could not set up your account, please try again later")
	}

	if created {
		return c.Send(
			"🚀 Welcome to BitcoinFun 💎\n\n"+
				"Where smart moves meet daily rewards.\n\n"+
				"🔥 No charts\n"+
				"🔥 No stress\n"+
				"🔥 Just clean BTC rounds powered by a smart engine\n\n"+
				"💼 Start with your capital\n"+
				"🎯 Play 1 BTC round every 12 hours\n"+
				"📈 Watch your numbers grow — smoothly, consistently\n\n"+
				"👇 Tap below & unlock your first BTC round",
			MainMenu())
	}

	return c.Send(fmt.Sprintf("👋 Welcome back!\n💼 Capital: %d BT Fun", account.Balance), MainMenu())
}

// HandleCapital shows balance, deposited total, trades today and recent
// round history.
func (h *AccountHandler) HandleCapital(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	account, err := h.accountService.Get(ctx, sender.ID)
	if err != nil {
		return c.Reply("❌ No account yet — send /start first")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💼 Your Capital\n━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "💰 Balance: %d BT Fun\n", account.Balance)
	fmt.Fprintf(&b, "📥 Deposited: %d BT Fun\n", account.Deposited)
	fmt.Fprintf(&b, "🎯 Rounds today: %d\n", account.TradesToday)
	if !account.Activated(h.minDeposit) {
		fmt.Fprintf(&b, "\n🔒 Deposit %d BT Fun to unlock BTC rounds", h.minDeposit)
	}

	trades, err := h.tradeService.History(ctx, sender.ID, 5)
	if err == nil && len(trades) > 0 {
		b.WriteString("\n\n📈 Recent rounds\n")
		for _, t := range trades {
			arrow := "📈"
			if t.Direction == model.DirectionDown {
				arrow = "📉"
			}
			fmt.Fprintf(&b, "%s %s  +%d → %d\n", arrow, t.CreatedAt.Format("Jan 02 15:04"), t.Profit, t.BalanceAfter)
		}
	}

	return c.Send(b.String(), MainMenu())
}

// HandleReferrals shows the user's invite link and referral count.
func (h *AccountHandler) HandleReferrals(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	account, err := h.accountService.Get(ctx, sender.ID)
	if err != nil {
		return c.Reply("❌ No account yet — send /start first")
	}

	link := fmt.Sprintf("https://t.me/%s?start=%d", h.botUsername, sender.ID)
	return c.Send(fmt.Sprintf(
		"🤝 Invite a friend & get *$5 BT Fun*\n⚡ Plus a 24h halved round cooldown\n\n"+
			"🔗 Your link:\n%s\n\n👥 Friends joined: %d",
		link, account.ReferralCount),
		&tele.SendOptions{ParseMode: tele.ModeMarkdown})
}

// HandleHowItWorks sends the static explainer.
func (h *AccountHandler) HandleHowItWorks(c tele.Context) error {
	return c.Send(
		"📊 *How BitcoinFun Works*\n\n" +
			"• 1 BTC round every 12 hours\n" +
			"• Each round adds +2.5%\n" +
			"• Capital compounds\n" +
			"• No losses\n\n" +
			"🎮 Just play & enjoy!",
		&tele.SendOptions{ParseMode: tele.ModeMarkdown})
}

func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
