package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/service"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/session"
)

// FlowHandler drives the deposit/withdraw/support conversations. All free
// text and photos funnel through HandleText/HandlePhoto, which inspect the
// session mode once and route to exactly one step handler.
type FlowHandler struct {
	flowService    *service.FlowService
	tradeHandler   *TradeHandler
	accountHandler *AccountHandler
	depositAddress string
}

// NewFlowHandler creates a new FlowHandler.
func NewFlowHandler(flowService *service.FlowService, tradeHandler *TradeHandler, accountHandler *AccountHandler, depositAddress string) *FlowHandler {
	return &FlowHandler{
		flowService:    flowService,
		tradeHandler:   tradeHandler,
		accountHandler: accountHandler,
		depositAddress: depositAddress,
	}
}

// HandleDeposit starts the deposit flow.
func (h *FlowHandler) HandleDeposit(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.flowService.BeginDeposit(sender.ID)
	return c.Send(fmt.Sprintf(
		"📥 Deposit BT Fun\n\n"+
			"1️⃣ Send BTC to:\n`%s`\n"+
			"2️⃣ Tell me the amount you sent\n"+
			"3️⃣ Upload a payment screenshot\n\n"+
			"💬 How much did you deposit?",
		h.depositAddress),
		CancelMenu(), &tele.SendOptions{ParseMode: tele.ModeMarkdown})
}

// HandleWithdraw starts the withdrawal flow.
func (h *FlowHandler) HandleWithdraw(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if err := h.flowService.BeginWithdrawal(context.Background(), sender.ID); err != nil {
		return c.Reply(userMessage(err))
	}
	return c.Send("📤 Withdraw BT Fun\n\n💬 How much would you like to withdraw?", CancelMenu())
}

// HandleSupport starts the support flow.
func (h *FlowHandler) HandleSupport(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.flowService.BeginSupport(sender.ID)
	return c.Send("🆘 What do you need help with? Your next message goes straight to our team.", CancelMenu())
}

// HandleCancel aborts whatever flow is in progress.
func (h *FlowHandler) HandleCancel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if h.flowService.Cancel(sender.ID) {
		return c.Send("👌 Cancelled.", MainMenu())
	}
	return c.Send("Nothing to cancel.", MainMenu())
}

// HandleText is the single text dispatcher: menu buttons first, then the
// active conversation step. Unmatched text outside a flow is ignored.
func (h *FlowHandler) HandleText(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	text := strings.TrimSpace(c.Text())

	switch text {
	case BtnPlay:
		return h.tradeHandler.HandlePlay(c)
	case BtnCapital:
		return h.accountHandler.HandleCapital(c)
	case BtnDeposit:
		return h.HandleDeposit(c)
	case BtnWithdraw:
		return h.HandleWithdraw(c)
	case BtnReferrals:
		return h.accountHandler.HandleReferrals(c)
	case BtnHowItWorks:
		return h.accountHandler.HandleHowItWorks(c)
	case BtnSupport:
		return h.HandleSupport(c)
	case BtnCancel:
		return h.HandleCancel(c)
	}

	switch h.flowService.Mode(sender.ID) {
	case session.ModeAwaitingDepositAmount:
		return h.handleDepositAmount(c, sender.ID, text)
	case session.ModeAwaitingDepositProof:
		return c.Reply("📸 Please upload your payment screenshot (or tap ❌ Cancel).")
	case session.ModeAwaitingWithdrawAmount:
		return h.handleWithdrawAmount(c, sender.ID, text)
	case session.ModeAwaitingWithdrawAddress:
		return h.handleWithdrawAddress(c, sender.ID, text)
	case session.ModeAwaitingSupportMessage:
		return h.handleSupportMessage(c, sender.ID, text)
	default:
		// Idle free text is a no-op passthrough.
		return nil
	}
}

// HandlePhoto routes photo uploads: only the deposit-proof step consumes them.
func (h *FlowHandler) HandlePhoto(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if h.flowService.Mode(sender.ID) != session.ModeAwaitingDepositProof {
		return nil
	}

	photo := c.Message().Photo
	if photo == nil {
		return nil
	}

	req, err := h.flowService.SubmitDepositProof(context.Background(), sender.ID, photo.FileID)
	if err != nil {
		return c.Reply(userMessage(err))
	}

	log.Info().Str("request_id", req.ID.String()).Int64("user_id", sender.ID).Msg("Deposit proof received")
	return c.Send(fmt.Sprintf(
		"✅ Got it! Your deposit of %d BT Fun is under review.\n⏳ You'll be notified as soon as it's confirmed.",
		req.Amount), MainMenu())
}

func (h *FlowHandler) handleDepositAmount(c tele.Context, userID int64, text string) error {
	amount, err := h.flowService.SubmitDepositAmount(userID, text)
	if err != nil {
		return c.Reply(userMessage(err))
	}
	return c.Reply(fmt.Sprintf("👍 %d BT Fun. Now upload your payment screenshot.", amount))
}

func (h *FlowHandler) handleWithdrawAmount(c tele.Context, userID int64, text string) error {
	amount, err := h.flowService.SubmitWithdrawAmount(context.Background(), userID, text)
	if err != nil {
		return c.Reply(userMessage(err))
	}
	return c.Reply(fmt.Sprintf("👍 %d BT Fun. Now send your BTC wallet address.", amount))
}

func (h *FlowHandler) handleWithdrawAddress(c tele.Context, userID int64, text string) error {
	req, err := h.flowService.SubmitWithdrawAddress(context.Background(), userID, text)
	if err != nil {
		return c.Reply(userMessage(err))
	}
	return c.Send(fmt.Sprintf(
		"✅ Withdrawal request for %d BT Fun submitted.\n⏳ You'll be notified once the admin approves it.",
		req.Amount), MainMenu())
}

func (h *FlowHandler) handleSupportMessage(c tele.Context, userID int64, text string) error {
	if err := h.flowService.SubmitSupportMessage(userID, displayName(c.Sender()), text); err != nil {
		return c.Reply(userMessage(err))
	}
	return c.Send("📨 Sent! We'll get back to you shortly.", MainMenu())
}

// userMessage maps service errors to user-facing text. Validation errors
// carry their own description; everything else gets a generic apology.
func userMessage(err error) string {
	if errors.Is(err, service.ErrValidation) {
		msg := err.Error()
		if cut, ok := strings.CutPrefix(msg, service.ErrValidation.Error()+": "); ok {
			msg = cut
		}
		return "⚠️ " + msg
	}
	if errors.Is(err, service.ErrAccountNotFound) {
		return "❌ No account yet — send /start first"
	}
	log.Error().Err(err).Msg("Handler error")
	return "❌ Something went wrong, please try again later"
}
