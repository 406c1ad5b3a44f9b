// Package handler provides Telegram bot command and button handlers.
package handler

import tele "gopkg.in/telebot.v3"

// Main menu button labels. The reply keyboard is the primary UI; slash
// commands exist as aliases.
const (
	BtnPlay       = "🎯 Play BTC Round"
	BtnCapital    = "💼 My Capital"
	BtnDeposit    = "📥 Deposit"
	BtnWithdraw   = "📤 Withdraw"
	BtnReferrals  = "🤝 Referrals"
	BtnHowItWorks = "ℹ️ How It Works"
	BtnSupport    = "🆘 Support"
	BtnCancel     = "❌ Cancel"
)

// MainMenu builds the persistent reply keyboard.
func MainMenu() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{
		ResizeKeyboard: true,
		ReplyKeyboard: [][]tele.ReplyButton{
			{{Text: BtnPlay}},
			{{Text: BtnCapital}, {Text: BtnReferrals}},
			{{Text: BtnDeposit}, {Text: BtnWithdraw}},
			{{Text: BtnHowItWorks}, {Text: BtnSupport}},
		},
	}
}

// CancelMenu is shown while a flow is in progress so the explicit cancel is
// one tap away at every step.
func CancelMenu() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{
		ResizeKeyboard: true,
		ReplyKeyboard: [][]tele.ReplyButton{
			{{Text: BtnCancel}},
		},
	}
}
