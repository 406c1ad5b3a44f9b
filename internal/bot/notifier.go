package bot

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/handler"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
)

// TelegramNotifier implements service.Notifier over telebot. Services talk to
// this interface so the transport stays out of the business logic.
type TelegramNotifier struct {
	bot         *tele.Bot
	adminChatID int64
}

// NewTelegramNotifier creates a new TelegramNotifier.
func NewTelegramNotifier(bot *tele.Bot, adminChatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, adminChatID: adminChatID}
}

// SendToUser delivers a plain message to the user's private chat.
func (n *TelegramNotifier) SendToUser(userID int64, text string) error {
	_, err := n.bot.Send(&tele.User{ID: userID}, text)
	return err
}

// SendToAdmin delivers a plain message to the admin chat.
func (n *TelegramNotifier) SendToAdmin(text string) error {
	_, err := n.bot.Send(&tele.Chat{ID: n.adminChatID}, text)
	return err
}

// SendApprovalRequest posts a pending request to the admin chat with
// approve/reject buttons, attaching the proof screenshot when present.
func (n *TelegramNotifier) SendApprovalRequest(req *model.ApprovalRequest, account *model.Account) error {
	markup := handler.ApprovalKeyboard(req.ID)
	caption := formatAdminRequest(req, account)

	chat := &tele.Chat{ID: n.adminChatID}
	if req.ProofFileID != nil {
		photo := &tele.Photo{
			File:    tele.File{FileID: *req.ProofFileID},
			Caption: caption,
		}
		_, err := n.bot.Send(chat, photo, markup)
		return err
	}

	_, err := n.bot.Send(chat, caption, markup)
	return err
}

func formatAdminRequest(req *model.ApprovalRequest, account *model.Account) string {
	icon := "📥 New deposit"
	if req.Kind == model.KindWithdrawal {
		icon = "📤 New withdrawal"
	}
	s := fmt.Sprintf("%s request\n━━━━━━━━━━━━━━━\n👤 @%s (%d)\n💰 Amount: %d BT Fun\n💼 Balance: %d · Deposited: %d",
		icon, account.Username, req.UserID, req.Amount, account.Balance, account.Deposited)
	if req.Address != nil {
		s += "\n🏦 Address: " + *req.Address
	}
	return s
}
