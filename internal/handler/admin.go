package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/service"
)

// Callback data prefixes for the admin approve/reject buttons.
const (
	CallbackApprove = "approve"
	CallbackReject  = "reject"
)

// AdminHandler handles the approval gate's Telegram surface.
type AdminHandler struct {
	approvalService *service.ApprovalService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(approvalService *service.ApprovalService) *AdminHandler {
	return &AdminHandler{approvalService: approvalService}
}

// HandleApprovalCallback handles approve|<id> and reject|<id> button taps.
// Authorization is enforced by the service; a non-admin tap is denied
// silently apart from a toast.
func (h *AdminHandler) HandleApprovalCallback(c tele.Context) error {
	callback := c.Callback()
	sender := c.Sender()
	if callback == nil || sender == nil {
		return nil
	}

	action, id, err := parseApprovalCallback(callback.Data)
	if err != nil {
		log.Debug().Str("data", callback.Data).Msg("Unparseable approval callback")
		return c.Respond(&tele.CallbackResponse{Text: "Unknown action"})
	}

	ctx := context.Background()
	var req *model.ApprovalRequest
	switch action {
	case CallbackApprove:
		req, err = h.approvalService.Approve(ctx, id, sender.ID)
	case CallbackReject:
		req, err = h.approvalService.Reject(ctx, id, sender.ID)
	}

	switch {
	case err == nil:
		// Decided; fall through to edit the admin message.
	case errors.Is(err, service.ErrAuthorization):
		return c.Respond(&tele.CallbackResponse{Text: "⛔ Admins only"})
	case errors.Is(err, service.ErrAlreadyFinalized):
		return c.Respond(&tele.CallbackResponse{Text: "Already decided"})
	case req != nil:
		// Withdrawal auto-rejected at re-validation: the decision stands,
		// surface the reason to the admin.
		_ = c.Respond(&tele.CallbackResponse{Text: "Rejected: funds no longer cover it"})
	default:
		log.Error().Err(err).Str("request_id", id.String()).Msg("Approval decision failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Failed, try again"})
	}

	if req != nil {
		mark := "✅ Approved"
		if req.Status == model.StatusRejected {
			mark = "❌ Rejected"
		}
		_ = c.Edit(fmt.Sprintf("%s\n\n%s", formatRequest(req), mark))
	}
	if err == nil {
		return c.Respond(&tele.CallbackResponse{Text: "Done"})
	}
	return nil
}

// HandlePending handles the admin /pending command.
func (h *AdminHandler) HandlePending(c tele.Context) error {
	requests, err := h.approvalService.ListPending(context.Background(), 20)
	if err != nil {
		return c.Reply("❌ Could not load pending requests")
	}
	if len(requests) == 0 {
		return c.Reply("📭 No pending requests")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Pending requests (%d)\n━━━━━━━━━━━━━━━\n", len(requests))
	for _, req := range requests {
		fmt.Fprintf(&b, "%s\n\n", formatRequest(req))
	}
	return c.Reply(b.String())
}

func parseApprovalCallback(data string) (action string, id uuid.UUID, err error) {
	// Telebot may prefix callback data with \f.
	data = strings.TrimPrefix(data, "\f")

	action, rawID, ok := strings.Cut(data, "|")
	if !ok || (action != CallbackApprove && action != CallbackReject) {
		return "", uuid.Nil, fmt.Errorf("malformed callback data %q", data)
	}
	id, err = uuid.Parse(rawID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("malformed request id in callback: %w", err)
	}
	return action, id, nil
}

func formatRequest(req *model.ApprovalRequest) string {
	icon := "📥"
	if req.Kind == model.KindWithdrawal {
		icon = "📤"
	}
	s := fmt.Sprintf("%s %s · %d BT Fun\n👤 User %d\n🕒 %s\n🆔 %s",
		icon, req.Kind, req.Amount, req.UserID,
		req.CreatedAt.Format("Jan 02 15:04"), req.ID)
	if req.Address != nil {
		s += fmt.Sprintf("\n🏦 %s", *req.Address)
	}
	return s
}

// ApprovalKeyboard builds the inline approve/reject buttons for a request.
func ApprovalKeyboard(id uuid.UUID) *tele.ReplyMarkup {
	return &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{{
			{Text: "✅ Approve", Data: CallbackApprove + "|" + id.String()},
			{Text: "❌ Reject", Data: CallbackReject + "|" + id.String()},
		}},
	}
}
