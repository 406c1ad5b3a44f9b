package handler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
)

func TestParseApprovalCallback(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		name       string
		data       string
		wantAction string
		wantErr    bool
	}{
		{"approve", "approve|" + id.String(), CallbackApprove, false},
		{"reject", "reject|" + id.String(), CallbackReject, false},
		{"telebot form feed prefix", "\fapprove|" + id.String(), CallbackApprove, false},
		{"unknown action", "delete|" + id.String(), "", true},
		{"missing separator", "approve" + id.String(), "", true},
		{"bad uuid", "approve|not-a-uuid", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, gotID, err := parseApprovalCallback(tc.data)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantAction, action)
			assert.Equal(t, id, gotID)
		})
	}
}

func TestApprovalKeyboardRoundTrip(t *testing.T) {
	id := uuid.New()
	markup := ApprovalKeyboard(id)

	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)

	// The button payloads parse back to the same request.
	for i, wantAction := range []string{CallbackApprove, CallbackReject} {
		action, gotID, err := parseApprovalCallback(markup.InlineKeyboard[0][i].Data)
		require.NoError(t, err)
		assert.Equal(t, wantAction, action)
		assert.Equal(t, id, gotID)
	}
}

func TestFormatRequest(t *testing.T) {
	addr := "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"
	withdrawal := &model.ApprovalRequest{
		ID:        uuid.New(),
		Kind:      model.KindWithdrawal,
		UserID:    42,
		Amount:    60,
		Address:   &addr,
		CreatedAt: time.Date(2025, time.March, 5, 14, 30, 0, 0, time.UTC),
	}

	s := formatRequest(withdrawal)
	assert.Contains(t, s, "withdrawal")
	assert.Contains(t, s, "60 BT Fun")
	assert.Contains(t, s, "User 42")
	assert.Contains(t, s, addr)
	assert.Contains(t, s, withdrawal.ID.String())

	deposit := &model.ApprovalRequest{
		ID:     uuid.New(),
		Kind:   model.KindDeposit,
		UserID: 42,
		Amount: 50,
	}
	s = formatRequest(deposit)
	assert.Contains(t, s, "deposit")
	assert.NotContains(t, s, "🏦")
}
