package dispatch

import (
	"errors"
	"testing"

	"github.com/psds-microservice/support-bot/internal/errs"
	"github.com/psds-microservice/support-bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplyContext(t *testing.T) {
	ticket, userID, err := ParseReplyContext("🆕 New Ticket\n\n🎫 Ticket: TKT-1001\n👤 Name: Karim\n🆔 User ID: 42")
	require.NoError(t, err)
	assert.Equal(t, "TKT-1001", ticket)
	assert.Equal(t, int64(42), userID)
}

func TestParseReplyContext_FirstMarkerWins(t *testing.T) {
	text := supportMessageText("TKT-1002", model.Identity{ID: 7, FirstName: "A"}, "Ticket: fake\nUser ID: 1")
	ticket, userID, err := ParseReplyContext(text)
	require.NoError(t, err)
	assert.Equal(t, "TKT-1002", ticket)
	assert.Equal(t, int64(7), userID)
}

func TestParseReplyContext_Errors(t *testing.T) {
	for _, text := range []string{
		"",
		"🎫 Ticket: TKT-1001",
		"🆔 User ID: 42",
		"🎫 Ticket: \n🆔 User ID: 42",
		"🎫 Ticket: TKT-1001\n🆔 User ID: @karim",
		"🎫 Ticket: TKT/1001\n🆔 User ID: 42",
	} {
		_, _, err := ParseReplyContext(text)
		assert.True(t, errors.Is(err, errs.ErrReplyContext), "text %q", text)
	}
}

func TestMarkerValue_TrimsCarriageReturn(t *testing.T) {
	v, ok := markerValue("User ID:  42 \r\nnext", markerUserID)
	assert.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "start", commandName("/start"))
	assert.Equal(t, "start", commandName("/start@support_bot payload"))
	assert.Equal(t, "", commandName("start"))
	assert.Equal(t, "help", commandName("/help"))
}

func TestAdminNotice(t *testing.T) {
	assert.Equal(t, NoticeFormatMismatch, adminNotice(errs.ErrReplyContext))
	assert.Equal(t, NoticeReplyFailed, adminNotice(errs.ErrStoreUnavailable))
}
