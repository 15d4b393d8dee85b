package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpy/paths"
	"github.com/psds-microservice/support-bot/internal/dispatch"
	"github.com/psds-microservice/support-bot/internal/handler"
	"github.com/psds-microservice/support-bot/internal/service"
	"github.com/psds-microservice/support-bot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID int64 = 1000

type recordingSender struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (s *recordingSender) SendText(_ context.Context, chatID int64, text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = make(map[int64][]string)
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return len(s.sent[chatID]), nil
}

func newTestServer() (http.Handler, *store.Memory, *recordingSender) {
	gin.SetMode(gin.TestMode)
	st := store.NewMemory()
	sender := &recordingSender{}
	d := dispatch.New(dispatch.Deps{
		Tickets:  service.NewTicketService(st, nil),
		Messages: service.NewMessageLog(st, nil),
		Relays:   service.NewRelayIndex(st),
		Sender:   sender,
	}, adminID)
	return New(handler.NewWebhookHandler(d)), st, sender
}

const userUpdate = `{
  "update_id": 100,
  "message": {
    "message_id": 5,
    "date": 1700000000,
    "from": {"id": 42, "is_bot": false, "first_name": "Karim", "username": "karim"},
    "chat": {"id": 42, "type": "private", "first_name": "Karim"},
    "text": "hello"
  }
}`

func do(h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_UserMessageForwardedToAdminOnly(t *testing.T) {
	h, _, sender := newTestServer()
	rec := do(h, http.MethodPost, "/", "application/json", userUpdate)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	require.Len(t, sender.sent[adminID], 1)
	assert.Contains(t, sender.sent[adminID][0], "🎫 Ticket: TKT-1001")
	assert.Contains(t, sender.sent[adminID][0], "🆔 User ID: 42")
	assert.Empty(t, sender.sent[42])
}

func TestWebhook_PlainTextForbiddenNoWrites(t *testing.T) {
	h, st, sender := newTestServer()
	rec := do(h, http.MethodPost, "/", "text/plain", userUpdate)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", rec.Body.String())
	assert.Zero(t, st.Writes())
	assert.Empty(t, sender.sent)
}

func TestWebhook_AdminReplyRelayed(t *testing.T) {
	h, st, sender := newTestServer()
	body := `{
  "update_id": 101,
  "message": {
    "message_id": 9,
    "date": 1700000000,
    "from": {"id": 1000, "is_bot": false, "first_name": "Admin"},
    "chat": {"id": 1000, "type": "private"},
    "text": "Fixed now",
    "reply_to_message": {
      "message_id": 8,
      "date": 1700000000,
      "chat": {"id": 1000, "type": "private"},
      "text": "🆕 New Ticket\n\n🎫 Ticket: TKT-1001\n👤 Name: Karim\n🆔 User ID: 42"
    }
  }
}`
	rec := do(h, http.MethodPost, "/", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Fixed now"}, sender.sent[42])

	n, err := st.Count(context.Background(), "messages/TKT-1001")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLivenessAndHealth(t *testing.T) {
	h, _, _ := newTestServer()

	rec := do(h, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, handler.LivenessText, rec.Body.String())

	rec = do(h, http.MethodGet, paths.PathHealth, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = do(h, http.MethodGet, paths.PathReady, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsAndOpenAPI(t *testing.T) {
	h, _, _ := newTestServer()
	do(h, http.MethodPost, "/", "application/json", userUpdate)

	rec := do(h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "support_bot_updates_total")

	rec = do(h, http.MethodGet, paths.PathSwagger+"/openapi.json", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"openapi"`)
}
