package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/psds-microservice/support-bot/internal/dispatch"
	"github.com/psds-microservice/support-bot/internal/metrics"
	"github.com/rs/zerolog/log"
)

// LivenessText — ответ GET /.
const LivenessText = "Bot is running!"

// Dispatcher обрабатывает одно обновление Telegram.
type Dispatcher interface {
	Handle(ctx context.Context, update tgbotapi.Update) (dispatch.Kind, error)
}

type WebhookHandler struct {
	dispatcher Dispatcher
}

func NewWebhookHandler(d Dispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: d}
}

// Receive принимает ровно одно обновление в JSON и обрабатывает его до ответа.
// Ошибки обработки только логируются: Telegram получает 200, чтобы не повторять доставку.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if c.ContentType() != "application/json" {
		metrics.UpdatesTotal.WithLabelValues("rejected").Inc()
		c.String(http.StatusForbidden, "Forbidden")
		return
	}
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		metrics.UpdatesTotal.WithLabelValues("rejected").Inc()
		log.Warn().Err(err).Msg("webhook: invalid update body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}
	kind, err := h.dispatcher.Handle(c.Request.Context(), update)
	if err != nil {
		log.Error().Err(err).Int("update_id", update.UpdateID).Str("kind", string(kind)).Msg("webhook: dispatch failed")
	} else {
		log.Debug().Int("update_id", update.UpdateID).Str("kind", string(kind)).Msg("webhook: update handled")
	}
	c.Status(http.StatusOK)
}

func (h *WebhookHandler) Index(c *gin.Context) {
	c.String(http.StatusOK, LivenessText)
}
