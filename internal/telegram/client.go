// Package telegram — тонкий адаптер Bot API: отправка текста и управление вебхуком.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/psds-microservice/support-bot/internal/errs"
)

// Sender отправляет текстовое сообщение и возвращает id отправленного сообщения.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
}

type Client struct {
	api *tgbotapi.BotAPI
}

// New создаёт клиента и проверяет токен запросом getMe. endpoint пустой — api.telegram.org.
func New(token, endpoint string) (*Client, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w: %w", errs.ErrChatUnavailable, err)
	}
	return &Client{api: api}, nil
}

// Username — имя бота из getMe.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("telegram: send to %d: %w: %w", chatID, errs.ErrChatUnavailable, err)
	}
	msg, err := c.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("telegram: send to %d: %w: %w", chatID, errs.ErrChatUnavailable, err)
	}
	return msg.MessageID, nil
}

// SetWebhook регистрирует URL вебхука.
func (c *Client) SetWebhook(url string, dropPending bool) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("telegram: webhook url: %w", err)
	}
	wh.DropPendingUpdates = dropPending
	wh.AllowedUpdates = []string{"message"}
	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("telegram: set webhook: %w: %w", errs.ErrChatUnavailable, err)
	}
	return nil
}

func (c *Client) DeleteWebhook(dropPending bool) error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}); err != nil {
		return fmt.Errorf("telegram: delete webhook: %w: %w", errs.ErrChatUnavailable, err)
	}
	return nil
}

func (c *Client) WebhookInfo() (tgbotapi.WebhookInfo, error) {
	info, err := c.api.GetWebhookInfo()
	if err != nil {
		return tgbotapi.WebhookInfo{}, fmt.Errorf("telegram: webhook info: %w: %w", errs.ErrChatUnavailable, err)
	}
	return info, nil
}
