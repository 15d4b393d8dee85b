// Package dispatch классифицирует входящие обновления Telegram и выполняет один из трёх сценариев:
// /start, сообщение пользователя, ответ администратора.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/psds-microservice/support-bot/internal/errs"
	"github.com/psds-microservice/support-bot/internal/metrics"
	"github.com/psds-microservice/support-bot/internal/model"
	"github.com/psds-microservice/support-bot/internal/service"
	"github.com/psds-microservice/support-bot/internal/telegram"
	"github.com/rs/zerolog/log"
)

type Kind string

const (
	KindIgnored     Kind = "ignored"
	KindStart       Kind = "start"
	KindUserMessage Kind = "user_message"
	KindAdminReply  Kind = "admin_reply"
)

// Deps — зависимости диспетчера. Relays необязателен: без него ответ разбирается только по тексту.
type Deps struct {
	Tickets  service.TicketServicer
	Messages service.MessageLogger
	Relays   service.RelayIndexer
	Sender   telegram.Sender
}

type Router struct {
	Deps
	adminID int64
}

func New(deps Deps, adminID int64) *Router {
	return &Router{Deps: deps, adminID: adminID}
}

// Classify определяет сценарий. Обрабатываются только текстовые сообщения.
func (r *Router) Classify(msg *tgbotapi.Message) Kind {
	if msg == nil || msg.Text == "" || msg.Chat == nil || msg.From == nil {
		return KindIgnored
	}
	if commandName(msg.Text) == "start" {
		return KindStart
	}
	if msg.Chat.ID != r.adminID {
		return KindUserMessage
	}
	if msg.ReplyToMessage != nil {
		return KindAdminReply
	}
	return KindIgnored
}

// Handle обрабатывает одно обновление целиком, включая исходящие сообщения.
// Ошибка возвращается для логирования; уведомления администратору уже отправлены.
func (r *Router) Handle(ctx context.Context, update tgbotapi.Update) (Kind, error) {
	msg := update.Message
	kind := r.Classify(msg)
	metrics.UpdatesTotal.WithLabelValues(string(kind)).Inc()

	var err error
	switch kind {
	case KindStart:
		err = r.handleStart(ctx, msg)
	case KindUserMessage:
		err = r.handleUserMessage(ctx, msg)
	case KindAdminReply:
		err = r.handleAdminReply(ctx, msg)
	default:
		log.Debug().Int("update_id", update.UpdateID).Msg("dispatch: update ignored")
		return kind, nil
	}
	if err != nil {
		metrics.DispatchErrorsTotal.WithLabelValues(string(kind)).Inc()
		return kind, fmt.Errorf("%s: %w", kind, err)
	}
	return kind, nil
}

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user := identity(msg.From)
	ticket, err := r.Tickets.GetOrCreate(ctx, user)
	if err != nil {
		return err
	}
	adminMsgID, err := r.send(ctx, r.adminID, newTicketText(ticket, user), "admin")
	if err != nil {
		return err
	}
	r.recordRelay(ctx, adminMsgID, ticket, user.ID)
	_, err = r.send(ctx, msg.Chat.ID, welcomeText(ticket), "user")
	return err
}

func (r *Router) handleUserMessage(ctx context.Context, msg *tgbotapi.Message) error {
	user := identity(msg.From)
	ticket, err := r.Tickets.GetOrCreate(ctx, user)
	if err != nil {
		return err
	}
	if err := r.Messages.Log(ctx, ticket, model.SenderUser, msg.Text); err != nil {
		return err
	}
	adminMsgID, err := r.send(ctx, r.adminID, supportMessageText(ticket, user, msg.Text), "admin")
	if err != nil {
		return err
	}
	r.recordRelay(ctx, adminMsgID, ticket, user.ID)
	return nil
}

func (r *Router) handleAdminReply(ctx context.Context, msg *tgbotapi.Message) error {
	ticket, userID, err := r.replyContext(ctx, msg.ReplyToMessage)
	if err == nil {
		err = r.Messages.Log(ctx, ticket, model.SenderAdmin, msg.Text)
	}
	if err == nil {
		_, err = r.send(ctx, userID, msg.Text, "user")
	}
	if err != nil {
		r.notifyAdmin(ctx, adminNotice(err))
		return err
	}
	return nil
}

// replyContext ищет тикет и пользователя сначала в RelayIndex, затем в тексте сообщения.
func (r *Router) replyContext(ctx context.Context, replied *tgbotapi.Message) (string, int64, error) {
	if r.Relays != nil {
		rel, ok, err := r.Relays.Lookup(ctx, replied.MessageID)
		switch {
		case err != nil:
			log.Warn().Err(err).Int("message_id", replied.MessageID).Msg("dispatch: relay lookup failed, parsing text")
		case ok:
			return rel.Ticket, rel.UserID, nil
		}
	}
	return ParseReplyContext(replied.Text)
}

func (r *Router) recordRelay(ctx context.Context, adminMsgID int, ticket string, userID int64) {
	if r.Relays == nil || adminMsgID == 0 {
		return
	}
	if err := r.Relays.Record(ctx, adminMsgID, ticket, userID); err != nil {
		log.Warn().Err(err).Str("ticket", ticket).Int("message_id", adminMsgID).Msg("dispatch: record relay")
	}
}

func (r *Router) send(ctx context.Context, chatID int64, text, recipient string) (int, error) {
	id, err := r.Sender.SendText(ctx, chatID, text)
	if err != nil {
		return 0, err
	}
	metrics.OutboundMessagesTotal.WithLabelValues(recipient).Inc()
	return id, nil
}

func (r *Router) notifyAdmin(ctx context.Context, text string) {
	if _, err := r.send(ctx, r.adminID, text, "admin"); err != nil {
		log.Error().Err(err).Msg("dispatch: notify admin")
	}
}

// adminNotice выбирает уведомление администратору по виду ошибки.
func adminNotice(err error) string {
	if errors.Is(err, errs.ErrReplyContext) {
		return NoticeFormatMismatch
	}
	return NoticeReplyFailed
}

func identity(u *tgbotapi.User) model.Identity {
	return model.Identity{ID: u.ID, FirstName: u.FirstName, Username: u.UserName}
}
