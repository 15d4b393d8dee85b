package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/psds-microservice/support-bot/internal/kafka"
	"github.com/psds-microservice/support-bot/internal/model"
	"github.com/psds-microservice/support-bot/internal/store"
)

type MessageLogger interface {
	Log(ctx context.Context, ticket string, sender model.Sender, text string) error
}

// MessageLog — история переписки по тикету: messages/{ticket}/{key}.
type MessageLog struct {
	store  store.Store
	events kafka.EventProducer
	now    func() time.Time
}

func NewMessageLog(st store.Store, events kafka.EventProducer) *MessageLog {
	return &MessageLog{store: st, events: events, now: time.Now}
}

func (l *MessageLog) Log(ctx context.Context, ticket string, sender model.Sender, text string) error {
	entry := model.MessageEntry{Sender: sender, Text: text, Time: model.Timestamp(l.now())}
	if _, err := l.store.Push(ctx, store.Join(store.NSMessages, ticket), entry); err != nil {
		return fmt.Errorf("log message: %w", err)
	}
	if l.events != nil {
		l.events.ProduceEvent(ctx, kafka.EventMessageLogged, map[string]interface{}{
			"ticket": ticket,
			"sender": string(sender),
			"text":   text,
			"time":   entry.Time,
		})
	}
	return nil
}

// History возвращает записи тикета в порядке добавления.
func (l *MessageLog) History(ctx context.Context, ticket string) ([]model.MessageEntry, error) {
	var entries map[string]model.MessageEntry
	if err := l.store.Get(ctx, store.Join(store.NSMessages, ticket), &entries); err != nil {
		return nil, fmt.Errorf("message history: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]model.MessageEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, entries[k])
	}
	return out, nil
}
