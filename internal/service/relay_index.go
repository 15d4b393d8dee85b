package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/psds-microservice/support-bot/internal/model"
	"github.com/psds-microservice/support-bot/internal/store"
)

type RelayIndexer interface {
	Record(ctx context.Context, adminMessageID int, ticket string, userID int64) error
	Lookup(ctx context.Context, adminMessageID int) (model.Relay, bool, error)
}

// RelayIndex хранит, к какому тикету и пользователю относится сообщение в чате администратора.
type RelayIndex struct {
	store store.Store
	now   func() time.Time
}

func NewRelayIndex(st store.Store) *RelayIndex {
	return &RelayIndex{store: st, now: time.Now}
}

func relayPath(adminMessageID int) string {
	return store.Join(store.NSRelays, strconv.Itoa(adminMessageID))
}

func (r *RelayIndex) Record(ctx context.Context, adminMessageID int, ticket string, userID int64) error {
	err := r.store.Set(ctx, relayPath(adminMessageID), model.Relay{
		Ticket:  ticket,
		UserID:  userID,
		Created: model.Timestamp(r.now()),
	})
	if err != nil {
		return fmt.Errorf("record relay: %w", err)
	}
	return nil
}

func (r *RelayIndex) Lookup(ctx context.Context, adminMessageID int) (model.Relay, bool, error) {
	var rel model.Relay
	if err := r.store.Get(ctx, relayPath(adminMessageID), &rel); err != nil {
		return model.Relay{}, false, fmt.Errorf("lookup relay: %w", err)
	}
	return rel, rel.Ticket != "" && rel.UserID != 0, nil
}
