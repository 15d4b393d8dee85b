package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/psds-microservice/support-bot/internal/kafka"
	"github.com/psds-microservice/support-bot/internal/model"
	"github.com/psds-microservice/support-bot/internal/store"
)

// TicketServicer — интерфейс для диспетчера (Dependency Inversion).
type TicketServicer interface {
	GetOrCreate(ctx context.Context, user model.Identity) (string, error)
}

var ticketCounterPath = store.Join(store.NSCounters, store.NSTickets)

type TicketService struct {
	store  store.Store
	events kafka.EventProducer
	now    func() time.Time
}

func NewTicketService(st store.Store, events kafka.EventProducer) *TicketService {
	return &TicketService{store: st, events: events, now: time.Now}
}

// GetOrCreate возвращает тикет пользователя или выпускает новый (TKT-1001, TKT-1002, ...)
// и сохраняет профиль пользователя.
func (s *TicketService) GetOrCreate(ctx context.Context, user model.Identity) (string, error) {
	uid := strconv.FormatInt(user.ID, 10)
	var existing model.Ticket
	if err := s.store.Get(ctx, store.Join(store.NSTickets, uid), &existing); err != nil {
		return "", fmt.Errorf("get ticket: %w", err)
	}
	if existing.Ticket != "" {
		return existing.Ticket, nil
	}

	n, err := s.store.Increment(ctx, ticketCounterPath, s.countTickets)
	if err != nil {
		return "", fmt.Errorf("next ticket number: %w", err)
	}
	ticket := model.TicketID(n)
	now := model.Timestamp(s.now())

	if err := s.store.Set(ctx, store.Join(store.NSTickets, uid), model.Ticket{
		Ticket:  ticket,
		Status:  model.TicketStatusOpen,
		Created: now,
	}); err != nil {
		return "", fmt.Errorf("save ticket: %w", err)
	}
	if err := s.store.Set(ctx, store.Join(store.NSUsers, uid), model.UserProfile{
		Name:     user.FirstName,
		Username: user.Username,
		Ticket:   ticket,
		Joined:   now,
	}); err != nil {
		return "", fmt.Errorf("save user: %w", err)
	}

	if s.events != nil {
		s.events.ProduceEvent(ctx, kafka.EventTicketCreated, map[string]interface{}{
			"ticket":   ticket,
			"user_id":  user.ID,
			"name":     user.FirstName,
			"username": user.Username,
			"created":  now,
		})
	}
	return ticket, nil
}

// List возвращает все тикеты по id пользователя.
func (s *TicketService) List(ctx context.Context) (map[string]model.Ticket, error) {
	var tickets map[string]model.Ticket
	if err := s.store.Get(ctx, store.NSTickets, &tickets); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// countTickets засевает счётчик числом уже существующих тикетов, чтобы нумерация продолжалась.
func (s *TicketService) countTickets(ctx context.Context) (int64, error) {
	n, err := s.store.Count(ctx, store.NSTickets)
	if err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return int64(n), nil
}
