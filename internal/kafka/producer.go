package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// События бота.
const (
	EventTicketCreated = "ticket.created"
	EventMessageLogged = "message.logged"
)

// EventProducer — отправка событий тикетов (подменяется в тестах).
type EventProducer interface {
	ProduceEvent(ctx context.Context, event string, payload map[string]interface{})
}

// eventTimeout ограничивает время ProduceEvent: недоступный брокер не должен задерживать обработку обновления.
const eventTimeout = 2 * time.Second

// Producer пишет события в топик Kafka (best-effort: ошибки только логируются).
type Producer struct {
	writer  *kafka.Writer
	topic   string
	timeout time.Duration
}

// NewProducer создаёт продюсер. Если brokers пустой или topic пустой — методы no-op.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{}
	}
	return &Producer{
		topic:   topic,
		timeout: eventTimeout,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
			MaxAttempts:  3,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Warn().Err(err).Int("messages", len(messages)).Str("topic", topic).Msg("kafka: async write")
				}
			},
		},
	}
}

// Enabled сообщает, настроен ли брокер.
func (p *Producer) Enabled() bool {
	return p != nil && p.writer != nil
}

// ProduceEvent ставит событие в очередь writer'а и не ждёт подтверждения брокера.
// Ключ сообщения — тикет, чтобы события одного тикета шли в одну партицию.
// Контекст отвязан от запроса и ограничен timeout: writer ещё запрашивает метаданные топика до постановки в очередь.
func (p *Producer) ProduceEvent(ctx context.Context, event string, payload map[string]interface{}) {
	if !p.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	msg := map[string]interface{}{"event": event}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("kafka: marshal event")
		return
	}
	var key []byte
	if t, ok := payload["ticket"].(string); ok {
		key = []byte(t)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: body}); err != nil {
		log.Warn().Err(err).Str("event", event).Str("topic", p.topic).Msg("kafka: write event")
	}
}

// Close закрывает writer.
func (p *Producer) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.writer.Close()
}
