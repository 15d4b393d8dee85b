package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewProducer_DisabledWithoutBrokers(t *testing.T) {
	for _, p := range []*Producer{NewProducer(nil, "tickets"), NewProducer([]string{"localhost:9092"}, "")} {
		assert.False(t, p.Enabled())
		// no-op: не должно паниковать и не ходит в сеть.
		p.ProduceEvent(context.Background(), EventTicketCreated, map[string]interface{}{"ticket": "TKT-1001"})
		assert.NoError(t, p.Close())
	}
}

func TestNewProducer_Enabled(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "support-tickets")
	assert.True(t, p.Enabled())
	assert.Equal(t, "support-tickets", p.writer.Topic)
	assert.True(t, p.writer.Async)
	assert.Equal(t, eventTimeout, p.timeout)
}

func TestProduceEvent_UnreachableBrokerDoesNotBlock(t *testing.T) {
	// Порт 1 на loopback никто не слушает.
	p := NewProducer([]string{"127.0.0.1:1"}, "support-tickets")
	p.timeout = 200 * time.Millisecond

	start := time.Now()
	p.ProduceEvent(context.Background(), EventMessageLogged, map[string]interface{}{"ticket": "TKT-1001"})
	assert.Less(t, time.Since(start), 2*time.Second)
	_ = p.Close()
}
