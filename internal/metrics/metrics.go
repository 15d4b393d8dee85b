package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal — входящие обновления по виду (start, user_message, admin_reply, ignored, rejected).
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "support_bot",
		Name:      "updates_total",
		Help:      "Inbound webhook updates by dispatch kind.",
	}, []string{"kind"})

	// DispatchErrorsTotal — ошибки обработки по виду обновления.
	DispatchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "support_bot",
		Name:      "dispatch_errors_total",
		Help:      "Failed update dispatches by dispatch kind.",
	}, []string{"kind"})

	// OutboundMessagesTotal — отправленные сообщения по получателю (admin, user).
	OutboundMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "support_bot",
		Name:      "outbound_messages_total",
		Help:      "Messages sent through the Bot API by recipient role.",
	}, []string{"recipient"})
)
