package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/psds-microservice/support-bot/internal/config"
	"github.com/psds-microservice/support-bot/internal/database"
	"github.com/psds-microservice/support-bot/internal/dispatch"
	"github.com/psds-microservice/support-bot/internal/handler"
	"github.com/psds-microservice/support-bot/internal/kafka"
	"github.com/psds-microservice/support-bot/internal/router"
	"github.com/psds-microservice/support-bot/internal/service"
	"github.com/psds-microservice/support-bot/internal/store"
	"github.com/psds-microservice/support-bot/internal/telegram"
	"github.com/rs/zerolog/log"
)

// OpenStore открывает хранилище выбранного бэкенда. Для postgres применяет миграции.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendFirebase:
		return store.NewFirebase(ctx, cfg.Firebase.DatabaseURL, []byte(cfg.Firebase.Credentials))
	case config.BackendPostgres:
		if err := database.MigrateUp(cfg.PostgresURL()); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		return store.NewPostgres(db), nil
	case config.BackendMemory:
		log.Warn().Msg("store: using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// API приложение: HTTP-сервер вебхука.
type API struct {
	cfg      *config.Config
	httpSrv  *http.Server
	store    store.Store
	producer *kafka.Producer
}

// NewAPI собирает зависимости: хранилище, клиент Telegram, сервисы, диспетчер, HTTP-роутер.
func NewAPI(ctx context.Context, cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ValidateBot(); err != nil {
		return nil, err
	}
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	bot, err := telegram.New(cfg.BotToken, cfg.TelegramAPIEndpoint)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	log.Info().Str("bot", bot.Username()).Int64("admin_id", cfg.AdminID).Str("store", cfg.StoreBackend).Msg("telegram: authorized")

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket)
	d := dispatch.New(dispatch.Deps{
		Tickets:  service.NewTicketService(st, producer),
		Messages: service.NewMessageLog(st, producer),
		Relays:   service.NewRelayIndex(st),
		Sender:   bot,
	}, cfg.AdminID)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(handler.NewWebhookHandler(d)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:      cfg,
		httpSrv:  httpSrv,
		store:    st,
		producer: producer,
	}, nil
}

// Run запускает HTTP-сервер, блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Info().Str("addr", a.httpSrv.Addr).Msg("HTTP server listening")
	log.Info().Msgf("  Webhook:       POST %s/", base)
	log.Info().Msgf("  Health:        %s/health", base)
	log.Info().Msgf("  Metrics:       %s/metrics", base)
	log.Info().Msgf("  Swagger UI:    %s/swagger", base)
	if a.producer.Enabled() {
		log.Info().Str("topic", a.cfg.KafkaTopicTicket).Msg("kafka: ticket events enabled")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("http shutdown: %w", err)
	}
	if err := a.producer.Close(); err != nil {
		log.Warn().Err(err).Msg("kafka: close")
	}
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("store: close")
	}
	return runErr
}
