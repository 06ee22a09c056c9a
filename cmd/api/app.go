package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/lead-followup/internal/config"
	"github.com/xavierca1/lead-followup/internal/infra/database"
	"github.com/xavierca1/lead-followup/internal/infra/http/handlers"
	"github.com/xavierca1/lead-followup/internal/infra/http/middleware"
	"github.com/xavierca1/lead-followup/internal/infra/integration/sendpulse"
	"github.com/xavierca1/lead-followup/internal/infra/lock"
	"github.com/xavierca1/lead-followup/internal/infra/mail"
	"github.com/xavierca1/lead-followup/internal/infra/queue"
	"github.com/xavierca1/lead-followup/internal/usecase"
)

var errConnectionClosed = errors.New("connection closed")

// App holds the shared connections and the use cases built on them.
type App struct {
	config    *config.Config
	logger    *slog.Logger
	db        *sql.DB
	reporting *database.ReportingClient
	redis     *redis.Client
	rabbitMQ  *queue.RabbitMQ

	locker usecase.ContactLocker
	// nil without Redis; the router then limits in-process
	limiter middleware.Limiter

	conversation *usecase.ConversationUseCase
	inbound      *usecase.HandleInboundUseCase
	trackClick   *usecase.TrackClickUseCase
	followUp     *usecase.FollowUpUseCase
	day1         *usecase.SendDay1UseCase
	admin        *usecase.AdminUseCase
	stats        *usecase.StatsUseCase
}

// withBroker controls whether RabbitMQ is dialled; one-shot commands skip it.
func NewApp(cfg *config.Config, logger *slog.Logger, withBroker bool) (*App, error) {
	a := &App{config: cfg, logger: logger}

	db, err := database.NewDBConnection(cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	logger.Info("database connection established")

	reporting, err := database.NewReportingClient(cfg.ReportingDSN(), cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.reporting = reporting

	if cfg.Redis.Enabled {
		rdb, err := lock.NewRedisClient(cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = rdb
		a.locker = lock.NewRedisLocker(rdb, cfg.Redis.LockTTL, logger)
		a.limiter = middleware.NewRedisLimiter(rdb, cfg.Tracking.RateLimit, time.Minute)
		logger.Info("redis connection established")
	} else {
		a.locker = lock.NewLocalLocker()
	}

	var checks usecase.DeliveryCheckPublisher
	if withBroker && cfg.RabbitMQ.Enabled {
		rmq, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.DeliveryCheckDelay)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.rabbitMQ = rmq
		checks = queue.NewProducer(rmq.Ch)
		logger.Info("rabbitmq connection established")
	}

	contacts := database.NewContactRepository(db)
	sellers := database.NewSellerRepository(db)
	messages := database.NewMessageRepository(db)
	responses := database.NewResponseRepository(db)
	clicks := database.NewClickRepository(db)
	reports := database.NewReportRepository(reporting)

	whatsApp := sendpulse.NewClient(cfg.SendPulse, logger)
	email := mail.NewEmailSender(cfg.SMTP, cfg.Tracking.BaseURL)
	dispatcher := usecase.NewDispatcher(whatsApp, email, messages, logger)

	a.conversation = usecase.NewConversationUseCase(sellers, responses, dispatcher, logger)
	a.inbound = usecase.NewHandleInboundUseCase(contacts, messages, a.conversation, dispatcher, logger)
	a.trackClick = usecase.NewTrackClickUseCase(contacts, clicks, a.conversation, cfg.Tracking.HomeURL, cfg.Tracking.SearchURL, logger)
	a.followUp = usecase.NewFollowUpUseCase(messages, dispatcher, a.locker, logger)
	a.day1 = usecase.NewSendDay1UseCase(contacts, sellers, messages, dispatcher, a.conversation, checks, logger)
	a.admin = usecase.NewAdminUseCase(contacts, messages, a.conversation, dispatcher, logger)
	a.stats = usecase.NewStatsUseCase(reports)

	return a, nil
}

func (a *App) Close() {
	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq connection", slog.String("error", err.Error()))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis connection", slog.String("error", err.Error()))
		}
	}
	if a.reporting != nil {
		if err := a.reporting.Close(); err != nil {
			a.logger.Warn("failed to close reporting connection", slog.String("error", err.Error()))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database connection", slog.String("error", err.Error()))
		}
	}
}

// healthChecks returns a probe per dependency; disabled ones are nil.
func (a *App) healthChecks() map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"database": a.db.PingContext,
		"redis":    nil,
		"rabbitmq": nil,
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	if a.rabbitMQ != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if !a.rabbitMQ.Healthy() {
				return errConnectionClosed
			}
			return nil
		}
	}
	return checks
}
