package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/hackdesk/internal/api/http"
	"github.com/spec-kit/hackdesk/internal/api/http/handlers"
	"github.com/spec-kit/hackdesk/internal/auth"
	"github.com/spec-kit/hackdesk/internal/config"
	"github.com/spec-kit/hackdesk/internal/events"
	"github.com/spec-kit/hackdesk/internal/lifecycle"
	"github.com/spec-kit/hackdesk/internal/notify"
	"github.com/spec-kit/hackdesk/internal/observability"
	"github.com/spec-kit/hackdesk/internal/persistence"
	"github.com/spec-kit/hackdesk/internal/presence"
	"github.com/spec-kit/hackdesk/internal/repository"
	"github.com/spec-kit/hackdesk/internal/service"
	"github.com/spec-kit/hackdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores are optional; without them the lifecycle runs purely in memory.
	var pg *persistence.Postgres
	var snapshotRepo repository.TicketSnapshotRepository
	var historyRepo repository.TicketHistoryRepository
	if cfg.Postgres.DSN != "" {
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		snapshotRepo = repository.NewTicketSnapshotRepository(pg.PoolHandle())
		historyRepo = repository.NewTicketHistoryRepository(pg.PoolHandle())
	} else {
		logger.Warn("no postgres dsn configured, running without persistence")
	}

	var redis *persistence.Redis
	var tracker presence.Tracker
	if cfg.Redis.Addr != "" {
		redis = persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		tracker = presence.NewRedisTracker(redis.Client)
	} else {
		tracker = presence.NewMemoryTracker()
	}

	routing, err := config.LoadRouting(cfg.Ticketing.RoutingFile)
	if err != nil {
		logger.Fatal("failed to load routing table", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	auditService := service.NewAuditService(service.AuditDependencies{
		History: historyRepo,
		Metrics: metrics,
		Logger:  logger,
	})
	auditService.RegisterHandlers(dispatcher)

	var bridge *worker.EventBridge
	if cfg.Broker.URL != "" {
		bridge, err = worker.NewEventBridge(cfg.Broker.URL, cfg.Broker.Exchange, logger)
		if err != nil {
			logger.Fatal("failed to connect broker", zap.Error(err))
		}
		defer bridge.Close()
		bridge.RegisterHandlers(dispatcher)
	}

	port := notify.WithLogging(notify.NewMemory(), logger)
	manager := lifecycle.NewManager(lifecycle.Config{
		BufferTime:      cfg.Ticketing.BufferTime(),
		InactivePeriod:  cfg.Ticketing.InactivePeriod(),
		RoomMode:        cfg.Ticketing.RoomMode,
		DispatchSurface: lifecycle.ChannelHandle(cfg.Ticketing.DispatchSurface),
	}, lifecycle.ManagerDeps{
		Port:       port,
		Presence:   tracker,
		Dispatcher: dispatcher,
		Router:     routing,
		Logger:     logger,
	})

	sweeper, err := worker.NewSweeper(manager, cfg.Ticketing.SweepSchedule, logger)
	if err != nil {
		logger.Fatal("invalid sweep schedule", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	ticketService := service.NewTicketService(service.TicketDependencies{
		Manager:      manager,
		SnapshotRepo: snapshotRepo,
		Presence:     tracker,
		Logger:       logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(tokens, cfg.Auth.ProvisionKeyHash),
		Tickets:        handlers.NewTicketsHandler(ticketService, auditService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
