package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/helpdesk-labs/ticket-service/internal/api/http"
	"github.com/helpdesk-labs/ticket-service/internal/api/http/handlers"
	"github.com/helpdesk-labs/ticket-service/internal/auth"
	"github.com/helpdesk-labs/ticket-service/internal/config"
	"github.com/helpdesk-labs/ticket-service/internal/events"
	"github.com/helpdesk-labs/ticket-service/internal/observability"
	"github.com/helpdesk-labs/ticket-service/internal/persistence"
	"github.com/helpdesk-labs/ticket-service/internal/repository"
	"github.com/helpdesk-labs/ticket-service/internal/repository/sqlite"
	"github.com/helpdesk-labs/ticket-service/internal/service"
	"github.com/helpdesk-labs/ticket-service/internal/worker"
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

	shutdownTracing := observability.SetupTracing(ctx, cfg.App.Name, cfg.App.Version, cfg.Telemetry, logger)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	store, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	redis := persistence.NewRedis(cfg.Redis, logger)
	var (
		publisher   events.Publisher
		redisPinger handlers.Pinger
	)
	if redis != nil {
		defer redis.Close()
		publisher = redis
		redisPinger = redis
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	policy := auth.NewEngine()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	audit := service.NewAuditLog(service.AuditDependencies{Store: store, Policy: policy})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Policy:     policy,
		Assignment: service.NewAssignmentService(service.AssignmentDependencies{Store: store}),
		Audit:      audit,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		Store:      store,
		Policy:     policy,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	accountService := service.NewAccountService(service.AccountDependencies{
		Store:      store,
		Policy:     policy,
		Tokens:     tokens,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger))
	worker.StartEventForwarder(dispatcher, publisher, logger)

	app := httptransport.NewApp(cfg.App.Name, logger, metrics, cfg.App.RequestTimeout(), httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store, redisPinger),
		Users:          handlers.NewUsersHandler(accountService),
		Tickets:        handlers.NewTicketsHandler(ticketService, audit),
		Comments:       handlers.NewCommentsHandler(commentService),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.Addr()), zap.String("driver", cfg.Database.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// openStore connects the configured storage driver and applies migrations.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func()) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		return repository.NewPostgresStore(pg.PoolHandle()), pg.Close
	default:
		db, err := persistence.OpenSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			logger.Fatal("failed to open sqlite", zap.Error(err))
		}
		if err := persistence.RunSQLiteMigrations(ctx, db, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		return sqlite.NewStore(db), func() { _ = db.Close() }
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
