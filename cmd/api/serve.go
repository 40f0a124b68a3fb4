package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/session"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/worker"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	statusRepo := repository.NewTicketStatusRepository(pool)

	sessions := session.NewRedisStore(redis.Client, cfg.Auth.TokenTTL())
	attachments := storage.NewLocalStore(cfg.Chat.AttachmentDir, cfg.Chat.AttachmentBaseURL, cfg.Chat.AttachmentMaxBytes)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	notificationService := service.NewNotificationService(dispatcher, logger.Named("notifications"), cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo: accountRepo,
		Sessions:    sessions,
	})
	conversationService := service.NewConversationService(service.ConversationDependencies{
		AccountRepo: accountRepo,
		MessageRepo: messageRepo,
		Attachments: attachments,
		Unread:      service.NewUnreadTracker(sessions, messageRepo, cfg.Chat.UnreadWindow()),
		Dispatcher:  dispatcher,
		SearchLimit: cfg.Chat.SearchDefaultLimit,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		StatusRepo:  statusRepo,
		AccountRepo: accountRepo,
		Dispatcher:  dispatcher,
		Config:      cfg.Tickets,
		SearchLimit: cfg.Chat.SearchDefaultLimit,
	})
	adminService := service.NewAdminService(accountRepo, dispatcher)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accountRepo, sessions)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Chat.AttachmentMaxBytes) + 64*1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Chat:           handlers.NewChatHandler(conversationService, attachments, cfg.Chat.AttachmentMaxBytes),
		Tickets:        handlers.NewTicketsHandler(ticketService, nil),
		Admin:          handlers.NewAdminHandler(adminService),
		AuthMiddleware: authMiddleware,
		StorageRoot:    attachments.Root(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	return app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
