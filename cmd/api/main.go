package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/cargodesk/cargodesk/internal/api/http"
	"github.com/cargodesk/cargodesk/internal/api/http/handlers"
	"github.com/cargodesk/cargodesk/internal/auth"
	"github.com/cargodesk/cargodesk/internal/config"
	"github.com/cargodesk/cargodesk/internal/events"
	"github.com/cargodesk/cargodesk/internal/notify"
	"github.com/cargodesk/cargodesk/internal/observability"
	"github.com/cargodesk/cargodesk/internal/persistence"
	"github.com/cargodesk/cargodesk/internal/repository"
	"github.com/cargodesk/cargodesk/internal/service"
	"github.com/cargodesk/cargodesk/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	quoteRepo := repository.NewQuoteRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	auditService := service.NewAuditService(auditRepo, logger)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		DepartmentRepo: departmentRepo,
		CommentRepo:    commentRepo,
		QuoteRepo:      quoteRepo,
		AssignmentRepo: assignmentRepo,
		Audit:          auditService,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:     ticketRepo,
		UserRepo:       userRepo,
		AssignmentRepo: assignmentRepo,
		Audit:          auditService,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	userService := service.NewUserService(*cfg, service.UserDependencies{
		UserRepo:       userRepo,
		DepartmentRepo: departmentRepo,
		Audit:          auditService,
	})
	departmentService := service.NewDepartmentService(departmentRepo, auditService)
	reportService := service.NewReportService(ticketRepo, redis.Client, cfg.SLA.DashboardTTL(), logger)

	provider := notify.NewProvider(cfg.Notification, logger)
	notificationService := service.NewNotificationService(ticketRepo, userRepo, provider, logger)
	notificationService.RegisterHandlers(dispatcher)

	slaWorker := worker.NewSLAWorker(ticketRepo, redis.Client, dispatcher, cfg.SLA, logger)
	go slaWorker.Run(ctx)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService),
		Users:          handlers.NewUsersHandler(userService),
		Departments:    handlers.NewDepartmentsHandler(departmentService),
		Audit:          handlers.NewAuditHandler(auditService),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
