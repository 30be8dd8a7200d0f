package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/config"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/garyjia/expense-approval/internal/interfaces/http"
	"github.com/garyjia/expense-approval/internal/report"
	"github.com/garyjia/expense-approval/pkg/database"
	"github.com/garyjia/expense-approval/pkg/utils"
)

func main() {
	// Optional .env overrides for local development
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Expense Approval Workflow System",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Transaction manager over the shared connection pool
	txManager := sqlite.NewDB(db.DB, logger)

	// Repositories
	expenseRepo := repository.NewExpenseRepository(db.DB, logger)
	ruleRepo := repository.NewRuleRepository(db.DB, logger)
	stepRepo := repository.NewStepRepository(db.DB, logger)
	approverRepo := repository.NewApproverRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	viewRepo := repository.NewApprovalViewRepository(db.DB, logger)

	// Services
	slog := newServiceLogger(logger)
	resolver := service.NewRuleSetResolver(ruleRepo, slog)
	workflowService := service.NewWorkflowService(expenseRepo, stepRepo, approverRepo, userRepo, resolver, txManager, slog)
	expenseService := service.NewExpenseService(expenseRepo, stepRepo, workflowService, txManager, slog)
	queryService := service.NewQueryService(viewRepo, slog)
	exporter := report.NewHistoryExporter(logger)

	// HTTP server
	server := httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		expenseService,
		workflowService,
		queryService,
		resolver,
		exporter,
		slog,
	)

	// Cancel the server context on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// serviceLogger adapts zap's sugared logger to the application Logger
// interface
type serviceLogger struct {
	sugar *zap.SugaredLogger
}

func newServiceLogger(logger *zap.Logger) *serviceLogger {
	return &serviceLogger{sugar: logger.Sugar()}
}

func (l *serviceLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *serviceLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *serviceLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}
