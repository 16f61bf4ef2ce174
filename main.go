package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/brigada-mx/backend-sub000/internal/api"
	"github.com/brigada-mx/backend-sub000/internal/auth"
	"github.com/brigada-mx/backend-sub000/internal/config"
	"github.com/brigada-mx/backend-sub000/internal/database"
	"github.com/brigada-mx/backend-sub000/internal/handlers"
	"github.com/brigada-mx/backend-sub000/internal/logging"
	"github.com/brigada-mx/backend-sub000/internal/middleware"
	"github.com/brigada-mx/backend-sub000/internal/repository"
	"github.com/brigada-mx/backend-sub000/internal/services"
)

// NOTE: At least one .sql file must exist in migrations/ for embedding to work.
// Make sure to build from the project root so the path is correct.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

func runMigrations(cfg *config.Config) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}
	fmt.Println("Migrations applied successfully.")
	return nil
}

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "Path to config file")
	runMigrate := pflag.BoolP("migrate", "m", false, "Run database migrations and exit")
	version := pflag.BoolP("version", "v", false, "Print version and exit")
	port := pflag.IntP("port", "p", 8080, "HTTP server listen port")
	logLevel := pflag.StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	internalSecret := pflag.String("internal-secret", "", "Override internal secret from config")
	preAuthSecret := pflag.String("preauth-secret", "", "Override pre-auth signing secret from config")

	pflag.Parse()

	if *version {
		fmt.Println("backend-sub000 version 1.0.0")
		os.Exit(0)
	}

	if *runMigrate {
		cfg, err := config.LoadWithPath(*configPath)
		if err != nil {
			panic("Failed to load configuration: " + err.Error())
		}
		if err := runMigrations(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if pflag.Lookup("port").Changed {
		cfg.Server.Port = *port
	}
	if pflag.Lookup("log-level").Changed {
		cfg.Logging.Level = *logLevel
	}
	if pflag.Lookup("internal-secret").Changed && *internalSecret != "" {
		cfg.Auth.InternalSecret = *internalSecret
	}
	if pflag.Lookup("preauth-secret").Changed && *preAuthSecret != "" {
		cfg.Auth.PreAuthSecret = *preAuthSecret
	}

	logger, err := logging.InitLogger(logging.Config(cfg.Logging))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.Database.ToDBConfig())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db, logger)
	accountRepo := repository.NewAccountRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	metricsRepo := repository.NewMetricsRepository(db)

	// Services
	preAuthService := services.NewPreAuthService(cfg.Auth.PreAuthSecret, cfg.Auth.PreAuthTTL)
	sessionService := services.NewSessionService(redisClient, cfg.Auth.SessionTTL)
	notifier := services.NewNotifier(redisClient, cfg.Notifications.Queue, logger)
	metricsService := services.NewMetricsService(metricsRepo)
	expander := services.NewScheduleExpander(
		shiftRepo,
		cfg.Scheduler.LookAheadDuration,
		cfg.Scheduler.ExpansionInterval,
		logger,
	)

	// Authentication chains. The nurse detail chain additionally accepts
	// pre-auth tokens minted at nurse creation.
	defaultBackends := []auth.Backend{
		auth.NewSessionBackend(sessionService, userRepo),
		auth.NewNurseTokenBackend(userRepo),
		auth.NewClientTokenBackend(userRepo),
		auth.NewOrganizationTokenBackend(userRepo),
		auth.NewDonorTokenBackend(userRepo),
		auth.NewInternalBackend(cfg.Auth.InternalSecret),
	}
	defaultAuth := auth.NewAuthenticator(logger, defaultBackends...)
	nurseDetailAuth := auth.NewAuthenticator(logger, append(defaultBackends,
		auth.NewPreAuthNurseBackend(preAuthService, services.NamespaceUpdateNurse, userRepo))...)

	// Handlers
	h := api.Handlers{
		Auth:     handlers.NewAuthHandler(userRepo, tokenRepo, sessionService),
		Nurses:   handlers.NewNurseHandler(userRepo, preAuthService, notifier),
		Accounts: handlers.NewAccountHandler(accountRepo, userRepo, tokenRepo, preAuthService),
		Shifts:   handlers.NewShiftHandler(shiftRepo, notifier),
		Metrics:  handlers.NewMetricsHandler(metricsService),
		Internal: handlers.NewInternalHandler(expander),
		Status:   handlers.StatusHandler(db, redisClient),
		Health:   handlers.HealthHandler(db),
	}

	rateLimiter := middleware.NewRateLimiter(redisClient)
	accessLogger := logrus.New()

	router := gin.Default()
	router.Use(middleware.RequestIDMiddleware(logger))
	api.SetupRoutes(router, h, defaultAuth, nurseDetailAuth, rateLimiter, accessLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	expanderCtx, stopExpander := context.WithCancel(context.Background())
	go func() {
		if err := expander.Run(expanderCtx); err != nil && err != context.Canceled {
			logger.Error("Expander error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Shutting down server...")
		stopExpander()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Fatal("Server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("Starting server", zap.Int("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}
}
