package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/paygate/internal/config"
	"github.com/example/paygate/internal/database"
	"github.com/example/paygate/internal/events"
	"github.com/example/paygate/internal/handlers"
	"github.com/example/paygate/internal/logger"
	"github.com/example/paygate/internal/middleware"
	"github.com/example/paygate/internal/repository"
	"github.com/example/paygate/internal/routes"
	"github.com/example/paygate/internal/services"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("paygate starting", zap.String("version", Version), zap.String("gateway", cfg.PaymentGateway))

	db, err := database.Connect(cfg.DatabaseURL, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			appLogger.Error("error closing database connection", zap.Error(err))
		}
	}()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	tokenStore, closeStore, err := newTokenStore(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeStore()

	gateway, err := newGateway(cfg, tokenStore, appLogger)
	if err != nil {
		return err
	}

	publisher := newPublisher(cfg, appLogger)
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("error closing event publisher", zap.Error(err))
		}
	}()

	telegram := services.NewTelegramService("", cfg.TelegramBotToken, cfg.TelegramAdminChat,
		appLogger.With(zap.String("component", "telegram")))

	repo := repository.NewUserRepository(db)
	userService := services.NewUserService(repo, publisher, cfg.KafkaUserTopic,
		appLogger.With(zap.String("component", "users")))
	authService := services.NewAuthService(repo, cfg.JWTSecret, cfg.TokenExpires)
	paymentService := services.NewPaymentService(gateway, publisher, cfg.KafkaPaymentTopic, telegram,
		appLogger.With(zap.String("component", "payments")))

	app := fiber.New(fiber.Config{
		AppName:      "paygate",
		ErrorHandler: handlers.ErrorHandler(appLogger),
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(appLogger.With(zap.String("component", "http"))))

	routes.Register(app, routes.Handlers{
		Users:    handlers.NewUserHandler(userService, authService),
		Auth:     handlers.NewAuthHandler(authService),
		Payments: handlers.NewPaymentHandler(paymentService, cfg.PaymentsRequireAuth),
	}, routes.Options{
		JWTSecret:           cfg.JWTSecret,
		PaymentsRequireAuth: cfg.PaymentsRequireAuth,
	})

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("starting server", zap.String("port", cfg.AppPort))
		serverErr <- app.Listen(":" + cfg.AppPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return fmt.Errorf("fiber.Listen: %w", err)
	case sig := <-quit:
		appLogger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		appLogger.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	appLogger.Info("server exited gracefully")
	return nil
}

func newTokenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (services.TokenStore, func(), error) {
	if cfg.RedisURL == "" {
		log.Info("using in-memory gateway token cache")
		return services.NewMemoryTokenStore(), func() {}, nil
	}

	store, err := services.NewRedisTokenStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Info("using redis gateway token cache")
	return store, func() {
		if err := store.Close(); err != nil {
			log.Error("error closing redis client", zap.Error(err))
		}
	}, nil
}

func newGateway(cfg *config.Config, store services.TokenStore, log *zap.Logger) (services.Gateway, error) {
	switch cfg.PaymentGateway {
	case config.GatewayPayPal:
		return services.NewPayPalClient(services.PayPalConfig{
			BaseURL:      cfg.PayPalBaseURL,
			ClientID:     cfg.PayPalClientID,
			ClientSecret: cfg.PayPalClientSecret,
		}, store, log.With(zap.String("component", "paypal"))), nil
	case config.GatewayMidtrans:
		return services.NewMidtransClient(cfg.MidtransServerKey, cfg.MidtransIsProduction,
			log.With(zap.String("component", "midtrans"))), nil
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", cfg.PaymentGateway)
	}
}

func newPublisher(cfg *config.Config, log *zap.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("kafka brokers not configured, events disabled")
		return events.NewNopPublisher()
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, log.With(zap.String("component", "events")))
}
