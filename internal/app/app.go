package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/auth"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/cartapi"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/filestore"
	natsadapter "github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/nats"
	redisadapter "github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/redis"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	httpserver "github.com/Abdurahmanit/GroupProject/cart-service/internal/port/http"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/service"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg         *config.Config
	log         logger.Logger
	server      *httpserver.Server
	manager     service.CartManager
	redisClient *redis.Client
	natsConn    *nats.Conn
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	logCfg := logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	}
	appLogger, err := logger.NewZapLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Info("Logger initialized")
	appLogger.Infof("Configuration loaded: Env=%s, HTTP Port: %s", cfg.Env, cfg.HTTPServer.Port)

	var redisClient *redis.Client
	var cartStore repository.LocalCartStore

	switch cfg.LocalStore.Mode {
	case "redis":
		appLogger.Info("Initializing Redis-backed local cart store...")
		redisClient, err = redisadapter.NewClient(ctx, cfg.Redis)
		if err != nil {
			appLogger.Errorf("Failed to initialize Redis client: %v", err)
			return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		cartStore = redisadapter.NewCartStore(redisClient, cfg.LocalStore.SessionID, cfg.LocalStore.TTL)
	case "file":
		appLogger.Infof("Initializing file-backed local cart store in %s...", cfg.LocalStore.Dir)
		cartStore, err = filestore.NewCartStore(cfg.LocalStore.Dir)
		if err != nil {
			appLogger.Errorf("Failed to initialize file cart store: %v", err)
			return nil, fmt.Errorf("failed to initialize file cart store: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown local store mode %q", cfg.LocalStore.Mode)
	}
	appLogger.Info("Local cart store initialized")

	apiClient, err := cartapi.NewClient(cartapi.Config{
		BaseURL: cfg.CartAPI.BaseURL,
		Timeout: cfg.CartAPI.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cart API client: %w", err)
	}
	appLogger.Infof("Cart API client initialized for %s", cfg.CartAPI.BaseURL)

	var natsConn *nats.Conn
	var publisher natsadapter.MessagePublisher
	if cfg.NATS.URL != "" {
		appLogger.Info("Initializing NATS connection...")
		natsConn, err = natsadapter.NewConnection(cfg.NATS)
		if err != nil {
			appLogger.Errorf("Failed to connect to NATS: %v", err)
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		publisher, err = natsadapter.NewPublisher(natsConn)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize NATS publisher: %w", err)
		}
		appLogger.Info("NATS publisher initialized")
	} else {
		appLogger.Info("NATS URL not set, cart events disabled")
	}

	inspector, err := auth.NewInspector(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session inspector: %w", err)
	}

	manager := service.NewCartManager(cartStore, apiClient, publisher, appLogger, service.CartManagerConfig{
		ShippingRule: entity.ShippingRule{
			FreeThreshold: cfg.Shipping.FreeThreshold,
			Fee:           cfg.Shipping.Fee,
		},
	})
	appLogger.Info("Cart manager initialized")

	// No session is known at boot, so the cart starts anonymous.
	if err := manager.SetAuthStatus(ctx, service.AuthStateAnonymous, "", ""); err != nil {
		return nil, fmt.Errorf("failed to enter anonymous state: %w", err)
	}

	handler := httpserver.NewCartHandler(manager, inspector, appLogger)
	srv := httpserver.NewServer(
		appLogger,
		cfg.HTTPServer.Port,
		cfg.HTTPServer.ReadTimeout,
		cfg.HTTPServer.WriteTimeout,
		handler,
	)
	appLogger.Info("HTTP server instance created")

	return &App{
		cfg:         cfg,
		log:         appLogger,
		server:      srv,
		manager:     manager,
		redisClient: redisClient,
		natsConn:    natsConn,
	}, nil
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
	a.log.Info("HTTP server started in a goroutine")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.TimeoutGraceful+5*time.Second)
	defer cancel()

	if err := a.server.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during HTTP server graceful shutdown: %v", err)
	} else {
		a.log.Info("HTTP server stopped successfully")
	}

	if a.natsConn != nil {
		a.natsConn.Close()
		a.log.Info("NATS connection closed")
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed successfully")
		}
	}

	a.log.Info("Application shut down successfully")
}
