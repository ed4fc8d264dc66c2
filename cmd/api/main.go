package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/loomcart/api/internal/di"
	"github.com/loomcart/api/internal/handlers"
	"github.com/loomcart/api/internal/payments"
	"github.com/loomcart/api/internal/platform/auth"
	"github.com/loomcart/api/internal/platform/config"
	pfirestore "github.com/loomcart/api/internal/platform/firestore"
	"github.com/loomcart/api/internal/platform/observability"
	"github.com/loomcart/api/internal/repositories"
	firestoreRepo "github.com/loomcart/api/internal/repositories/firestore"
	"github.com/loomcart/api/internal/repositories/memory"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.Fatal("failed to initialise storage backend", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("registry close error", zap.Error(err))
		}
	}()

	var paymentProvider payments.Provider
	if key := strings.TrimSpace(cfg.Payments.StripeAPIKey); key != "" {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey: key,
			Logger: observability.EventLogger(),
		})
		if err != nil {
			logger.Fatal("failed to initialise stripe provider", zap.Error(err))
		}
		paymentProvider = stripeProvider
	} else {
		logger.Warn("stripe api key not configured; orders will be placed without payment authorization")
	}

	container, err := di.NewContainer(ctx, cfg, di.ContainerDeps{
		Registry: registry,
		Payments: paymentProvider,
		Logger:   observability.EventLogger(),
	})
	if err != nil {
		logger.Fatal("failed to build container", zap.Error(err))
	}

	var authOpts []auth.Option
	if cfg.Auth.Issuer != "" {
		authOpts = append(authOpts, auth.WithIssuer(cfg.Auth.Issuer))
	}
	if cfg.Auth.Audience != "" {
		authOpts = append(authOpts, auth.WithAudience(cfg.Auth.Audience))
	}
	authenticator := auth.NewAuthenticator(cfg.Auth.JWTSecret, authOpts...)

	cartHandlers := handlers.NewCartHandlers(container.Services.Cart)
	orderHandlers := handlers.NewOrderHandlers(container.Services.Orders)
	productHandlers := handlers.NewProductHandlers(container.Services.Catalog)
	health := handlers.NewHealthHandlers(func(probeCtx context.Context) error {
		_, err := container.Services.Catalog.ListProducts(probeCtx)
		return err
	})

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(),
			authenticator.Resolve(),
		),
		handlers.WithHealth(health),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithProductRoutes(productHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("loomcart api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildRegistry(cfg config.Config) (repositories.Registry, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memory.NewRegistry(), nil
	case "firestore":
		provider := pfirestore.NewProvider(cfg.Firestore)
		return firestoreRepo.NewRegistry(provider)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
