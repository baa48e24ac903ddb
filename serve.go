package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/styleshop/storefront/internal/api"
	"github.com/styleshop/storefront/internal/auth"
	"github.com/styleshop/storefront/internal/checkout"
	"github.com/styleshop/storefront/internal/db"
	"github.com/styleshop/storefront/internal/metrics"
	"github.com/styleshop/storefront/internal/middleware"
	"github.com/styleshop/storefront/internal/services"
	"github.com/styleshop/storefront/internal/session"
)

const (
	activeCartsInterval = 30 * time.Second
	sessionSweepPeriod  = time.Minute
	shutdownTimeout     = 30 * time.Second
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides APP_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != "" {
		cfg.AppPort = servePort
	}

	generated, err := cfg.EnsureJWTSecret()
	if err != nil {
		return err
	}
	if generated {
		logger.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := loadCatalog()
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", zap.Int("products", store.Len()))

	appMetrics, shutdownMetrics, err := metrics.InitMetrics(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			logger.Warn("error shutting down meter provider", zap.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	orderStore, closeOrders, err := openOrderStore(ctx, appMetrics)
	if err != nil {
		return err
	}
	defer closeOrders()

	sessions, closeSessions, err := openSessionStore(ctx, g, gctx)
	if err != nil {
		return err
	}
	defer closeSessions()

	// Initialize services
	productService := services.NewProductService(store, appMetrics, logger, cfg.PageSize)
	cartService := services.NewCartService(sessions, store, cfg.Pricing(), cfg.Currency, appMetrics, logger)
	orderService := services.NewOrderService(orderStore, appMetrics, logger)
	processor := checkout.NewSimulatedProcessor(cfg.CheckoutLatency, cfg.OrderNumberPrefix)
	checkoutService := services.NewCheckoutService(cartService, orderService, processor, appMetrics, logger)
	userService := services.NewUserService(
		auth.NewMockService(cfg.AuthLatency, logger),
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry),
		appMetrics, logger,
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	app := api.NewApp(appMetrics, logger, limiter, productService, cartService, checkoutService, orderService, userService)

	router := mux.NewRouter()
	app.SetupRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.GetAppPortInt()),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		// checkout submit waits on the payment processor
		WriteTimeout: 15*time.Second + cfg.CheckoutLatency,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.Bool("metrics_export", cfg.OTELMetricsEnabled),
			zap.String("otlp_endpoint", cfg.OTELExporterOTLPEndpoint),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		cartService.RunActiveCartsMonitor(gctx, activeCartsInterval)
		return nil
	})
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}

// openOrderStore connects to MySQL when DB_ENABLED is set and falls back
// to keeping orders in memory.
func openOrderStore(ctx context.Context, appMetrics *metrics.AppMetrics) (services.OrderStore, func(), error) {
	if !cfg.DBEnabled {
		logger.Info("order history kept in memory")
		return services.NewMemoryOrderStore(), func() {}, nil
	}

	database, err := db.NewDB(ctx, cfg.GetDSN(), cfg.OTELServiceName, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.InitSchema(ctx, db.Schema); err != nil {
		logger.Warn("could not initialize schema, assuming it already exists", zap.Error(err))
	}
	logger.Info("order history stored in MySQL", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))
	return services.NewMySQLOrderStore(database, appMetrics), func() { database.Close() }, nil
}

// openSessionStore uses Redis when REDIS_ADDR is set. The memory store
// gets a janitor goroutine in g that evicts expired sessions.
func openSessionStore(ctx context.Context, g *errgroup.Group, gctx context.Context) (session.Store, func(), error) {
	if cfg.RedisAddr == "" {
		mem := session.NewMemoryStore(cfg.SessionTTL)
		g.Go(func() error {
			mem.RunJanitor(gctx, sessionSweepPeriod, logger)
			return nil
		})
		logger.Info("sessions kept in memory", zap.Duration("ttl", cfg.SessionTTL))
		return mem, func() {}, nil
	}

	rs := session.NewRedisStore(session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.SessionTTL)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		_ = rs.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("sessions stored in Redis", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.SessionTTL))
	return rs, func() { _ = rs.Close() }, nil
}
