package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/xtrntr/p2pexchange/internal/account"
	"github.com/xtrntr/p2pexchange/internal/api"
	"github.com/xtrntr/p2pexchange/internal/auth"
	"github.com/xtrntr/p2pexchange/internal/avatars"
	"github.com/xtrntr/p2pexchange/internal/config"
	"github.com/xtrntr/p2pexchange/internal/db"
	"github.com/xtrntr/p2pexchange/internal/exchange"
	"github.com/xtrntr/p2pexchange/internal/identity"
	"github.com/xtrntr/p2pexchange/internal/logging"
	"github.com/xtrntr/p2pexchange/internal/metrics"
	"github.com/xtrntr/p2pexchange/internal/orders"
	"github.com/xtrntr/p2pexchange/internal/scheduler"
)

// Main entry point: sets up database, identity and order services, and the HTTP server
func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		logger.Debug().Msg(".env file not found, using environment variables")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	database, err := db.NewDB(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close(context.Background())

	if err := database.Migrate(ctx); err != nil {
		return err
	}

	revocations, closeRevocations, err := newRevocations(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRevocations()

	m := metrics.PrometheusMetrics()
	sessions := auth.NewSessionService(cfg.Session.Secret, cfg.Session.TTL, revocations)

	// Identity services
	deriver, err := identity.NewDeriver(identity.Options{
		MaxNicknameLength: cfg.Identity.MaxNicknameLength,
		MaxNumber:         cfg.Identity.MaxNumber,
		AvatarSize:        cfg.Identity.AvatarSize,
	})
	if err != nil {
		return err
	}
	avatarStore, err := avatars.NewFileStore(cfg.Identity.AvatarDir)
	if err != nil {
		return err
	}
	provisioner := account.NewProvisioner(database, sessions, account.Options{
		WelcomeGrace: cfg.Session.WelcomeGrace,
		DeleteMaxAge: cfg.Session.DeleteMaxAge,
	}, logger, m)
	generator := account.NewGenerator(deriver, avatarStore, provisioner, logger, m)

	// Initialize the public book from the orders still open
	book := exchange.NewBook()
	public, err := database.GetPublicOrders(ctx)
	if err != nil {
		return err
	}
	book.Load(public)
	logger.Info().Int("orders", len(public)).Msg("order book loaded")

	ledger := orders.NewLedger(database, book, cfg.Orders.Lifetime, logger, m)
	viewer := orders.NewViewer(database, logger, m)

	expirer := scheduler.NewScheduler(cfg.Orders.ExpirySchedule, database, book, logger, m)
	if err := expirer.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer expirer.Stop()

	// Initialize API handlers
	handler := api.NewHandler(generator, sessions, ledger, viewer, book, database, logger)
	hub := api.NewHub(book, func(r *http.Request) bool { return true }, logger)
	go hub.Run(ctx, 5*time.Second, book.Updates())

	// Set up HTTP router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// Enable CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handler.Routes(r)
	r.Get("/ws", hub.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Serve static files, including generated avatars under /static/assets/avatars
	r.Handle("/*", http.FileServer(http.Dir(cfg.Server.StaticDir)))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRevocations uses Redis when configured so revoked sessions survive restarts
// and are shared between instances
func newRevocations(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (auth.RevocationStore, func(), error) {
	if cfg.Redis.URL == "" {
		logger.Warn().Msg("REDIS_URL not set, keeping session revocations in memory")
		return auth.NewMemoryRevocations(), func() {}, nil
	}

	store, err := auth.NewRedisRevocations(cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return store, func() { store.Close() }, nil
}
