package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vendorbid/db"
	"vendorbid/db/migrations"
	"vendorbid/internal/auth"
	"vendorbid/internal/config"
	"vendorbid/internal/events"
	"vendorbid/internal/handlers"
	"vendorbid/internal/market"
	"vendorbid/internal/metrics"
	"vendorbid/internal/middleware"
	"vendorbid/internal/uploads"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.MigrateOnStart {
		if err := migrations.Run(conn.DB); err != nil {
			return err
		}
	}

	m := metrics.PrometheusMetrics(metrics.Namespace)

	var limiter *middleware.RateLimiter
	if rdb := config.NewRedisClient(ctx, cfg); rdb != nil {
		defer rdb.Close()
		limiter = middleware.NewRateLimiter(rdb, "ratelimit:auth", cfg.AuthRateLimit, time.Minute, m, logger)
	} else {
		logger.Warn().Msg("redis is not available, auth rate limiting disabled")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		publisher = events.NewAMQPPublisher(cfg.RabbitMQURL)
	}

	photos, err := uploads.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return err
	}

	store := db.NewStorage(conn)
	svc := market.NewService(store,
		market.WithPublisher(publisher),
		market.WithMetrics(m),
		market.WithLogger(logger),
		market.WithPasswordCost(cfg.BcryptCost),
	)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)

	h := handlers.NewHandler(svc, tokens, photos, store, cfg.MaxUploadBytes)
	router := handlers.NewRouter(h, handlers.RouterConfig{
		Tokens:      tokens,
		AuthLimiter: limiter,
		Metrics:     m,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		UploadDir:   photos.Dir(),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ServerAddress).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
