package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/iliyamo/listing-booking/internal/config"
	"github.com/iliyamo/listing-booking/internal/database"
	"github.com/iliyamo/listing-booking/internal/handler"
	"github.com/iliyamo/listing-booking/internal/middleware"
	"github.com/iliyamo/listing-booking/internal/obs"
	"github.com/iliyamo/listing-booking/internal/queue"
	"github.com/iliyamo/listing-booking/internal/repository"
	"github.com/iliyamo/listing-booking/internal/router"
	"github.com/iliyamo/listing-booking/internal/service"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations before serving")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logger.Info("migrations applied", "db", cfg.DBName)
			return nil
		},
	}
}

func serve(parent context.Context, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("migrations applied", "db", cfg.DBName)
	}

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	reservations := repository.NewReservationRepo(db)
	listings := repository.NewListingRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	var events service.Publisher
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.AMQPURL, logger)
		defer pub.Close()
		events = pub

		audit := queue.NewAuditConsumer(cfg.AMQPURL, logger)
		go func() {
			if err := audit.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", "err", err)
			}
		}()
	}

	bookings := service.NewBookingService(reservations, listings, events, logger, cfg.RequestTimeout)
	search := service.NewSearchService(listings, reservations, logger, cfg.RequestTimeout)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLog(logger))
	// Global bucket keys on ip and route: it runs before JWTAuth.
	e.Use(middleware.NewTokenBucket(rlCfg, rdb, logger))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, logger), cfg.JWTSecret)
	router.RegisterBooking(e, handler.NewBookingHandler(bookings, logger), cfg.JWTSecret,
		middleware.NewTokenBucket(rlCfg.ForCreate(), rdb, logger))
	router.RegisterTenantListing(e, handler.NewTenantListingHandler(search, logger),
		middleware.NewRedisCache(cacheCfg, rdb, logger))

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
