package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/address"
	"github.com/vasiliy-maslov/product-management/internal/auth"
	"github.com/vasiliy-maslov/product-management/internal/cart"
	"github.com/vasiliy-maslov/product-management/internal/catalog"
	"github.com/vasiliy-maslov/product-management/internal/config"
	"github.com/vasiliy-maslov/product-management/internal/db"
	apihttp "github.com/vasiliy-maslov/product-management/internal/handler/http"
	"github.com/vasiliy-maslov/product-management/internal/order"
	"github.com/vasiliy-maslov/product-management/internal/seed"
	"github.com/vasiliy-maslov/product-management/internal/user"
)

func setupLogger(cfg config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	log.Logger = log.With().Str("service", cfg.Name).Logger()
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg.App)

	log.Info().Str("env", cfg.App.Env).Msg("Product management service starting...")

	ctx := context.Background()

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	pg, err := db.New(ctx, cfg.Postgres, db.WithTxAttempts(cfg.Checkout.TxAttempts))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	catalogSvc := catalog.NewService(catalog.NewRepository(pg), pg)
	cartSvc := cart.NewService(cart.NewRepository(pg), catalogSvc)
	addressSvc := address.NewService(address.NewRepository(pg))
	userSvc := user.NewService(user.NewRepository(pg), auth.NewBcryptHasher(), cartSvc, pg)
	orderSvc := order.NewService(order.NewRepository(pg), cartSvc, catalogSvc, addressSvc, pg)

	seedFile, err := seed.Load(cfg.Seed.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load seed data")
	}
	if err := seed.New(userSvc, catalogSvc).Run(ctx, seedFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed database")
	}

	router := apihttp.NewRouter(apihttp.Services{
		Users:     userSvc,
		Catalog:   catalogSvc,
		Carts:     cartSvc,
		Orders:    orderSvc,
		Addresses: addressSvc,
		Tokens:    auth.NewTokenIssuer(cfg.Auth),
		DB:        pg,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Product management service stopped gracefully")
}
