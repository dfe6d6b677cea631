package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Nixie-Tech-LLC/azaan/internal/config"
	"github.com/Nixie-Tech-LLC/azaan/internal/db"
	"github.com/Nixie-Tech-LLC/azaan/internal/logging"
	"github.com/Nixie-Tech-LLC/azaan/internal/metrics"
	"github.com/Nixie-Tech-LLC/azaan/internal/notify"
	"github.com/Nixie-Tech-LLC/azaan/internal/playback"
	"github.com/Nixie-Tech-LLC/azaan/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if err := logging.Init(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: cfg.Development(),
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logging")
	}
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	clock := clockwork.NewRealClock()
	store, err := InitState(ctx, cfg, clock)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := service.Options{
		Geo:              cfg.Geo(),
		Platform:         notify.NewLocal(clock, cfg.NotificationsEnabled),
		Store:            store,
		Clock:            clock,
		Assets:           InitStorage(cfg),
		AssetName:        cfg.AzaanAsset,
		FallbackSchedule: cfg.FallbackSchedule,
		LockTTL:          cfg.LockTTL,
	}
	if cfg.AudioEnabled {
		opts.Output = playback.MalgoOutput{}
	}

	if cfg.DatabaseURL != "" {
		if err := db.Init(cfg.DatabaseURL); err != nil {
			return err
		}
		defer db.DB.Close()
		if err := db.RunMigrations(db.DB, cfg.MigrationsPath); err != nil {
			return err
		}
		opts.History = db.NewStore(db.DB)
	} else {
		log.Warn().Msg("DATABASE_URL not set, push tokens and alarm history are disabled")
	}

	svc, err := service.New(opts)
	if err != nil {
		return err
	}

	if cfg.MQTTBrokerURL != "" {
		client, err := notify.NewMQTTClient(cfg.MQTTBrokerURL, "azaan-"+uuid.NewString())
		if err != nil {
			return err
		}
		bridge := notify.NewBridge(client, cfg.MQTTTopicPrefix, opts.Platform)
		if err := bridge.Start(); err != nil {
			client.Disconnect(250)
			return err
		}
		defer bridge.Close()
	}

	if err := svc.Init(ctx); err != nil {
		return err
	}

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	RegisterRoutes(router, cfg, svc)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("address", cfg.ServerAddress).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
		return svc.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
