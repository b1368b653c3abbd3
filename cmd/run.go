package cmd

import (
	"context"
	"fmt"
	"time"

	"earnify/api"
	"earnify/application"
	"earnify/config"
	"earnify/database"
	"earnify/events"
	"earnify/infrastructure"
	"earnify/infrastructure/observability"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const limiterSweepInterval = time.Minute

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	log.WithField("environment", cfg.Environment).Info("Starting earnify...")

	metricsProvider := observability.NewMetricsProvider(cfg)
	if err := metricsProvider.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Failed to flush metrics")
		}
	}()

	log.Info("Connecting to database...")
	db, err := database.NewConnectionWithOptions(ctx, cfg.GetDatabaseURL(), database.PoolOptions{
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("Closing database connection...")
		db.Close()
	}()

	localBus := events.NewBus()
	subscribeAuditLog(localBus)

	publisher, closePublisher, err := newEventPublisher(ctx, cfg, localBus, metricsProvider)
	if err != nil {
		return err
	}
	defer closePublisher()

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, publisher)
	deps := buildServices(cfg, uowFactory, metricsProvider)

	httpMetrics := observability.NewHTTPMetrics()
	server := api.NewServer(deps.api, api.OptionsFromConfig(cfg, httpMetrics))
	worker := application.NewReferralBonusWorker(deps.bonuses, cfg.ReferralSweepBatch, cfg.ReferralMaxAttempts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.HTTPAddr, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		server.RunLimiterSweeper(gctx, limiterSweepInterval)
		return nil
	})
	g.Go(func() error {
		stop, err := worker.Start(gctx, cfg.ReferralSweepSchedule)
		if err != nil {
			return err
		}
		<-gctx.Done()
		stop()
		return nil
	})

	log.WithField("addr", cfg.HTTPAddr).Info("Earnify is running")
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Shutdown completed")
	return nil
}
