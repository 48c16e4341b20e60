package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/internal/api"
	"github.com/Checker-Finance/refdata/internal/identity"
	"github.com/Checker-Finance/refdata/internal/jobs"
	"github.com/Checker-Finance/refdata/internal/loader"
	"github.com/Checker-Finance/refdata/internal/publisher"
	"github.com/Checker-Finance/refdata/internal/rabbitmq"
	"github.com/Checker-Finance/refdata/internal/rate"
	internalsecrets "github.com/Checker-Finance/refdata/internal/secrets"
	"github.com/Checker-Finance/refdata/internal/store"
	"github.com/Checker-Finance/refdata/pkg/config"
	"github.com/Checker-Finance/refdata/pkg/logger"
	"github.com/Checker-Finance/refdata/pkg/secrets"
	"github.com/Checker-Finance/refdata/pkg/utils"
)

type eventPublisher interface {
	jobs.EventPublisher
	Close() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()
	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()

	if err := cfg.Validate(); err != nil {
		logg.Fatalw("invalid configuration", "error", err)
	}
	logg.Infow("starting [refdata]...",
		"data_dir", cfg.DataDir,
		"timezone", cfg.TradingTimezone,
		"publisher", cfg.Publisher)

	// --- Connection overrides from AWS Secrets Manager ---
	if cfg.SecretName != "" {
		provider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		resolver := internalsecrets.NewResolver(logger.Named("secrets"), provider,
			secrets.NewCache[internalsecrets.Connections](cfg.CacheTTL))
		if err := resolver.Overlay(ctx, cfg); err != nil {
			logg.Fatalw("failed to resolve connection secret", "secret", cfg.SecretName, "error", err)
		}
	}

	// --- Load reference data ---
	reg := identity.NewRegistry()
	ld := loader.New(reg, logger.Named("loader"))
	snap, err := ld.LoadSnapshot(loader.Paths{
		GeneralTickerInfo: cfg.GeneralTickerInfoPath(),
		TradingSession:    cfg.TradingSessionPath(),
		Timezone:          cfg.TradingTimezone,
	})
	if err != nil {
		logg.Fatalw("reference data load failed", "error", err)
	}
	stats := snap.Stats()
	logg.Infow("reference data loaded",
		"snapshot_id", stats.SnapshotID,
		"products", stats.Products,
		"product_infos", stats.ProductInfos,
		"sessions", stats.Sessions,
		"timezones", stats.Timezones)

	// --- Optional store mirror ---
	checks := map[string]api.HealthFunc{}
	var st *store.HybridStore
	if cfg.StoreEnabled() {
		logg.Infow("connecting store", "redis", cfg.RedisAddr, "dsn", utils.MaskDSN(cfg.DatabaseURL))
		st, err = store.NewHybrid(store.Options{
			RedisAddr: cfg.RedisAddr,
			RedisDB:   cfg.RedisDB,
			RedisPass: cfg.RedisPass,
			PGURL:     cfg.DatabaseURL,
			PGPool: store.PGPoolConfig{
				MaxConns:          int32(cfg.PGMaxConns),
				MinConns:          int32(cfg.PGMinConns),
				MaxConnLifetime:   cfg.PGMaxConnLifetime,
				MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
				HealthCheckPeriod: cfg.PGHealthCheckPeriod,
			},
			TTL: cfg.SnapshotTTL,
		}, logger.Named("store"))
		if err != nil {
			logg.Fatalw("failed to init store", "error", err)
		}
		checks["store"] = st.HealthCheck
	}

	// --- Optional event publisher ---
	pub, err := newPublisher(cfg, logger.Named("publisher"))
	if err != nil {
		logg.Fatalw("failed to init publisher", "backend", cfg.Publisher, "error", err)
	}

	// --- Initial sync + periodic resync ---
	var syncer *jobs.SnapshotSyncer
	if st != nil || pub != nil {
		var mirror jobs.Mirror
		if st != nil {
			mirror = st
		}
		var events jobs.EventPublisher
		if pub != nil {
			events = pub
		}
		syncer = jobs.NewSnapshotSyncer(logger.Named("jobs"), snap, mirror, events, cfg.SyncInterval)
		if err := syncer.RunOnce(ctx); err != nil {
			logg.Warnw("initial snapshot sync failed", "error", err)
		}
		go syncer.Start(ctx)
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.HTTPReadTimeout,
		WriteTimeout:          cfg.HTTPWriteTimeout,
		IdleTimeout:           cfg.HTTPIdleTimeout,
		DisableStartupMessage: true,
	})
	limiter := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.APIRPS,
		Burst:             cfg.APIBurst,
	})
	handler := api.NewHandler(logger.Named("api"), snap)
	api.RegisterRoutes(app, handler, checks, limiter.Middleware())

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down [refdata]...")

	if syncer != nil {
		syncer.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if pub != nil {
		if err := pub.Close(); err != nil {
			logg.Warnw("publisher.close_failed", "error", err)
		}
	}
	if st != nil {
		if err := st.Close(); err != nil {
			logg.Warnw("store.close_failed", "error", err)
		}
	}
}

// newPublisher returns nil when events are disabled.
func newPublisher(cfg *config.Config, log *zap.Logger) (eventPublisher, error) {
	switch cfg.Publisher {
	case config.PublisherNATS:
		log.Info("publisher.connecting", zap.String("backend", "nats"), zap.String("url", utils.MaskURL(cfg.NATSURL)))
		p, err := publisher.Connect(cfg.NATSURL, cfg.EventSubject, cfg.ServiceName, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.PublisherRabbitMQ:
		log.Info("publisher.connecting", zap.String("backend", "rabbitmq"), zap.String("url", utils.MaskURL(cfg.RabbitMQURL)))
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.EventSubject, cfg.ServiceName, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, nil
	}
}
