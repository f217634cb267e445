package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/cart-offer/internal/domain/cart"
	"github.com/xenking/cart-offer/internal/domain/offer"
	"github.com/xenking/cart-offer/internal/handler"
	"github.com/xenking/cart-offer/internal/seed"
	"github.com/xenking/cart-offer/internal/segment"
	"github.com/xenking/cart-offer/pkg/health"
	"github.com/xenking/cart-offer/pkg/httpmiddleware"
)

const serviceName = "cart-offer"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("segment_service", cfg.SegmentService.URL),
	)

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Segment client, optionally cached in Redis.
	segmentOpts := []segment.Option{
		segment.WithTelemetry(m.TracerProvider(), m.MeterProvider()),
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer func() { _ = rdb.Close() }()

		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		segmentOpts = append(segmentOpts, segment.WithCache(segment.NewRedisCache(rdb, cfg.Redis.CacheTTL)))
		lg.Info("Segment cache enabled", zap.String("redis", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.CacheTTL))
	}
	segments, err := segment.NewClient(segment.Config{
		BaseURL: cfg.SegmentService.URL,
		Timeout: cfg.SegmentService.Timeout,
	}, segmentOpts...)
	if err != nil {
		return errors.Wrap(err, "create segment client")
	}

	// Offer registry, seeded before the server accepts traffic.
	registry := offer.NewRegistry()
	if cfg.SeedFile != "" {
		if _, err := seed.LoadFile(ctx, cfg.SeedFile, registry); err != nil {
			return errors.Wrap(err, "seed offers")
		}
	}

	// Domain services.
	cartService, err := cart.NewService(segments, offer.NewEngine(registry), m.MeterProvider().Meter(serviceName))
	if err != nil {
		return errors.Wrap(err, "create cart service")
	}

	// HTTP.
	instrument, err := httpmiddleware.Instrument(serviceName, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create instrumentation")
	}

	r := chi.NewRouter()
	r.Use(
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.LogRequests(),
		instrument,
		httpmiddleware.Recovery(),
		middleware.Timeout(cfg.RequestTimeout),
	)
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(registry, cartService).Routes(r)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           r,
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr), zap.Int("offers", registry.Len()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	// Graceful shutdown: wait for cancellation (or a server failure), drain,
	// then stop.
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		if ctx.Err() != nil {
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		defer healthSvc.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	return g.Wait()
}
