package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"lpgpos/internal/cache"
	"lpgpos/internal/cart"
	"lpgpos/internal/catalog"
	"lpgpos/internal/config"
	"lpgpos/internal/httpapi"
	"lpgpos/internal/obs"
	"lpgpos/internal/service"
	"lpgpos/internal/store"
	"lpgpos/internal/store/memory"
	pgstore "lpgpos/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)
	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid security configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server, closers, err := buildServer(ctx, cfg, logger, reg)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}

	go func() {
		logger.Info().Str("addr", cfg.Address()).Msg("LPG POS backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error().Err(err).Msg("close error")
		}
	}

	logger.Info().Msg("server stopped")
}

// buildServer wires catalog, repository, cache, service and API. The
// returned closers release external connections in order.
func buildServer(ctx context.Context, cfg config.Config, logger zerolog.Logger, reg *prometheus.Registry) (*http.Server, []func() error, error) {
	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		loaded, err := catalog.Load(cfg.CatalogFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogFile, err)
		}
		cat = loaded
		logger.Info().Str("file", cfg.CatalogFile).Int("products", len(cat.Products)).Msg("catalog loaded")
	}

	var repo store.Repository
	closers := make([]func() error, 0, 2)
	syncCatalog := false

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		syncCatalog = true
		logger.Info().Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded(cat.Products)
		logger.Info().Msg("repository: in-memory")
	}

	productCache := cache.ProductCache(cache.NoopProductCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisProductCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using noop cache")
			_ = redisCache.Close()
		} else {
			productCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info().Msg("cache: redis")
		}
	} else {
		logger.Info().Msg("cache: noop")
	}

	tax := cart.ZeroTax
	if cfg.TaxRatePercent > 0 {
		tax = cart.RateTax(cfg.TaxRatePercent)
	}

	svc := service.New(repo, service.Options{
		StoreID:  cfg.StoreID,
		Tariff:   cat.Tariff,
		Tax:      tax,
		Cache:    productCache,
		CacheTTL: cfg.ProductCacheTTL,
		Logger:   logger,
		Metrics:  obs.NewPOSMetrics(cfg.MetricsNamespace, reg),
	})
	if syncCatalog {
		if err := svc.SyncCatalog(ctx, cat.Products); err != nil {
			closeAll(closers)
			return nil, nil, err
		}
	}

	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		Logger:        logger,
		HTTPMetrics:   obs.NewHTTPMetrics(cfg.MetricsNamespace, reg),
		Gatherer:      reg,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server, closers, nil
}

func closeAll(closers []func() error) {
	for _, closeFn := range closers {
		_ = closeFn()
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AllowedOrigin == "*" {
		return fmt.Errorf("ALLOWED_ORIGIN must name a concrete origin")
	}
	return nil
}
