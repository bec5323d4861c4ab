package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/fjod/go_cart/shopcore/internal/cache"
	"github.com/fjod/go_cart/shopcore/internal/catalog"
	"github.com/fjod/go_cart/shopcore/internal/catalog/fakestore"
	"github.com/fjod/go_cart/shopcore/internal/config"
	h "github.com/fjod/go_cart/shopcore/internal/http"
	"github.com/fjod/go_cart/shopcore/internal/repository"
	"github.com/fjod/go_cart/shopcore/internal/service"
	"github.com/fjod/go_cart/shopcore/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service: "shopcore",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	if err := run(cfg, log); err != nil {
		log.Error("shopcore stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()
	otel.SetTextMapPropagator(propagation.TraceContext{})

	table, err := openTable(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := repository.NewLineItemStore(ctx, table, log)
	if err != nil {
		_ = table.Close(ctx)
		return errors.Wrap(err, "load cart")
	}
	defer store.Close(context.Background())
	log.Info("cart store ready", slog.String("backend", cfg.CartBackend), slog.Int("lines", len(store.Snapshot())))

	cartService := service.NewCartService(store, log)

	catalogCache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	source := fakestore.NewClient(cfg.CatalogBaseURL, cfg.CatalogTimeout, log)
	adapter := catalog.NewAdapter(source, catalogCache, log)
	controller := catalog.NewController(adapter, cfg.DefaultCategory, log)
	defer controller.Close()

	router := h.NewRouter(
		h.NewCartHandler(cartService, cfg.RequestTimeout, log),
		h.NewCatalogHandler(controller),
		cfg.RequestTimeout,
		log,
	)

	srv := h.NewServer(":"+cfg.HTTPPort, otelhttp.NewHandler(router, "shopcore"))

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "http server")
	case <-quit:
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	log.Info("server exited")
	return nil
}

func openTable(ctx context.Context, cfg *config.Config) (repository.Table, error) {
	switch cfg.CartBackend {
	case config.BackendMongo:
		table, err := repository.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, errors.Wrap(err, "open mongo cart table")
		}
		return table, nil
	default:
		table, err := repository.NewSQLiteTable(cfg.SQLitePath)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite cart table")
		}
		return table, nil
	}
}

func openCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (cache.CatalogCache, func(), error) {
	if cfg.CatalogCache != config.CacheRedis {
		c := cache.NewMemoryCache(cfg.CatalogCacheTTL)
		return c, func() { _ = c.Close() }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "redis connection failed")
	}

	c := cache.NewRedisCache(client, cfg.CatalogCacheTTL)
	log.Info("catalog cache on redis", slog.String("addr", cfg.RedisAddr), slog.String("session", c.Session()))
	return c, func() { _ = client.Close() }, nil
}
