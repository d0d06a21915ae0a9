package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yashagency/storefront-client/internal/api"
	"github.com/yashagency/storefront-client/internal/cart"
	"github.com/yashagency/storefront-client/internal/catalog"
	"github.com/yashagency/storefront-client/internal/gateway"
	"github.com/yashagency/storefront-client/internal/notify"
	"github.com/yashagency/storefront-client/internal/outbox"
	"github.com/yashagency/storefront-client/internal/session"
	"github.com/yashagency/storefront-client/internal/store"
	"github.com/yashagency/storefront-client/pkg/config"
	"github.com/yashagency/storefront-client/pkg/logger"
	"github.com/yashagency/storefront-client/pkg/shutdown"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync daemon and local API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Service: "storefront-client",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	gw := gateway.New(cfg.APIBaseURL, st)
	engine := cart.NewEngine(st, gw)

	var cache catalog.ProductCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(parent).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		cache = catalog.NewRedisCache(rdb)
	} else {
		cache = catalog.NewMemoryCache(catalog.DefaultTTL)
	}
	products := catalog.NewService(gw, cache)

	poller := notify.NewPoller(gw, cfg.NotifyInterval)
	manager := session.NewManager(st, gw, engine, poller)
	engine.SetAuthFailureHandler(manager.Invalidate)
	poller.SetAuthFailureHandler(manager.Invalidate)

	queue := outbox.NewQueue(st.DB())
	worker := outbox.NewWorker(queue, gw, outbox.Config{
		Tick:          cfg.ReplayInterval,
		MaxAttempts:   cfg.ReplayMaxAttempts,
		OnAuthFailure: manager.Invalidate,
	})
	gw.SetOutbox(worker)

	ctx, cancel := shutdown.WithSignals(parent)
	defer cancel()

	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	go engine.Run(ctx)
	go worker.Run(ctx)
	manager.Restore(ctx)

	router := api.NewRouter(api.Handlers{
		Cart:          api.NewCartHandler(engine),
		Session:       api.NewSessionHandler(manager),
		Catalog:       api.NewCatalogHandler(products),
		Notifications: api.NewNotificationsHandler(poller),
		Consent:       api.NewConsentHandler(st),
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      otelhttp.NewHandler(router, "storefront-local-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("local API listening", "addr", cfg.ListenAddr, "remote", cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down daemon...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("daemon exited")
	return nil
}
