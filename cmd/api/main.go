package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pixelbridge/pixelbridge-backend/api/routes"
	"github.com/pixelbridge/pixelbridge-backend/internal/cleanup"
	"github.com/pixelbridge/pixelbridge-backend/internal/diagnosis"
	"github.com/pixelbridge/pixelbridge-backend/internal/events"
	"github.com/pixelbridge/pixelbridge-backend/internal/installer"
	"github.com/pixelbridge/pixelbridge-backend/internal/oauth"
	"github.com/pixelbridge/pixelbridge-backend/internal/pixel"
	"github.com/pixelbridge/pixelbridge-backend/internal/shopconfig"
	"github.com/pixelbridge/pixelbridge-backend/internal/shopify"
	"github.com/pixelbridge/pixelbridge-backend/pkg/config"
	"github.com/pixelbridge/pixelbridge-backend/pkg/kv"
	"github.com/pixelbridge/pixelbridge-backend/pkg/logger"
	"github.com/pixelbridge/pixelbridge-backend/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	store, err := kv.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	apiMetrics := metrics.NewAPIMetrics(registry)

	configs, err := shopconfig.NewRepository(store)
	if err != nil {
		logg.Error(context.Background(), "failed to create config repository", err)
		os.Exit(1)
	}

	recorder, err := events.NewRecorder(events.RecorderParams{
		Store:        store,
		ListCap:      cfg.Events.ListCap,
		DefaultLimit: cfg.Events.DefaultPageSize,
		MaxLimit:     cfg.Events.MaxPageSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event recorder", err)
		os.Exit(1)
	}

	shopifyClient := shopify.NewClient(cfg.Shopify)
	sessions := oauth.NewSessionRepository(store, cfg.OAuth.SessionTTL)
	authService := oauth.NewService(oauth.ServiceParams{
		Exchanger: shopifyClient,
		States:    oauth.NewStateSigner(cfg.Shopify.APISecret, cfg.OAuth.StateTTL),
		Sessions:  sessions,
		Logg:      logg,
		APIKey:    cfg.Shopify.APIKey,
		Scopes:    cfg.Shopify.Scopes,
		AppURL:    cfg.Shopify.AppURL,
	})

	generator := pixel.NewGenerator(cfg.Shopify.AppURL)
	installService := installer.NewService(installer.ServiceParams{
		Tags:     shopifyClient,
		Sessions: sessions,
		Configs:  configs,
		Store:    store,
		Logg:     logg,
		AppURL:   cfg.Shopify.AppURL,
	})
	diagnosisService := diagnosis.NewService(diagnosis.ServiceParams{
		Sessions: sessions,
		Configs:  configs,
		Installs: installService,
		Stats:    recorder,
		Pixels:   generator,
		Logg:     logg,
	})
	cleanupService := cleanup.NewService(cleanup.ServiceParams{
		Store:        store,
		Logg:         logg,
		TombstoneTTL: cfg.Cleanup.TombstoneTTL,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			Ping:       store.Ping,
			Configs:    configs,
			Events:     recorder,
			Pixels:     generator,
			Installer:  installService,
			Diagnosis:  diagnosisService,
			Auth:       authService,
			Cleanup:    cleanupService,
			APIMetrics: apiMetrics,
			Registry:   registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
