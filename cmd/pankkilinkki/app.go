package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oikeuttaelaimille/pankkilinkki/internal/config"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/handler"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/metrics"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/notify"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/registry"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage/filesystem"
	"github.com/oikeuttaelaimille/pankkilinkki/internal/storage/mongodb"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/reliability"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/transport"
)

// app holds the wired components of a processing run
type app struct {
	store    storage.Store
	handler  *handler.Handler
	tracker  *reliability.Tracker
	registry *prometheus.Registry
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case config.StorageMongoDB:
		return mongodb.NewStore(ctx, &mongodb.Config{
			URI:              cfg.Storage.MongoDB.URI,
			Database:         cfg.Storage.MongoDB.Database,
			GridFSBucket:     cfg.Storage.MongoDB.GridFS.BucketName,
			ResultCollection: cfg.Storage.MongoDB.Collection,
		})
	default:
		return filesystem.NewStore(cfg.Storage.Dir)
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Type, err)
	}

	loc, err := cfg.Ledger.Location()
	if err != nil {
		store.Close(ctx)
		return nil, err
	}

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)
	tracker := reliability.NewTracker(cfg.Storage.DuplicateWindow)

	httpConfig := transport.DefaultConfig()
	httpConfig.Timeout = cfg.Registry.Timeout
	poster := transport.NewClient(httpConfig)

	reg, err := registry.New(registry.Config{
		Endpoint: cfg.Registry.Endpoint,
		APIKey:   cfg.Registry.APIKey,
		Retry: reliability.RetryPolicy{
			MaxRetries:    cfg.Registry.MaxRetries,
			RetryInterval: cfg.Registry.RetryInterval,
			Multiplier:    2,
		},
		Poster:  poster,
		Tracker: tracker,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		store.Close(ctx)
		return nil, err
	}

	notifier := notify.New(notify.Config{
		Stage:             cfg.Stage,
		InfoWebhook:       cfg.Slack.InfoWebhook,
		LogsWebhook:       cfg.Slack.LogsWebhook,
		RequestsPerSecond: cfg.Slack.RequestsPerSecond,
		Poster:            poster,
		Metrics:           m,
		Logger:            logger,
	})

	h := handler.New(&handler.Config{
		Files:    store,
		Results:  store,
		Registry: reg,
		Notifier: notifier,
		Tracker:  tracker,
		Location: loc,
		Metrics:  m,
		Logger:   logger,
	})

	return &app{store: store, handler: h, tracker: tracker, registry: promRegistry}, nil
}
