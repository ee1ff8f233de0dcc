package server

import (
	"context"
	"errors"
	"io"

	"github.com/emrgen/servicecatalog/internal/cache"
	"github.com/emrgen/servicecatalog/internal/compress"
	"github.com/emrgen/servicecatalog/internal/config"
	"github.com/emrgen/servicecatalog/internal/lookup"
	"github.com/emrgen/servicecatalog/internal/metrics"
	"github.com/emrgen/servicecatalog/internal/queue"
	"github.com/emrgen/servicecatalog/internal/service"
	"github.com/emrgen/servicecatalog/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds the wired components of the catalog engine.
type App struct {
	Config    *config.Config
	Store     *store.GormStore
	Languages *lookup.Holder
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Service   *service.PublishingService

	closers []io.Closer
}

// NewApp wires the engine on top of db. Redis and Kafka are used when configured; without
// them the published version cache lives in process and transition events are dropped.
func NewApp(ctx context.Context, cfg *config.Config, db *gorm.DB) (*App, error) {
	app := &App{
		Config:   cfg,
		Store:    store.NewGormStore(db),
		Registry: prometheus.NewRegistry(),
	}

	if err := app.Store.Migrate(); err != nil {
		return nil, err
	}

	app.Languages = lookup.NewHolder(app.Store)
	if err := app.Languages.Reload(ctx); err != nil {
		return nil, err
	}

	compressor, err := compress.New(cfg.Compression)
	if err != nil {
		return nil, err
	}

	var published cache.PublishedVersionCache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		redis := cache.NewRedisPublishedCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		app.closers = append(app.closers, redis)
		published = redis
		logrus.Infof("using redis published version cache at %s", cfg.RedisAddr)
	}

	var transitions queue.TransitionQueue = queue.NewNop()
	if cfg.KafkaBrokers != "" {
		kafka, err := queue.NewKafkaQueue(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, kafka)
		transitions = kafka
		logrus.Infof("publishing transition events to kafka topic %s", cfg.KafkaTopic)
	}

	app.Metrics = metrics.NewMetrics(app.Registry)
	app.Service = service.NewPublishingService(compressor, app.Store, published, transitions, app.Languages,
		service.WithMetrics(app.Metrics),
		service.WithExpirationDefaults(service.ExpirationDefaults{
			DraftLifetimeMonths:     cfg.DraftLifetimeMonths,
			PublishedLifetimeMonths: cfg.PublishedLifetimeMonths,
		}),
	)

	return app, nil
}

// Close releases the cache and queue connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil

	return errors.Join(errs...)
}
