package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/territory-status/modules/territory/infrastructure/archive"
	"github.com/iota-uz/territory-status/modules/territory/infrastructure/persistence"
	"github.com/iota-uz/territory-status/modules/territory/services"
	"github.com/iota-uz/territory-status/pkg/configuration"
	"github.com/iota-uz/territory-status/pkg/logging"
	"github.com/iota-uz/territory-status/pkg/runlock"
)

// app holds everything a command needs; close releases it in reverse order.
type app struct {
	conf   *configuration.Configuration
	logger *logrus.Entry
	store  *persistence.Store

	redis       *redis.Client
	stopTracing func()
	pushOnClose bool
}

func openApp(ctx context.Context, g *globalOptions) (*app, error) {
	conf, err := configuration.Load(g.envFiles...)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("load configuration: %w", err))
	}
	if g.storage != "" {
		conf.StorageDriver = g.storage
		if err := conf.Validate(); err != nil {
			conf.Unload()
			return nil, withCode(exitUsage, err)
		}
	}

	a := &app{
		conf:   conf,
		logger: logrus.NewEntry(conf.Logger()).WithField("storage", conf.StorageDriver),
	}
	if conf.OpenTelemetry.Endpoint != "" {
		a.stopTracing = logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.Endpoint, a.logger)
	}

	store, err := persistence.Open(ctx, persistence.Options{
		Driver:        persistence.Driver(conf.StorageDriver),
		PostgresDSN:   conf.Database.ConnectionString(),
		MongoURI:      conf.Mongo.URI,
		MongoDatabase: conf.Mongo.Database,
		Migrate:       true,
	})
	if err != nil {
		a.close(ctx)
		return nil, withCode(exitDB, fmt.Errorf("open %s store: %w", conf.StorageDriver, err))
	}
	a.store = store
	return a, nil
}

// locker picks the run lock for imports. auto means an advisory lock when
// the registry lives in postgres, otherwise a process-local lock.
func (a *app) locker() (runlock.Locker, error) {
	backend := a.conf.LockBackend
	if backend == "auto" {
		backend = "memory"
		if a.store.Pool != nil {
			backend = "postgres"
		}
	}
	switch backend {
	case "none":
		return nil, nil
	case "memory":
		return runlock.NewMemory(), nil
	case "postgres":
		if a.store.Pool == nil {
			return nil, withCode(exitUsage, fmt.Errorf("postgres lock requires the postgres store"))
		}
		return runlock.NewPostgres(a.store.Pool), nil
	case "redis":
		opts, err := redis.ParseURL(a.conf.RedisURL)
		if err != nil {
			return nil, withCode(exitUsage, fmt.Errorf("invalid REDIS_URL: %w", err))
		}
		a.redis = redis.NewClient(opts)
		return runlock.NewRedis(a.redis, 0), nil
	default:
		return nil, withCode(exitUsage, fmt.Errorf("unknown lock backend %q", backend))
	}
}

func (a *app) sourceArchive(ctx context.Context) (services.SourceArchive, error) {
	opts := a.conf.Archive
	switch archive.Driver(opts.Driver) {
	case archive.DriverFilesystem:
		s, err := archive.NewFS(opts.Dir)
		if err != nil {
			return nil, withCode(exitDBWrite, err)
		}
		return s, nil
	case archive.DriverS3:
		s, err := archive.NewS3(ctx, archive.S3Config{
			Bucket:    opts.S3Bucket,
			Region:    opts.S3Region,
			Endpoint:  opts.S3Endpoint,
			PathStyle: opts.S3PathStyle,
			Prefix:    opts.S3Prefix,
		})
		if err != nil {
			return nil, withCode(exitUsage, err)
		}
		return s, nil
	}
	return nil, nil
}

func (a *app) importService(ctx context.Context) (*services.ImportService, error) {
	locker, err := a.locker()
	if err != nil {
		return nil, err
	}
	src, err := a.sourceArchive(ctx)
	if err != nil {
		return nil, err
	}
	a.pushOnClose = true
	return services.NewImportService(a.store.Registry, a.store.Sessions, services.ImportServiceOptions{
		Archive: src,
		Locker:  locker,
		Logger:  a.logger,
	}), nil
}

func (a *app) pushMetrics(ctx context.Context) {
	url := a.conf.Prometheus.PushgatewayURL
	if url == "" || !a.pushOnClose {
		return
	}
	p := push.New(url, a.conf.Prometheus.Job)
	for _, c := range services.Collectors() {
		p = p.Collector(c)
	}
	if err := p.PushContext(ctx); err != nil {
		a.logger.WithError(err).Warn("push metrics")
	}
}

func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	a.pushMetrics(ctx)
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.store.Close(ctx); err != nil {
		a.logger.WithError(err).Warn("close store")
	}
	if a.stopTracing != nil {
		a.stopTracing()
	}
	a.conf.Unload()
}

func runWithApp(cmd *cobra.Command, g *globalOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.close(ctx)
	return fn(ctx, a)
}
