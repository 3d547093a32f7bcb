package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BearBump/DriverPortal/config"
	"github.com/BearBump/DriverPortal/internal/broker/kafka"
	"github.com/BearBump/DriverPortal/internal/cache/rediscache"
	"github.com/BearBump/DriverPortal/internal/integrations/portalapi"
	"github.com/BearBump/DriverPortal/internal/services/ingest"
	"github.com/BearBump/DriverPortal/internal/services/session"
	"github.com/BearBump/DriverPortal/internal/storage/pgtrip"
)

type tripConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
	Close() error
}

type repository interface {
	ingest.Repository
	Ping(ctx context.Context) error
}

type workerFactories struct {
	newStorage     func(cfg *config.Config) (repo repository, closeFn func(), err error)
	newConsumer    func(cfg *config.Config, topic, group string) tripConsumer
	newRateLimiter func(cfg *config.Config) ingest.RateLimiter
	// newSource returns nil when polling is off.
	newSource func(cfg *config.Config) (ingest.Source, ingest.Refresher)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgtrip.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newConsumer: func(cfg *config.Config, topic, group string) tripConsumer {
			if cfg.Kafka.Host == "" {
				return nil
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewConsumer(brokers, topic, group)
		},
		newRateLimiter: func(cfg *config.Config) ingest.RateLimiter {
			if cfg.Redis.Host == "" {
				return nil
			}
			return rediscache.NewRateLimiter(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
		},
		newSource: func(cfg *config.Config) (ingest.Source, ingest.Refresher) {
			if !cfg.Worker.PollPortal {
				return nil, nil
			}
			timeout := time.Duration(cfg.Portal.APITimeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = portalapi.DefaultTimeout
			}
			client := portalapi.New(cfg.Portal.APIBaseURL, timeout, portalapi.Device{
				UUID:         cfg.Portal.DeviceUUID,
				Name:         cfg.Portal.DeviceName,
				FCMToken:     cfg.Portal.FCMToken,
				ClientID:     cfg.Portal.ClientID,
				ClientSecret: cfg.Portal.ClientSecret,
			})
			if cfg.Redis.Host == "" {
				return client, nil
			}
			// токен берём из сессии, которую сохранил portal-api
			rc := rediscache.New(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
			sess := session.New(client, rc, cfg.Portal.SessionKey, 0)
			client.WithTokens(sess)
			return client, sess
		},
	}
}

type workerOpts struct {
	onListen func(httpAddr string)
}

func RunFeedWorker(ctx context.Context, cfg *config.Config, f workerFactories, opts workerOpts) error {
	topic := cfg.Kafka.TripAssignedTopicName
	if topic == "" {
		topic = "trip.assigned"
	}
	group := cfg.Worker.KafkaConsumerGroup
	if group == "" {
		group = "feed-worker"
	}
	httpAddr := cfg.Worker.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8082"
	}
	pollInterval := time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	rlPerMin := int64(cfg.Worker.PollRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 6
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	src, refresher := f.newSource(cfg)
	in := ingest.New(repo, src, f.newRateLimiter(cfg)).
		WithSettings(pollInterval, rlPerMin).
		WithRefresher(refresher)

	consumer := f.newConsumer(cfg, topic, group)
	if consumer == nil && src == nil {
		return fmt.Errorf("feed-worker has nothing to ingest: configure kafka or set worker.poll_portal")
	}

	slog.Info("feed-worker configured", "topic", topic, "group", group, "kafka", consumer != nil, "poll_portal", src != nil)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: httpAddr,
			onListen: opts.onListen,
			ingester: in,
			ready:    repo.Ping,
			cfg:      cfg,
		})
	})
	g.Go(func() error {
		return in.Run(ctx)
	})
	if consumer != nil {
		g.Go(func() error {
			defer consumer.Close()
			err := consumer.Consume(ctx, in.HandleTripAssigned(ctx))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		})
	}
	return g.Wait()
}
