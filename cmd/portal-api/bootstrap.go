package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/DriverPortal/config"
	"github.com/BearBump/DriverPortal/internal/broker/kafka"
	"github.com/BearBump/DriverPortal/internal/cache/rediscache"
	"github.com/BearBump/DriverPortal/internal/integrations/fakefeed"
	"github.com/BearBump/DriverPortal/internal/integrations/portalapi"
	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/services/feedsync"
	"github.com/BearBump/DriverPortal/internal/services/offices"
	"github.com/BearBump/DriverPortal/internal/services/session"
	"github.com/BearBump/DriverPortal/internal/services/trips"
	"github.com/BearBump/DriverPortal/internal/storage/pgtrip"
)

const (
	feedModePostgres = "postgres"
	feedModeHTTP     = "http"
	feedModeFake     = "fake"
)

type portalAPIApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    portalAPIOpts
	deps    portalDeps
	closers []func()
}

func mustBootstrapPortalAPI() *portalAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	grpcAddr := cfg.Portal.GRPCAddr
	if grpcAddr == "" {
		grpcAddr = ":50051"
	}
	httpAddr := cfg.Portal.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.Portal.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "portal-api"
	}
	assignedTopic := cfg.Kafka.TripAssignedTopicName
	if assignedTopic == "" {
		assignedTopic = "trip.assigned"
	}
	resolvedTopic := cfg.Kafka.PickupResolvedTopicName
	if resolvedTopic == "" {
		resolvedTopic = "pickup.resolved"
	}
	syncInterval := time.Duration(cfg.Portal.SyncIntervalSeconds) * time.Second
	if syncInterval <= 0 {
		syncInterval = feedsync.DefaultInterval
	}
	sessionTTL := time.Duration(cfg.Portal.SessionTTLSeconds) * time.Second
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}
	loginLimit := int64(cfg.Portal.LoginRateLimitPerMinute)
	if loginLimit <= 0 {
		loginLimit = 5
	}
	apiTimeout := time.Duration(cfg.Portal.APITimeoutSeconds) * time.Second
	if apiTimeout <= 0 {
		apiTimeout = portalapi.DefaultTimeout
	}

	app := &portalAPIApp{}
	var checks []func(ctx context.Context) error

	var st *pgtrip.Storage
	if cfg.Database.Host != "" {
		sslMode := cfg.Database.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
		st = mustOpenPostgresWithRetry(connString, 60*time.Second)
		app.closers = append(app.closers, st.Close)
		checks = append(checks, st.Ping)
	}

	var rc *rediscache.RedisCache
	var limiter *rediscache.RateLimiter
	if cfg.Redis.Host != "" {
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		rc = rediscache.New(redisAddr)
		limiter = rediscache.NewRateLimiter(redisAddr)
		app.closers = append(app.closers, func() { _ = rc.Close() })
		checks = append(checks, rc.Ping)
	}

	portal := portalapi.New(cfg.Portal.APIBaseURL, apiTimeout, portalapi.Device{
		UUID:         cfg.Portal.DeviceUUID,
		Name:         cfg.Portal.DeviceName,
		FCMToken:     cfg.Portal.FCMToken,
		ClientID:     cfg.Portal.ClientID,
		ClientSecret: cfg.Portal.ClientSecret,
	})

	sess := newSessionStore(portal, rc, cfg.Portal.SessionKey, sessionTTL)
	if err := sess.Restore(context.Background()); err != nil {
		slog.Warn("restore session", "error", err.Error())
	}
	portal.WithTokens(sess)

	feedMode := cfg.Portal.FeedMode
	if feedMode == "" {
		feedMode = feedModeFake
		if st != nil {
			feedMode = feedModePostgres
		}
	}
	var feed trips.Feed
	switch feedMode {
	case feedModePostgres:
		if st == nil {
			panic("feed_mode=postgres needs the database section")
		}
		feed = st
	case feedModeHTTP:
		feed = portal
	case feedModeFake:
		feed = fakefeed.New()
	default:
		panic(fmt.Sprintf("unknown feed_mode %q", feedMode))
	}

	opts := []trips.Option{trips.WithDriver(sess)}
	if st != nil {
		opts = append(opts, trips.WithEventLog(st), trips.WithMirror(st))
	}

	var consumer *kafka.Consumer
	if cfg.Kafka.Host != "" {
		brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
		producer := kafka.NewProducer(brokers)
		consumer = kafka.NewConsumer(brokers, assignedTopic, consumerGroup)
		opts = append(opts, trips.WithPublisher(producer, resolvedTopic))
		app.closers = append(app.closers, func() { _ = producer.Close() }, func() { _ = consumer.Close() })
	}

	svc := trips.NewService(trips.NewStore(nil), feed, opts...)
	syncer := feedsync.New(svc, syncInterval)
	svc.SetResyncer(syncer)

	slog.Info("portal configured", "feed_mode", feedMode, "kafka", consumer != nil, "redis", rc != nil, "postgres", st != nil)

	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app.opts = portalAPIOpts{
		grpcAddr:            grpcAddr,
		httpAddr:            httpAddr,
		swaggerPath:         swaggerPath,
		topic:               assignedTopic,
		consumerGroup:       consumerGroup,
		loginLimitPerMinute: loginLimit,
	}
	app.deps = portalDeps{
		svc:     svc,
		syncer:  syncer,
		session: sess,
		offices: offices.New(officesFromConfig(cfg.Portal.Offices), cfg.Portal.DefaultOfficeID),
		ready:   readiness(checks),
	}
	if limiter != nil {
		app.deps.limiter = limiter
	}
	if consumer != nil {
		app.deps.consumer = consumer
	}
	return app
}

// newSessionStore keeps a nil *RedisCache from turning into a non-nil storage interface.
func newSessionStore(auth session.AuthClient, rc *rediscache.RedisCache, key string, ttl time.Duration) *session.Store {
	if rc == nil {
		return session.New(auth, nil, key, ttl)
	}
	return session.New(auth, rc, key, ttl)
}

func officesFromConfig(in []config.OfficeConfig) []models.Office {
	out := make([]models.Office, 0, len(in))
	for _, o := range in {
		out = append(out, models.Office{
			ID:           o.ID,
			Name:         o.Name,
			Address:      o.Address,
			Phone:        o.Phone,
			WorkingHours: o.WorkingHours,
			Coordinates:  models.Coordinates{Lat: o.Lat, Lng: o.Lng},
		})
	}
	return out
}

func readiness(checks []func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgtrip.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgtrip.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *portalAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *portalAPIApp) Run() error {
	return runPortalAPI(a.ctx, a.opts, a.deps)
}
