package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"shiftguard/internal/alert/dedup"
	alertmetrics "shiftguard/internal/alert/metrics"
	alertservice "shiftguard/internal/alert/service"
	alertstore "shiftguard/internal/alert/store"
	attendancestore "shiftguard/internal/attendance/store"
	"shiftguard/internal/directory"
	"shiftguard/internal/evaluation"
	"shiftguard/internal/evaluation/lock"
	evalmetrics "shiftguard/internal/evaluation/metrics"
	"shiftguard/internal/geofence"
	"shiftguard/internal/notification/dispatcher"
	notifymetrics "shiftguard/internal/notification/metrics"
	notifymodels "shiftguard/internal/notification/models"
	"shiftguard/internal/notification/sender"
	notifystore "shiftguard/internal/notification/store"
	"shiftguard/internal/platform/config"
	"shiftguard/internal/platform/kafka"
	"shiftguard/internal/platform/metrics"
	"shiftguard/internal/platform/postgres"
	"shiftguard/internal/platform/redis"
	tenantstore "shiftguard/internal/tenant/store"
)

// app holds the wired engine shared by serve and evaluate.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *metrics.Registry
	db         *sql.DB
	redis      *redis.Client
	kafka      *kgo.Client
	queue      *dispatcher.Queue
	alerts     *alertservice.Service
	evaluation *evaluation.Service
}

type storeSet struct {
	events   evaluation.EventStore
	settings tenantstore.SettingsReader
	alerts   alertstore.Store
	dir      dispatcher.Directory
	prefs    dispatcher.PreferencesReader
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: metrics.New(version)}

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, postgres.Config{
			URL:          cfg.DatabaseURL,
			MaxOpenConns: 2 * cfg.EvalConcurrency,
			MaxIdleConns: cfg.EvalConcurrency,
		})
		if err != nil {
			return nil, err
		}
		a.db = db
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rc, err := redis.New(ctx, cfg.Redis())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.redis = rc

	stores := a.stores()

	out, err := a.sender(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	reg := a.registry.Registerer()
	nm := notifymetrics.New(reg)
	d, err := dispatcher.New(stores.prefs, stores.dir,
		sender.NewBreakerSender(out, logger, nm),
		dispatcher.WithLogger(logger),
		dispatcher.WithMetrics(nm),
		dispatcher.WithDeliveryTimeout(cfg.DeliveryTimeout),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.queue = dispatcher.NewQueue(d, cfg.DispatchQueueSize, cfg.DispatchWorkers, logger, nm)

	am := alertmetrics.New(reg)
	gate, err := dedup.New(stores.alerts, dedup.WithLogger(logger), dedup.WithMetrics(am))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.alerts, err = alertservice.New(stores.alerts, alertservice.WithLogger(logger), alertservice.WithMetrics(am))
	if err != nil {
		a.Close()
		return nil, err
	}

	var locker evaluation.Locker = lock.NewMemory()
	if a.redis != nil {
		locker = lock.NewRedis(a.redis.Client)
	}
	evalCfg := evaluation.DefaultConfig()
	evalCfg.Concurrency = cfg.EvalConcurrency
	evalCfg.Lookback = cfg.EvalLookback
	evalCfg.LocationHistory = cfg.LocationHistory
	evalCfg.LockTTL = cfg.PassLockTTL
	evalCfg.Location = geofence.LocationPolicy{
		Freshness:         cfg.LocationFreshness,
		MaxAccuracyMeters: cfg.LocationMaxAccuracy,
	}
	a.evaluation, err = evaluation.New(stores.events, stores.settings, stores.alerts, gate, a.queue,
		evaluation.WithLogger(logger),
		evaluation.WithMetrics(evalmetrics.New(reg)),
		evaluation.WithConfig(evalCfg),
		evaluation.WithLocker(locker),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) stores() storeSet {
	if a.db == nil {
		return storeSet{
			events:   attendancestore.NewInMemory(),
			settings: tenantstore.NewInMemory(),
			alerts:   alertstore.NewInMemory(),
			dir:      directory.NewInMemory(),
			prefs:    notifystore.NewInMemory(),
		}
	}
	var settings tenantstore.SettingsReader = tenantstore.NewPostgres(a.db)
	if a.redis != nil {
		settings = tenantstore.NewCached(settings, a.redis.Client, a.cfg.SettingsCacheTTL, a.logger)
	}
	return storeSet{
		events:   attendancestore.NewPostgres(a.db),
		settings: settings,
		alerts:   alertstore.NewPostgres(a.db),
		dir:      directory.NewPostgres(a.db),
		prefs:    notifystore.NewPostgres(a.db),
	}
}

func (a *app) sender(ctx context.Context) (sender.Sender, error) {
	client, err := kafka.NewClient(kafka.Config{
		Brokers:        a.cfg.KafkaBrokerList(),
		ClientID:       "shiftguard",
		ProduceTimeout: a.cfg.DeliveryTimeout,
	})
	if err != nil {
		return nil, err
	}
	if client == nil {
		a.logger.Warn("KAFKA_BROKERS not set, notifications are logged only")
		return sender.NewLogSender(a.logger), nil
	}
	a.kafka = client
	if err := kafka.EnsureTopics(ctx, client, a.cfg.KafkaTopicPush, a.cfg.KafkaTopicEmail); err != nil {
		return nil, err
	}
	return sender.NewKafkaSender(client, map[notifymodels.Channel]string{
		notifymodels.ChannelPush:  a.cfg.KafkaTopicPush,
		notifymodels.ChannelEmail: a.cfg.KafkaTopicEmail,
	}), nil
}

// Close drains the dispatch queue, then releases connections.
func (a *app) Close() error {
	if a.queue != nil {
		a.queue.Close()
	}
	var errs []error
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}
