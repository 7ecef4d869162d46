package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	sparkpost "github.com/sparkmail/sparkmail/sdk/go"

	"github.com/sparkmail/sparkmail/internal/config"
	"github.com/sparkmail/sparkmail/internal/database"
	"github.com/sparkmail/sparkmail/internal/logger"
	"github.com/sparkmail/sparkmail/internal/repository"
	"github.com/sparkmail/sparkmail/internal/service"
)

// storeCheckTimeout bounds the startup health check of the send log store
const storeCheckTimeout = 5 * time.Second

// app holds everything a command needs
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	client   *sparkpost.Client
	dispatch *service.DispatchService
	registry *prometheus.Registry
	closers  []func() error
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}

	client, err := sparkpost.NewClient(sparkpost.Config{
		APIKey:     cfg.APIKey,
		Region:     sparkpost.Region(cfg.Region),
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Logger:     &log.WithComponent("sparkpost_client").Logger,
		Metrics:    sparkpost.NewMetrics(a.registry),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	a.client = client

	store, err := a.openSendLog(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.dispatch = service.NewDispatchService(client, store, log)

	return a, nil
}

// openSendLog connects the store selected by store.driver and checks it is
// reachable. A nil store disables the send log.
func (a *app) openSendLog(ctx context.Context) (service.SendLog, error) {
	ctx, cancel := context.WithTimeout(ctx, storeCheckTimeout)
	defer cancel()

	switch a.cfg.Store.Driver {
	case "postgres":
		db, err := database.NewPostgres(a.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.HealthCheck(ctx); err != nil {
			return nil, err
		}
		a.log.Debug().Msg("connected to PostgreSQL")
		return repository.NewSendRecordRepository(db), nil
	case "redis":
		rdb := database.NewRedis(a.cfg.Redis)
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.HealthCheck(ctx); err != nil {
			return nil, err
		}
		a.log.Debug().Msg("connected to Redis")
		return repository.NewRedisSendLog(rdb, a.cfg.Redis.Key, a.cfg.Store.MaxRecords), nil
	default:
		return nil, nil
	}
}

// writeMetrics dumps the client metrics in the node_exporter textfile format
func (a *app) writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
