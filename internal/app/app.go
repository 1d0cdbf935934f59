package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/ledger-backend/internal/data/db"
	"github.com/yungbote/ledger-backend/internal/data/uow"
	apphttp "github.com/yungbote/ledger-backend/internal/http"
	"github.com/yungbote/ledger-backend/internal/observability"
	"github.com/yungbote/ledger-backend/internal/platform/eventbus"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
	rtbus "github.com/yungbote/ledger-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.PostgresService
	Metrics  *observability.Metrics
	Bus      *eventbus.Bus
	UOW      *uow.Manager
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
}

// New loads configuration from CONFIG_PATH and the environment and wires
// every component. Nothing connects to Postgres until Run.
func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Configuration loaded", cfg.LogFields()...)

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log)

	pg := db.NewPostgresService(cfg.Postgres, log)

	var busOpts []eventbus.Option
	if metrics != nil {
		busOpts = append(busOpts, eventbus.WithObserver(metrics))
	}
	bus := eventbus.New(log, busOpts...)

	mgr, err := uow.NewManager(uow.ManagerDeps{
		Provider:          pg,
		Bus:               bus,
		Log:               log,
		Hooks:             uow.NewObservabilityHooks(metrics),
		ReadyTimeout:      cfg.UOW.ReadyTimeout,
		ReadyPollInterval: cfg.UOW.ReadyPollInterval,
	})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init unit of work: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(log)
	serviceset := wireServices(log, cfg, uow.NewHelper(mgr), reposet, clients, bus)
	handlerset := wireHandlers(log, serviceset, pg)
	server := wireServer(log, cfg, metrics, handlerset)

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           pg,
		Metrics:      metrics,
		Bus:          bus,
		UOW:          mgr,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Run connects to Postgres in the background, serves HTTP, and shuts
// everything down once ctx ends or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	connected := a.DB.ConnectAsync(gctx)
	g.Go(func() error {
		select {
		case err := <-connected:
			if err != nil {
				return err
			}
			a.Metrics.StartPostgresCollector(gctx, a.Log, a.DB.DB())
			return nil
		case <-gctx.Done():
			return nil
		}
	})

	if a.Clients.EventRelay != nil {
		a.Metrics.StartRedisCollector(gctx, a.Log, rtbus.Client(a.Clients.EventRelay))
	}
	a.Metrics.StartServer(gctx, a.Log, a.Cfg.MetricsAddr)

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
		return a.Server.Run()
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

// shutdown stops intake first, then drains: HTTP, in-flight units of work,
// queued events, the relay, the pool, the tracer.
func (a *App) shutdown() error {
	a.Log.Info("Shutting down", "timeout", a.Cfg.ShutdownTimeout.String())
	ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.UOW.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Bus.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Clients.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event relay: %w", err))
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close postgres: %w", err))
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel shutdown: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		a.Log.Warn("Shutdown finished with errors", "error", err)
	} else {
		a.Log.Info("Shutdown complete")
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
