// Package app wires timerd's services together: config, logging, storage,
// the timer manager, and the transports.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"timerd/internal/config"
	"timerd/internal/eventbus"
	"timerd/internal/render"
	"timerd/internal/services/manager"
	"timerd/internal/storage"
	"timerd/internal/transport/httpapi"
	"timerd/internal/transport/telegram"
	logx "timerd/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store storage.Store
	bus   eventbus.Bus
	mgr   *manager.Service
	api   *httpapi.Service
	tg    *telegram.Notifier

	watchCancel context.CancelFunc
	wg          sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	bus := eventbus.New()

	checkInterval, err := config.ParseDurationOrDefault("check_interval", cfg.CheckInterval, manager.DefaultCheckInterval)
	if err != nil {
		return nil, err
	}

	mgr, err := manager.New(manager.Config{CheckInterval: checkInterval}, manager.Deps{
		Store:    store,
		Bus:      bus,
		Renderer: render.NewTemplate(nil),
		Emitter:  busEmitter{bus: bus},
		Invoker:  busInvoker{bus: bus, log: log.With(logx.String("comp", "invoker"))},
	}, log.With(logx.String("comp", "manager")))
	if err != nil {
		return nil, err
	}

	a := &App{
		cfgm:  cfgm,
		logs:  logs,
		log:   log,
		store: store,
		bus:   bus,
		mgr:   mgr,
	}

	if cfg.API != nil && cfg.API.Enabled {
		apiCfg, err := apiConfig(cfg.API)
		if err != nil {
			return nil, err
		}
		a.api = httpapi.New(apiCfg, mgr, log.With(logx.String("comp", "api")))
	}

	if cfg.Telegram != nil && cfg.Telegram.Enabled {
		tg, err := telegram.New(telegram.Config{
			Enabled:    true,
			Token:      cfg.Telegram.Token,
			ChatID:     cfg.Telegram.ChatID,
			ThreadID:   cfg.Telegram.ThreadID,
			RatePerSec: cfg.Telegram.RatePerSec,
		}, bus, log.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		a.tg = tg
	}

	return a, nil
}

func apiConfig(in *config.APIConfig) (httpapi.Config, error) {
	readTimeout, err := config.ParseDurationOrDefault("api.read_timeout", in.ReadTimeout, 10*time.Second)
	if err != nil {
		return httpapi.Config{}, err
	}
	writeTimeout, err := config.ParseDurationOrDefault("api.write_timeout", in.WriteTimeout, 10*time.Second)
	if err != nil {
		return httpapi.Config{}, err
	}
	idleTimeout, err := config.ParseDurationOrDefault("api.idle_timeout", in.IdleTimeout, time.Minute)
	if err != nil {
		return httpapi.Config{}, err
	}
	return httpapi.Config{
		Enabled:       in.Enabled,
		Addr:          in.Addr,
		Token:         in.Token,
		AllowInsecure: in.AllowInsecure,
		ReadTimeout:   readTimeout,
		WriteTimeout:  writeTimeout,
		IdleTimeout:   idleTimeout,
		RatePerSec:    in.RatePerSec,
	}, nil
}

// Bus exposes the event bus so embedding processes can observe timer events.
func (a *App) Bus() eventbus.Bus { return a.bus }

// Manager exposes the timer manager for direct (in-process) use.
func (a *App) Manager() *manager.Service { return a.mgr }

func (a *App) Start(ctx context.Context) error {
	if err := a.mgr.Start(ctx); err != nil {
		return err
	}
	if a.api != nil {
		if err := a.api.Start(ctx); err != nil {
			return err
		}
	}
	if a.tg != nil {
		a.tg.Start(ctx)
	}

	// Config hot reload: logging level/sinks follow the file; structural
	// changes (storage driver, api bind) need a restart.
	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	updates := a.cfgm.Subscribe(4)
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(wctx)
	}()
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-wctx.Done():
				return
			case cfg, ok := <-updates:
				if !ok {
					return
				}
				a.logs.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
				a.log.Info("logging config applied")
			}
		}
	}()

	a.log.Info("timerd started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
	}
	a.wg.Wait()

	if a.tg != nil {
		a.tg.Stop()
	}
	if a.api != nil {
		a.api.Stop(ctx)
	}

	err := a.mgr.Stop(ctx)

	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	_ = a.logs.Close()
	return err
}
