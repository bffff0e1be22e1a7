package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"timerd/internal/eventbus"
	"timerd/internal/timer"
	logx "timerd/pkg/logx"
)

// Service owns the timer collection. All mutation goes through its mutex.
type Service struct {
	log  logx.Logger
	cfg  Config
	deps Deps
	now  func() time.Time

	mu     sync.Mutex
	timers map[string]*timer.Timer

	c     *cron.Cron
	ready atomic.Bool
}

func New(cfg Config, deps Deps, log logx.Logger) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("manager: store is required")
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:    log,
		cfg:    cfg,
		deps:   deps,
		now:    now,
		timers: map[string]*timer.Timer{},
	}, nil
}

// Ready reports whether load and restart recovery have completed.
func (s *Service) Ready() bool { return s.ready.Load() }

// Start loads the snapshot, reconciles restart behavior, and begins the
// periodic expiry scan.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.c != nil {
		s.mu.Unlock()
		return nil
	}

	loaded, err := s.deps.Store.Load(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("load snapshot: %w", err)
	}
	if loaded != nil {
		for name, t := range loaded {
			cp := t
			s.timers[name] = &cp
		}
		s.log.Debug("loaded timers from storage", logx.Int("count", len(loaded)))
	}

	if err := s.recoverLoadedLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}

	// One tick body at a time; a tick that overruns the interval makes the
	// next one get skipped instead of piling up.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.cfg.CheckInterval), func() {
		s.checkTimers(ctx)
	}); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("register check loop: %w", err)
	}
	s.c = c
	count := len(s.timers)
	s.mu.Unlock()

	c.Start()
	s.ready.Store(true)
	s.log.Info("timer manager ready",
		logx.Int("timers", count),
		logx.Duration("check_interval", s.cfg.CheckInterval))
	return nil
}

// Stop cancels the tick registration, waits until no tick is in flight, and
// persists once.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	s.ready.Store(false)

	<-c.Stop().Done()

	s.mu.Lock()
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("final persist failed", logx.Err(err))
		return err
	}
	s.log.Info("timer manager stopped")
	return nil
}

// persistLocked writes the whole snapshot. Callers hold s.mu.
func (s *Service) persistLocked(ctx context.Context) error {
	out := make(map[string]timer.Timer, len(s.timers))
	for name, t := range s.timers {
		out[name] = *t
	}
	return s.deps.Store.Save(ctx, out)
}

// notifyChanged publishes one coalesced change event for the batch just
// persisted.
func (s *Service) notifyChanged() {
	if s.deps.Bus == nil {
		return
	}
	s.deps.Bus.Publish(eventbus.Event{Type: EventTimersChanged})
}
