// Package telegram forwards fired-timer events to a Telegram chat.
//
// The notifier is a plain event-bus subscriber: it has no say in timer
// semantics and dropping it (disabled config) changes nothing in the core.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"
	"golang.org/x/time/rate"

	"timerd/internal/eventbus"
	"timerd/internal/services/manager"
	logx "timerd/pkg/logx"
)

type Config struct {
	Enabled    bool
	Token      string
	ChatID     int64
	ThreadID   int
	RatePerSec int
}

type Notifier struct {
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	bot     *tele.Bot
	limiter *rate.Limiter

	mu     sync.Mutex
	unsub  func()
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(cfg Config, bus eventbus.Bus, log logx.Logger) (*Notifier, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}

	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Notifier{
		cfg:     cfg,
		log:     log,
		bus:     bus,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.unsub != nil {
		return
	}

	ch, unsub := n.bus.Subscribe(64)
	n.unsub = unsub
	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				n.forward(runCtx, ev)
			}
		}
	}()
	n.log.Info("telegram notifier started", logx.Int64("chat_id", n.cfg.ChatID))
}

func (n *Notifier) Stop() {
	n.mu.Lock()
	unsub := n.unsub
	cancel := n.cancel
	n.unsub = nil
	n.cancel = nil
	n.mu.Unlock()
	if unsub == nil {
		return
	}

	unsub()
	cancel()
	n.wg.Wait()
	n.log.Info("telegram notifier stopped")
}

func (n *Notifier) forward(ctx context.Context, ev eventbus.Event) {
	// Collection-change churn is for presentation observers, not chat.
	if ev.Type == manager.EventTimersChanged {
		return
	}
	if !n.limiter.Allow() {
		n.log.Debug("telegram notification dropped (rate limited)", logx.String("event", ev.Type))
		return
	}

	opts := &tele.SendOptions{DisableWebPagePreview: true}
	if n.cfg.ThreadID != 0 {
		opts.ThreadID = n.cfg.ThreadID
	}
	_, err := n.bot.Send(tele.ChatID(n.cfg.ChatID), formatEvent(ev), opts)
	if err != nil {
		n.log.Warn("telegram send failed", logx.String("event", ev.Type), logx.Err(err))
		return
	}
	n.log.Debug("telegram notification sent", logx.String("event", ev.Type))
	_ = ctx
}

func formatEvent(ev eventbus.Event) string {
	var b strings.Builder
	b.WriteString("⏰ ")
	b.WriteString(ev.Type)

	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n- ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(truncate(fmt.Sprint(ev.Data[k]), 600))
	}
	return truncate(b.String(), 3500)
}

func truncate(s string, maxN int) string {
	if len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
