package manager

import (
	"context"

	"timerd/internal/timer"
	logx "timerd/pkg/logx"
)

// checkTimers is one tick of the expiry scan: dispatch due timers, drop
// expired and invalid entries, persist once if anything changed.
func (s *Service) checkTimers(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired, invalid []string
	now := s.now()

	for name, t := range s.timers {
		if t.State != timer.StateActive || t.Expiry == "" {
			continue
		}
		expiry, err := t.ExpiryTime()
		if err != nil {
			s.log.Error("timer has invalid expiry, removing",
				logx.String("timer", name), logx.String("expiry", t.Expiry), logx.Err(err))
			invalid = append(invalid, name)
			continue
		}
		if !expiry.After(now) {
			s.log.Info("timer expired", logx.String("timer", name))
			s.dispatchActions(ctx, name, t)
			expired = append(expired, name)
		}
	}

	removed := append(expired, invalid...)
	for _, name := range removed {
		delete(s.timers, name)
	}

	if len(removed) > 0 {
		if err := s.persistLocked(ctx); err != nil {
			s.log.Error("persist after tick failed", logx.Err(err))
		}
		s.notifyChanged()
		if len(invalid) > 0 {
			s.log.Warn("removed invalid timers", logx.Int("count", len(invalid)))
		}
	}
}
