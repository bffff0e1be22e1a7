package manager

import (
	"context"
	"fmt"

	"timerd/internal/timer"
	logx "timerd/pkg/logx"
)

// recoverLoadedLocked reconciles every loaded timer against elapsed real time
// per its restart behavior. It runs once, before the check loop starts, and
// is idempotent: timers whose actions run here are purged, so a second pass
// over the surviving set dispatches nothing.
//
// Callers hold s.mu.
func (s *Service) recoverLoadedLocked(ctx context.Context) error {
	var purge []string

	for name, t := range s.timers {
		if !s.reconcileOne(ctx, name, t) {
			purge = append(purge, name)
		}
	}

	for _, name := range purge {
		delete(s.timers, name)
	}

	if len(purge) > 0 {
		if err := s.persistLocked(ctx); err != nil {
			return fmt.Errorf("persist after recovery: %w", err)
		}
		s.log.Info("removed invalid or completed timers during startup", logx.Int("count", len(purge)))
	}
	return nil
}

// reconcileOne applies the restart policy to a single loaded timer and
// reports whether it survives. Failures stay contained to the one timer.
func (s *Service) reconcileOne(ctx context.Context, name string, t *timer.Timer) (keep bool) {
	switch t.State {
	case timer.StatePaused:
		s.log.Debug("timer is paused, keeping", logx.String("timer", name))
		return true

	case timer.StateActive:
		expiry, err := t.ExpiryTime()
		if err != nil {
			s.log.Error("timer has invalid expiry, removing",
				logx.String("timer", name), logx.String("expiry", t.Expiry), logx.Err(err))
			return false
		}
		isExpired := !expiry.After(s.now())

		behavior, err := timer.ParseBehavior(string(t.RestartBehavior))
		if err != nil {
			s.log.Warn("timer has unknown restart behavior, treating as resume",
				logx.String("timer", name), logx.String("restart_behavior", string(t.RestartBehavior)))
			behavior = timer.RestartResume
		}

		switch behavior {
		case timer.RestartExecute:
			s.log.Info("executing timer due to restart behavior", logx.String("timer", name))
			s.dispatchActions(ctx, name, t)
			return false
		case timer.RestartSkip:
			if isExpired {
				s.log.Info("skipping expired timer", logx.String("timer", name))
				return false
			}
			return true
		default: // resume
			if isExpired {
				s.log.Info("executing timer that expired while down", logx.String("timer", name))
				s.dispatchActions(ctx, name, t)
				return false
			}
			s.log.Debug("timer continues", logx.String("timer", name), logx.Time("expires", expiry))
			return true
		}

	default:
		s.log.Warn("timer has invalid state, removing",
			logx.String("timer", name), logx.String("state", string(t.State)))
		return false
	}
}
