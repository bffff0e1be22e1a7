package manager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"timerd/internal/timer"
	logx "timerd/pkg/logx"
)

// Create registers a new timer and returns its resolved name.
// An existing timer of the same name is replaced wholesale (warn-logged).
func (s *Service) Create(ctx context.Context, req CreateRequest) (string, error) {
	if req.Duration <= 0 {
		return "", fmt.Errorf("create: %w: duration must be positive", ErrInvalid)
	}
	if len(req.Actions) == 0 {
		return "", fmt.Errorf("create: %w: at least one action is required", ErrInvalid)
	}
	for i, a := range req.Actions {
		if a.Kind == "" {
			return "", fmt.Errorf("create: %w: action %d has unrecognized shape", ErrInvalid, i)
		}
	}
	behavior, err := timer.ParseBehavior(string(req.RestartBehavior))
	if err != nil {
		return "", fmt.Errorf("create: %w: %v", ErrInvalid, err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = uuid.NewString()
	}
	groups := req.Groups
	if groups == nil {
		groups = []string{}
	}

	t := &timer.Timer{
		State:           timer.StateActive,
		Expiry:          timer.FormatTimestamp(s.now().Add(req.Duration)),
		Actions:         req.Actions,
		RestartBehavior: behavior,
		Groups:          groups,
	}
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("create: %w: %v", ErrInvalid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.timers[name]; exists {
		s.log.Warn("timer already exists, replacing", logx.String("timer", name))
	}
	s.timers[name] = t

	if err := s.persistLocked(ctx); err != nil {
		return "", err
	}
	s.notifyChanged()

	s.log.Info("created timer",
		logx.String("timer", name),
		logx.Duration("duration", req.Duration),
		logx.String("restart_behavior", string(behavior)))
	return name, nil
}

// Pause freezes an Active timer, converting its expiry into a remaining
// duration. Missing or non-Active timers are a warn-logged no-op.
func (s *Service) Pause(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[name]
	if !ok {
		s.log.Warn("timer not found", logx.String("timer", name))
		return nil
	}
	if t.State != timer.StateActive {
		s.log.Warn("timer is not active", logx.String("timer", name))
		return nil
	}
	expiry, err := t.ExpiryTime()
	if err != nil {
		// left for the check loop to purge
		s.log.Warn("timer has invalid expiry", logx.String("timer", name), logx.Err(err))
		return nil
	}

	remaining := expiry.Sub(s.now()).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	t.State = timer.StatePaused
	t.RemainingSeconds = remaining
	t.Expiry = ""

	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	s.notifyChanged()
	s.log.Info("paused timer", logx.String("timer", name), logx.Float64("remaining_s", remaining))
	return nil
}

// Resume unfreezes a Paused timer, converting its remaining duration back
// into an absolute expiry.
func (s *Service) Resume(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[name]
	if !ok {
		s.log.Warn("timer not found", logx.String("timer", name))
		return nil
	}
	if t.State != timer.StatePaused {
		s.log.Warn("timer is not paused", logx.String("timer", name))
		return nil
	}

	remaining := time.Duration(t.RemainingSeconds * float64(time.Second))
	t.State = timer.StateActive
	t.Expiry = timer.FormatTimestamp(s.now().Add(remaining))
	t.RemainingSeconds = 0

	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	s.notifyChanged()
	s.log.Info("resumed timer", logx.String("timer", name), logx.Duration("remaining", remaining))
	return nil
}

// Cancel removes a timer entirely without running its actions.
func (s *Service) Cancel(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.timers[name]; !ok {
		s.log.Warn("timer not found", logx.String("timer", name))
		return nil
	}
	delete(s.timers, name)

	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	s.notifyChanged()
	s.log.Info("cancelled timer", logx.String("timer", name))
	return nil
}

// Extend replaces an Active timer's expiry: newExpiry sets it absolutely,
// addDuration shifts the current expiry (not "now") forward. Exactly one of
// the two must be given.
func (s *Service) Extend(ctx context.Context, name string, addDuration time.Duration, newExpiry string) error {
	if addDuration == 0 && strings.TrimSpace(newExpiry) == "" {
		err := fmt.Errorf("extend: %w: must provide either add_duration or new_expiry", ErrInvalid)
		s.log.Error("extend rejected", logx.String("timer", name), logx.Err(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[name]
	if !ok {
		s.log.Warn("timer not found", logx.String("timer", name))
		return nil
	}
	if t.State != timer.StateActive {
		s.log.Warn("timer is not active, cannot extend", logx.String("timer", name))
		return nil
	}

	if strings.TrimSpace(newExpiry) != "" {
		parsed, err := timer.ParseTimestamp(newExpiry)
		if err != nil {
			err = fmt.Errorf("extend: %w: invalid new_expiry: %v", ErrInvalid, err)
			s.log.Error("extend rejected", logx.String("timer", name), logx.Err(err))
			return err
		}
		t.Expiry = timer.FormatTimestamp(parsed)
		s.log.Info("set timer expiry", logx.String("timer", name), logx.String("expiry", t.Expiry))
	} else {
		if addDuration < 0 {
			err := fmt.Errorf("extend: %w: add_duration must be a positive duration", ErrInvalid)
			s.log.Error("extend rejected", logx.String("timer", name), logx.Err(err))
			return err
		}
		current, err := t.ExpiryTime()
		if err != nil {
			err = fmt.Errorf("extend: %w: current expiry unparsable: %v", ErrInvalid, err)
			s.log.Error("extend rejected", logx.String("timer", name), logx.Err(err))
			return err
		}
		t.Expiry = timer.FormatTimestamp(current.Add(addDuration))
		s.log.Info("extended timer", logx.String("timer", name), logx.Duration("by", addDuration))
	}

	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	s.notifyChanged()
	return nil
}
