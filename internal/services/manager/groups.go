package manager

import (
	"context"
	"errors"
	"sort"
	"time"

	logx "timerd/pkg/logx"
)

// membersOf snapshots the names of all timers in the group. Fan-out always
// works from this snapshot so operations that mutate the collection (notably
// cancel) never race the iteration.
func (s *Service) membersOf(group string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name, t := range s.timers {
		if t.InGroup(group) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// PauseGroup pauses every timer in the group. Members are independent: one
// member's no-op or failure does not abort the rest. Returns the number of
// members addressed.
func (s *Service) PauseGroup(ctx context.Context, group string) (int, error) {
	names := s.membersOf(group)
	var errs []error
	for _, name := range names {
		if err := s.Pause(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	s.log.Info("paused group", logx.String("group", group), logx.Int("count", len(names)))
	return len(names), errors.Join(errs...)
}

// ResumeGroup resumes every timer in the group.
func (s *Service) ResumeGroup(ctx context.Context, group string) (int, error) {
	names := s.membersOf(group)
	var errs []error
	for _, name := range names {
		if err := s.Resume(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	s.log.Info("resumed group", logx.String("group", group), logx.Int("count", len(names)))
	return len(names), errors.Join(errs...)
}

// CancelGroup cancels every timer in the group.
func (s *Service) CancelGroup(ctx context.Context, group string) (int, error) {
	names := s.membersOf(group)
	var errs []error
	for _, name := range names {
		if err := s.Cancel(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	s.log.Info("cancelled group", logx.String("group", group), logx.Int("count", len(names)))
	return len(names), errors.Join(errs...)
}

// ExtendGroup extends every timer in the group with the same arguments.
func (s *Service) ExtendGroup(ctx context.Context, group string, addDuration time.Duration, newExpiry string) (int, error) {
	names := s.membersOf(group)
	var errs []error
	for _, name := range names {
		if err := s.Extend(ctx, name, addDuration, newExpiry); err != nil {
			errs = append(errs, err)
		}
	}
	s.log.Info("extended group", logx.String("group", group), logx.Int("count", len(names)))
	return len(names), errors.Join(errs...)
}
