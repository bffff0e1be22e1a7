package manager

import (
	"sort"

	"timerd/internal/timer"
)

// List returns the presentation snapshot of all timers, sorted by name.
// Action payload trees are shared; callers treat them as read-only.
func (s *Service) List() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Info, 0, len(s.timers))
	for name := range s.timers {
		out = append(out, s.infoLocked(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns one timer's snapshot.
func (s *Service) Get(name string) (Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[name]; !ok {
		return Info{}, false
	}
	return s.infoLocked(name), true
}

// Count returns the number of timers in the collection.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Service) infoLocked(name string) Info {
	cp := s.timers[name].Clone()
	info := Info{
		Name:            name,
		State:           cp.State,
		Groups:          cp.Groups,
		RestartBehavior: cp.RestartBehavior,
		Actions:         cp.Actions,
	}
	if cp.State == timer.StateActive {
		info.Expiry = cp.Expiry
	} else {
		info.RemainingSeconds = cp.RemainingSeconds
	}
	return info
}
