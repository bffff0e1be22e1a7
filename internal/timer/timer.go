// Package timer defines the persisted data model for named countdown timers.
//
// A Timer is either Active (counting toward an absolute expiry timestamp) or
// Paused (holding a remaining duration). Exactly one of the two fields is set,
// matching the state; a record violating that is corrupt and gets purged by
// the manager.
package timer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of a timer.
type State string

const (
	StateActive State = "active"
	StatePaused State = "paused"
)

// RestartBehavior governs how an Active timer found at load time is
// reconciled against elapsed real time.
type RestartBehavior string

const (
	// RestartResume continues the timer; if it expired while the process was
	// down its actions run immediately.
	RestartResume RestartBehavior = "resume"
	// RestartSkip continues the timer but discards it silently if expired.
	RestartSkip RestartBehavior = "skip"
	// RestartExecute runs the actions immediately on load regardless of expiry.
	RestartExecute RestartBehavior = "execute"
)

// ParseBehavior maps a raw string onto a RestartBehavior.
// Empty input defaults to RestartResume.
func ParseBehavior(s string) (RestartBehavior, error) {
	switch RestartBehavior(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return RestartResume, nil
	case RestartResume:
		return RestartResume, nil
	case RestartSkip:
		return RestartSkip, nil
	case RestartExecute:
		return RestartExecute, nil
	default:
		return "", fmt.Errorf("unknown restart behavior %q", s)
	}
}

// Timer is both the in-memory and the persisted representation of one timer.
//
// Expiry stays a string on purpose: a snapshot written by an older build (or
// edited by hand) may carry a timestamp we cannot parse, and the manager must
// detect that per-record at load/tick time instead of failing the whole
// snapshot decode.
type Timer struct {
	State            State           `json:"state"`
	Expiry           string          `json:"expiry,omitempty"`
	RemainingSeconds float64         `json:"remaining_duration,omitempty"`
	Actions          ActionList      `json:"actions"`
	RestartBehavior  RestartBehavior `json:"restart_behavior"`
	Groups           []string        `json:"groups"`
}

// zonedLayouts require an explicit offset; localLayouts cover hand-written
// values like "2025-10-20T22:30:00" and are interpreted in local time.
var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}
	localLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"}
)

var errEmptyTimestamp = errors.New("empty timestamp")

// ParseTimestamp parses an expiry timestamp in any accepted layout.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyTimestamp
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// FormatTimestamp renders a timestamp in the canonical persisted layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// ExpiryTime parses the timer's expiry field.
func (t *Timer) ExpiryTime() (time.Time, error) {
	return ParseTimestamp(t.Expiry)
}

// InGroup reports whether the timer belongs to the named group.
func (t *Timer) InGroup(group string) bool {
	for _, g := range t.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Validate checks structural invariants for a freshly constructed timer.
// It is used on the create path; loaded records get the softer per-field
// treatment in recovery and the check loop instead.
func (t *Timer) Validate() error {
	switch t.State {
	case StateActive:
		if strings.TrimSpace(t.Expiry) == "" {
			return errors.New("active timer requires expiry")
		}
		if _, err := t.ExpiryTime(); err != nil {
			return err
		}
	case StatePaused:
		if t.RemainingSeconds < 0 {
			return errors.New("paused timer requires non-negative remaining_duration")
		}
	default:
		return fmt.Errorf("unknown state %q", t.State)
	}
	if len(t.Actions) == 0 {
		return errors.New("timer requires at least one action")
	}
	if _, err := ParseBehavior(string(t.RestartBehavior)); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep-enough copy for handing out in snapshots.
// Action payload trees are shared; callers must treat them as read-only.
func (t *Timer) Clone() Timer {
	cp := *t
	cp.Actions = append(ActionList(nil), t.Actions...)
	cp.Groups = append([]string(nil), t.Groups...)
	return cp
}
