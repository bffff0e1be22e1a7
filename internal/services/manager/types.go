package manager

import (
	"context"
	"errors"
	"time"

	"timerd/internal/eventbus"
	"timerd/internal/timer"
)

// ErrInvalid marks malformed-input rejections (missing create fields,
// non-positive extend amount, unparsable timestamp). The request is rejected
// locally with no state change.
var ErrInvalid = errors.New("invalid argument")

// EventTimersChanged is published on the bus after any batch of persisted
// mutations. Observers refresh their derived views on it; one event per batch
// regardless of how many timers changed.
const EventTimersChanged = "timers.changed"

// DefaultCheckInterval is the expiry scan interval when none is configured.
const DefaultCheckInterval = time.Second

// Config controls the manager service.
type Config struct {
	// CheckInterval is the expiry scan interval. Default: 1s.
	CheckInterval time.Duration

	// Now overrides the clock; tests inject a fake. Default: time.Now.
	Now func() time.Time
}

// Emitter delivers an event-kind action: a named event with a data tree.
type Emitter interface {
	Emit(ctx context.Context, event string, data map[string]any) error
}

// Invoker delivers an operation-kind action: a "namespace.operation" call
// with a data tree and a target tree.
type Invoker interface {
	Invoke(ctx context.Context, namespace, operation string, data, target map[string]any) error
}

// Deps are the manager's external collaborators.
type Deps struct {
	Store    Store
	Bus      eventbus.Bus
	Renderer Renderer
	Emitter  Emitter
	Invoker  Invoker
}

// Store is the slice of the storage API the manager needs.
type Store interface {
	Load(ctx context.Context) (map[string]timer.Timer, error)
	Save(ctx context.Context, timers map[string]timer.Timer) error
}

// Renderer substitutes expressions in a single string value at dispatch time.
type Renderer interface {
	RenderString(s string) (string, error)
}

// CreateRequest carries the create operation's parameters.
type CreateRequest struct {
	// Name is optional; a random unique token is generated when absent.
	Name string
	// Duration until expiry. Required, must be positive.
	Duration time.Duration
	// Actions to run on expiry, in order. Required, non-empty.
	Actions timer.ActionList
	// RestartBehavior defaults to timer.RestartResume.
	RestartBehavior timer.RestartBehavior
	// Groups for batch addressing. Optional.
	Groups []string
}

// Info is the presentation snapshot of one timer.
type Info struct {
	Name             string                `json:"name"`
	State            timer.State           `json:"state"`
	Groups           []string              `json:"groups"`
	RestartBehavior  timer.RestartBehavior `json:"restart_behavior"`
	Actions          timer.ActionList      `json:"actions"`
	Expiry           string                `json:"expiry,omitempty"`
	RemainingSeconds float64               `json:"remaining_duration,omitempty"`
}
