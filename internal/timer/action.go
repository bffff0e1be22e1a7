package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ActionKind discriminates the two action variants.
type ActionKind string

const (
	// ActionEvent emits a named event with a data tree.
	ActionEvent ActionKind = "event"
	// ActionService invokes a named operation ("namespace.operation") with a
	// data tree and a target tree. The wire name stays "service" for
	// compatibility with existing snapshots.
	ActionService ActionKind = "service"
)

// Action is one unit of work executed when a timer expires.
//
// On the wire an action is a loose object supporting legacy field aliases:
//
//	{"action_type": "event", "event": "evt.fired", "event_data": {...}}
//	{"event": "evt.fired", ...}                        // inferred event
//	{"action": "light.turn_off", "data": {...}, "target": {...}}
//	{"service": "light.turn_off", ...}                 // legacy operation alias
//
// Decoding is lenient: an unrecognizable shape produces an Action with empty
// Kind and the original object kept in raw, so one bad action never poisons
// the snapshot it was loaded from. The dispatcher skips such actions with a
// warning. FromMap is the strict variant for callers assembling actions from
// loose maps in-process; it rejects what UnmarshalJSON would carry as raw.
type Action struct {
	Kind ActionKind

	// Event-kind fields.
	Event     string
	EventData map[string]any

	// Operation-kind fields.
	Operation string
	Data      map[string]any
	Target    map[string]any

	raw map[string]any
}

var errAmbiguousAction = errors.New("action has neither 'action_type' nor 'event'/'action'/'service' fields")

// FromMap normalizes a loose action object into an Action, rejecting
// unrecognized or ambiguous shapes.
func FromMap(m map[string]any) (Action, error) {
	a, err := normalize(m)
	if err != nil {
		return Action{}, err
	}
	if a.Kind == "" {
		return Action{}, errAmbiguousAction
	}
	return a, nil
}

func normalize(m map[string]any) (Action, error) {
	kind, _ := m["action_type"].(string)
	kind = strings.ToLower(strings.TrimSpace(kind))

	if kind == "" {
		if _, ok := m["event"]; ok {
			kind = string(ActionEvent)
		} else if _, ok := m["action"]; ok {
			kind = string(ActionService)
		} else if _, ok := m["service"]; ok {
			kind = string(ActionService)
		} else {
			return Action{raw: m}, nil
		}
	}

	switch ActionKind(kind) {
	case ActionEvent:
		name, _ := m["event"].(string)
		if strings.TrimSpace(name) == "" {
			return Action{}, errors.New("event action requires 'event' name")
		}
		return Action{
			Kind:      ActionEvent,
			Event:     name,
			EventData: mapValue(m["event_data"]),
		}, nil
	case ActionService:
		op, _ := m["action"].(string)
		if strings.TrimSpace(op) == "" {
			// legacy alias
			op, _ = m["service"].(string)
		}
		if strings.TrimSpace(op) == "" {
			return Action{}, errors.New("operation action requires 'action' or 'service' field")
		}
		return Action{
			Kind:      ActionService,
			Operation: op,
			Data:      mapValue(m["data"]),
			Target:    mapValue(m["target"]),
		}, nil
	default:
		return Action{}, fmt.Errorf("unknown action type %q", kind)
	}
}

func mapValue(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// SplitOperation splits a two-part operation identifier on its first dot.
func SplitOperation(op string) (namespace, name string, err error) {
	ns, rest, ok := strings.Cut(op, ".")
	if !ok || ns == "" || rest == "" {
		return "", "", fmt.Errorf("invalid operation %q: want \"namespace.operation\"", op)
	}
	return ns, rest, nil
}

// UnmarshalJSON decodes an action leniently; see the type comment.
func (a *Action) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	got, err := normalize(m)
	if err != nil {
		// Recognized kind with a broken body; keep it around as unresolvable
		// rather than failing the enclosing timer record.
		*a = Action{raw: m}
		return nil
	}
	*a = got
	return nil
}

// MarshalJSON writes the canonical shape for resolved actions and the
// original object for unresolved ones.
func (a Action) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case ActionEvent:
		out := map[string]any{
			"action_type": string(ActionEvent),
			"event":       a.Event,
		}
		if len(a.EventData) > 0 {
			out["event_data"] = a.EventData
		}
		return json.Marshal(out)
	case ActionService:
		out := map[string]any{
			"action_type": string(ActionService),
			"action":      a.Operation,
		}
		if len(a.Data) > 0 {
			out["data"] = a.Data
		}
		if len(a.Target) > 0 {
			out["target"] = a.Target
		}
		return json.Marshal(out)
	default:
		if a.raw == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(a.raw)
	}
}

// ActionList accepts either a single action object or an array of them,
// normalizing a lone object into a one-element list.
type ActionList []Action

func (l *ActionList) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "{") {
		var a Action
		if err := json.Unmarshal(b, &a); err != nil {
			return err
		}
		*l = ActionList{a}
		return nil
	}
	var items []Action
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*l = items
	return nil
}
