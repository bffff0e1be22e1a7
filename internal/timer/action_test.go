package timer

import (
	"encoding/json"
	"testing"
)

func TestFromMapVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		in        map[string]any
		kind      ActionKind
		event     string
		operation string
	}{
		{
			name: "explicit event",
			in:   map[string]any{"action_type": "event", "event": "evt.fired"},
			kind: ActionEvent, event: "evt.fired",
		},
		{
			name: "inferred event",
			in:   map[string]any{"event": "evt.fired", "event_data": map[string]any{"k": "v"}},
			kind: ActionEvent, event: "evt.fired",
		},
		{
			name: "modern operation",
			in:   map[string]any{"action": "light.turn_off", "data": map[string]any{"brightness": 0}},
			kind: ActionService, operation: "light.turn_off",
		},
		{
			name: "legacy service alias",
			in:   map[string]any{"service": "notify.mobile", "target": map[string]any{"device": "phone"}},
			kind: ActionService, operation: "notify.mobile",
		},
		{
			name: "explicit type with legacy field",
			in:   map[string]any{"action_type": "service", "service": "switch.toggle"},
			kind: ActionService, operation: "switch.toggle",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromMap(tt.in)
			if err != nil {
				t.Fatalf("FromMap error: %v", err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %q, want %q", got.Kind, tt.kind)
			}
			if got.Event != tt.event {
				t.Fatalf("Event = %q, want %q", got.Event, tt.event)
			}
			if got.Operation != tt.operation {
				t.Fatalf("Operation = %q, want %q", got.Operation, tt.operation)
			}
		})
	}
}

func TestFromMapRejects(t *testing.T) {
	t.Parallel()
	bad := []map[string]any{
		{},                                   // nothing to infer from
		{"action_type": "teleport"},          // unknown discriminator
		{"action_type": "event"},             // event without name
		{"action_type": "service"},           // operation without id
		{"data": map[string]any{"k": "v"}},   // payload only
	}
	for i, m := range bad {
		if _, err := FromMap(m); err == nil {
			t.Fatalf("case %d: expected error for %v", i, m)
		}
	}
}

func TestUnmarshalLenient(t *testing.T) {
	t.Parallel()
	var a Action
	if err := json.Unmarshal([]byte(`{"mystery": true}`), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.Kind != "" {
		t.Fatalf("expected unresolved kind, got %q", a.Kind)
	}

	// unresolved actions round-trip their original shape
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if m["mystery"] != true {
		t.Fatalf("raw shape lost: %v", m)
	}
}

func TestActionRoundTrip(t *testing.T) {
	t.Parallel()
	in := Action{
		Kind:      ActionService,
		Operation: "light.turn_off",
		Data:      map[string]any{"brightness": float64(0)},
		Target:    map[string]any{"entity": "light.porch"},
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Action
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Kind != ActionService || out.Operation != "light.turn_off" {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if out.Target["entity"] != "light.porch" {
		t.Fatalf("target lost: %+v", out.Target)
	}
}

func TestActionListSingleObject(t *testing.T) {
	t.Parallel()
	var l ActionList
	if err := json.Unmarshal([]byte(`{"event": "evt.one"}`), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(l) != 1 || l[0].Event != "evt.one" {
		t.Fatalf("expected one-element list, got %+v", l)
	}

	if err := json.Unmarshal([]byte(`[{"event": "a"}, {"event": "b"}]`), &l); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(l) != 2 || l[1].Event != "b" {
		t.Fatalf("expected two-element list, got %+v", l)
	}
}

func TestSplitOperation(t *testing.T) {
	t.Parallel()
	ns, op, err := SplitOperation("light.turn_off")
	if err != nil {
		t.Fatalf("SplitOperation: %v", err)
	}
	if ns != "light" || op != "turn_off" {
		t.Fatalf("got %q/%q", ns, op)
	}

	// only the first dot splits
	ns, op, err = SplitOperation("ns.op.extra")
	if err != nil {
		t.Fatalf("SplitOperation: %v", err)
	}
	if ns != "ns" || op != "op.extra" {
		t.Fatalf("got %q/%q", ns, op)
	}

	for _, bad := range []string{"nodot", ".leading", "trailing.", ""} {
		if _, _, err := SplitOperation(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
