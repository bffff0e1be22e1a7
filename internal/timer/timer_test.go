package timer

import (
	"testing"
	"time"
)

func TestParseTimestampLayouts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{name: "rfc3339", raw: "2026-08-30T10:00:00Z"},
		{name: "rfc3339 nano", raw: "2026-08-30T10:00:00.123456789+07:00"},
		{name: "zone-less", raw: "2026-08-30T10:00:00"},
		{name: "zone-less fractional", raw: "2026-08-30T10:00:00.5"},
		{name: "space separated", raw: "2026-08-30 10:00:00"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			if err != nil {
				t.Fatalf("ParseTimestamp(%q): %v", tt.raw, err)
			}
			if got.Year() != 2026 || got.Hour() != 10 {
				t.Fatalf("unexpected time %v", got)
			}
		})
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "   ", "not-a-date", "2026-13-45T99:00:00Z"} {
		if _, err := ParseTimestamp(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 30, 12, 30, 45, 123000000, time.UTC)
	got, err := ParseTimestamp(FormatTimestamp(now))
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if !got.Equal(now) {
		t.Fatalf("round trip changed time: %v != %v", got, now)
	}
}

func TestParseBehavior(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want RestartBehavior
		ok   bool
	}{
		{raw: "", want: RestartResume, ok: true},
		{raw: "resume", want: RestartResume, ok: true},
		{raw: "SKIP", want: RestartSkip, ok: true},
		{raw: " execute ", want: RestartExecute, ok: true},
		{raw: "explode", ok: false},
	}
	for _, tt := range tests {
		got, err := ParseBehavior(tt.raw)
		if tt.ok != (err == nil) {
			t.Fatalf("ParseBehavior(%q) err = %v", tt.raw, err)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("ParseBehavior(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	act := ActionList{{Kind: ActionEvent, Event: "evt"}}

	good := Timer{
		State:           StateActive,
		Expiry:          FormatTimestamp(time.Now().Add(time.Minute)),
		Actions:         act,
		RestartBehavior: RestartResume,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid timer rejected: %v", err)
	}

	tests := []struct {
		name string
		mut  func(*Timer)
	}{
		{name: "no actions", mut: func(x *Timer) { x.Actions = nil }},
		{name: "active without expiry", mut: func(x *Timer) { x.Expiry = "" }},
		{name: "active with bad expiry", mut: func(x *Timer) { x.Expiry = "garbage" }},
		{name: "unknown state", mut: func(x *Timer) { x.State = "zombie" }},
		{name: "bad behavior", mut: func(x *Timer) { x.RestartBehavior = "explode" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			bad := good
			bad.Actions = append(ActionList(nil), good.Actions...)
			tt.mut(&bad)
			if err := bad.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	paused := Timer{State: StatePaused, RemainingSeconds: 12.5, Actions: act, RestartBehavior: RestartSkip}
	if err := paused.Validate(); err != nil {
		t.Fatalf("valid paused timer rejected: %v", err)
	}
}

func TestInGroup(t *testing.T) {
	t.Parallel()
	x := Timer{Groups: []string{"kitchen", "all"}}
	if !x.InGroup("kitchen") || !x.InGroup("all") {
		t.Fatal("expected group membership")
	}
	if x.InGroup("bedroom") {
		t.Fatal("unexpected group membership")
	}
	var none Timer
	if none.InGroup("any") {
		t.Fatal("empty groups should match nothing")
	}
}
