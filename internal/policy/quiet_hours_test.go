package policy

import (
	"testing"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 1, 5, hour, minute, 0, 0, time.UTC)
}

func TestInQuietHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		window string
		now    time.Time
		want   bool
	}{
		{name: "same day inside", window: "09:00-17:00", now: at(12, 0), want: true},
		{name: "same day start inclusive", window: "09:00-17:00", now: at(9, 0), want: true},
		{name: "same day end exclusive", window: "09:00-17:00", now: at(17, 0), want: false},
		{name: "same day outside", window: "09:00-17:00", now: at(8, 59), want: false},
		{name: "wrap late evening", window: "22:00-06:00", now: at(23, 15), want: true},
		{name: "wrap early morning", window: "22:00-06:00", now: at(5, 59), want: true},
		{name: "wrap end exclusive", window: "22:00-06:00", now: at(6, 0), want: false},
		{name: "wrap midday", window: "22:00-06:00", now: at(12, 0), want: false},
		{name: "late window", window: "22:00-23:59", now: at(23, 58), want: true},
		{name: "surrounding spaces", window: "  09:00-17:00 ", now: at(10, 0), want: true},
		{name: "empty window", window: "09:00-09:00", now: at(9, 0), want: false},
		{name: "blank", window: "", now: at(12, 0), want: false},
		{name: "single digit hour", window: "9:00-17:00", now: at(12, 0), want: false},
		{name: "garbage", window: "night", now: at(23, 0), want: false},
		{name: "hour out of range", window: "25:00-06:00", now: at(3, 0), want: false},
		{name: "minute out of range", window: "22:75-06:00", now: at(23, 0), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := InQuietHours(tt.now, tt.window); got != tt.want {
				t.Fatalf("InQuietHours(%s, %q) = %v, want %v", tt.now.Format("15:04"), tt.window, got, tt.want)
			}
		})
	}
}

func TestMalformedQuietHoursNeverSuppressPlanning(t *testing.T) {
	t.Parallel()

	for hour := 0; hour < 24; hour++ {
		plan := BuildPlan(Request{
			Contacts:  nil,
			DailyCap:  1,
			Now:       at(hour, 30),
			Overrides: Overrides{QuietHours: "22-06"},
		})
		if len(plan.ReasonsByContact) != 0 {
			t.Fatalf("hour %d: reasons = %v, want empty", hour, plan.ReasonsByContact)
		}
	}

	plan := BuildPlan(Request{
		Contacts:  []domain.Contact{contact("1", "a@x.com", 1)},
		DailyCap:  1,
		Now:       at(23, 0),
		Overrides: Overrides{QuietHours: "22-06"},
	})
	if len(plan.Targets) != 1 {
		t.Fatalf("targets = %v, want one target", plan.Targets)
	}
}

func TestOverridesFromMap(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"allowlist":   []any{"a@x.com", 3, "y.com"},
		"blocklist":   "b@x.com,z.com",
		"domain_caps": map[string]any{"y.com": int64(2), "x.com": "3", "bad": "n/a"},
		"quiet_hours": "22:00-06:00",
		"unknown":     true,
	}

	o := OverridesFromMap(raw)

	if len(o.Allowlist) != 2 || o.Allowlist[0] != "a@x.com" || o.Allowlist[1] != "y.com" {
		t.Fatalf("allowlist = %v, want [a@x.com y.com]", o.Allowlist)
	}
	if len(o.Blocklist) != 2 {
		t.Fatalf("blocklist = %v, want two entries", o.Blocklist)
	}
	if o.DomainCaps["y.com"] != 2 || o.DomainCaps["x.com"] != 3 {
		t.Fatalf("domain caps = %v, want y.com=2 x.com=3", o.DomainCaps)
	}
	if _, ok := o.DomainCaps["bad"]; ok {
		t.Fatal("domain caps should skip non-numeric values")
	}
	if o.QuietHours != "22:00-06:00" {
		t.Fatalf("quiet hours = %q, want 22:00-06:00", o.QuietHours)
	}

	empty := OverridesFromMap(map[string]any{"quiet_hours": 42, "domain_caps": []string{"x"}})
	if empty.QuietHours != "" || empty.DomainCaps != nil {
		t.Fatalf("OverridesFromMap() = %+v, want zero value", empty)
	}
}
