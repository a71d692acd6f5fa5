package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseInstant(t *testing.T) {
	cases := []struct {
		in     string
		wantMS int64
		ok     bool
	}{
		{"", 0, true},
		{"2025-06-01", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), true},
		{"2025-06-01T12:30:00Z", time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC).UnixMilli(), true},
		{"1748775000", 1748775000000, true},    // epoch seconds
		{"1748775000000", 1748775000000, true}, // epoch millis
		{"not a date", 0, false},
	}
	for i, tc := range cases {
		got, err := ParseInstant(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d: unexpected error %v", i, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("case %d: expected error", i)
			}
			continue
		}
		if got.Millis() != tc.wantMS {
			t.Fatalf("case %d: got %d, want %d", i, got.Millis(), tc.wantMS)
		}
	}
}

func TestInstantUnmarshalShapes(t *testing.T) {
	cases := []struct {
		in     string
		wantMS int64
	}{
		{`1748775000`, 1748775000000},
		{`1748775000000`, 1748775000000},
		{`"2025-06-01T12:30:00Z"`, time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC).UnixMilli()},
		{`{"seconds":1748775000,"nanoseconds":500000000}`, 1748775000500},
	}
	for i, tc := range cases {
		var inst Instant
		if err := json.Unmarshal([]byte(tc.in), &inst); err != nil {
			t.Fatalf("case %d: unmarshal: %v", i, err)
		}
		if inst.Millis() != tc.wantMS {
			t.Fatalf("case %d: got %d, want %d", i, inst.Millis(), tc.wantMS)
		}
	}
}

func TestInstantZero(t *testing.T) {
	var zero Instant
	if !zero.IsZero() {
		t.Fatal("zero instant should report IsZero")
	}
	if got := zero.Format("2006-01-02"); got != "" {
		t.Fatalf("zero instant should format empty, got %q", got)
	}
	if !NewInstant(time.Time{}).IsZero() {
		t.Fatal("zero time should map to zero instant")
	}
}

func TestInstantOrdering(t *testing.T) {
	a := InstantFromMillis(1000)
	b := InstantFromMillis(2000)
	if !a.Before(b) || b.Before(a) {
		t.Fatal("Before ordering broken")
	}
	if !b.After(a) || a.After(b) {
		t.Fatal("After ordering broken")
	}
}
