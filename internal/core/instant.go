package core

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// Instant is a timestamp normalized to epoch milliseconds. Record dates
// arrive in several shapes (RFC3339 strings, epoch seconds or millis,
// document-store {seconds,nanoseconds} wrappers) and are converted once
// at ingress; everything downstream only ever sees an Instant.
//
// The zero Instant means "no date" and is excluded from date filtering.
type Instant struct {
	ms int64
}

// millisThreshold separates epoch-seconds from epoch-millis when a bare
// number is ingested. Anything above it is already milliseconds.
const millisThreshold = int64(1) << 40

var ErrBadTimestamp = errors.New("unrecognized timestamp value")

// NewInstant converts a time.Time. The zero time maps to the zero Instant.
func NewInstant(t time.Time) Instant {
	if t.IsZero() {
		return Instant{}
	}
	return Instant{ms: t.UnixMilli()}
}

// InstantFromMillis wraps raw epoch milliseconds.
func InstantFromMillis(ms int64) Instant {
	return Instant{ms: ms}
}

// ParseInstant normalizes a raw ingested value into an Instant.
// Accepted shapes: RFC3339 / RFC3339Nano strings, YYYY-MM-DD strings,
// integer epoch seconds or milliseconds.
func ParseInstant(raw string) (Instant, error) {
	if raw == "" {
		return Instant{}, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return fromEpochNumber(n), nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return NewInstant(t), nil
		}
	}
	return Instant{}, ErrBadTimestamp
}

func fromEpochNumber(n int64) Instant {
	if n == 0 {
		return Instant{}
	}
	if n < millisThreshold {
		return Instant{ms: n * 1000}
	}
	return Instant{ms: n}
}

// IsZero reports whether the instant carries no date.
func (i Instant) IsZero() bool {
	return i.ms == 0
}

// Millis returns the epoch-milliseconds value.
func (i Instant) Millis() int64 {
	return i.ms
}

// Time converts back to a time.Time in UTC.
func (i Instant) Time() time.Time {
	if i.ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(i.ms).UTC()
}

// Before reports whether i is strictly earlier than other.
func (i Instant) Before(other Instant) bool {
	return i.ms < other.ms
}

// After reports whether i is strictly later than other.
func (i Instant) After(other Instant) bool {
	return i.ms > other.ms
}

// Format renders the instant with the given time layout, or "" when zero.
func (i Instant) Format(layout string) string {
	if i.IsZero() {
		return ""
	}
	return i.Time().Format(layout)
}

// MarshalJSON emits epoch milliseconds.
func (i Instant) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.ms)
}

// UnmarshalJSON accepts every ingested timestamp shape: a number (epoch
// seconds or millis), a string, or a {seconds,nanoseconds} wrapper object.
func (i *Instant) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*i = fromEpochNumber(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseInstant(s)
		if err != nil {
			return err
		}
		*i = parsed
		return nil
	}

	var wrapper struct {
		Seconds     int64 `json:"seconds"`
		Nanoseconds int64 `json:"nanoseconds"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Seconds != 0 {
		*i = Instant{ms: wrapper.Seconds*1000 + wrapper.Nanoseconds/1e6}
		return nil
	}

	return ErrBadTimestamp
}
