// Package report implements the filtering, aggregation, and export
// pipeline over residence records. Everything here is pure in-process
// logic: callers pass a snapshot of records plus a filter spec and get
// back filtered lists, summaries, or rendered documents.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"maon/internal/core"
)

// DateRange names the supported date windows. Named ranges are anchored
// to "now" at call time; custom uses explicit inclusive bounds.
type DateRange string

const (
	RangeAll    DateRange = "all"
	RangeDay    DateRange = "day"
	RangeWeek   DateRange = "week"
	RangeMonth  DateRange = "month"
	RangeCustom DateRange = "custom"
)

// SortDir is the sort direction of the filtered output.
type SortDir string

const (
	SortNewest SortDir = "newest"
	SortOldest SortDir = "oldest"
)

// Spec is the set of user-chosen constraints applied to a record list.
// It is transient: built per query, never persisted.
type Spec struct {
	Range         DateRange    `json:"dateRange"`
	CustomFrom    core.Instant `json:"customFrom"`
	CustomTo      core.Instant `json:"customTo"`
	Category      string       `json:"category"`
	PaymentMethod string       `json:"paymentMethod"`
	SearchTerm    string       `json:"searchTerm"`
	Sort          SortDir      `json:"sort"`
}

// RangeLabel resolves the human-readable label used in export titles and
// filenames.
func (s Spec) RangeLabel() string {
	switch s.Range {
	case RangeDay:
		return "1 Day"
	case RangeWeek:
		return "7 Days"
	case RangeMonth:
		return "30 Days"
	case RangeCustom:
		return "Custom Range"
	default:
		return "All Time"
	}
}

// Fingerprint returns a stable cache key component for the spec.
func (s Spec) Fingerprint() string {
	return fmt.Sprintf("%s|%d|%d|%s|%s|%s|%s",
		s.Range, s.CustomFrom.Millis(), s.CustomTo.Millis(),
		s.Category, s.PaymentMethod, strings.ToLower(s.SearchTerm), s.Sort)
}

// window computes the inclusive date bounds for the spec, anchored at now.
// The second return is false when date filtering is disabled.
func (s Spec) window(now time.Time) (from, to core.Instant, active bool) {
	switch s.Range {
	case RangeDay:
		return core.NewInstant(now.Add(-24 * time.Hour)), core.NewInstant(now), true
	case RangeWeek:
		return core.NewInstant(now.Add(-7 * 24 * time.Hour)), core.NewInstant(now), true
	case RangeMonth:
		return core.NewInstant(now.Add(-30 * 24 * time.Hour)), core.NewInstant(now), true
	case RangeCustom:
		return s.CustomFrom, s.CustomTo, true
	default:
		return core.Instant{}, core.Instant{}, false
	}
}

// Apply filters and sorts a snapshot of records. The result is always a
// subset of the input; every active predicate must pass (predicates are
// ANDed). Records with no date are excluded by any active date window.
// Sorting is stable: ties keep the input order.
func Apply(records []core.Record, spec Spec, now time.Time) []core.Record {
	from, to, dateActive := spec.window(now)
	search := strings.ToLower(strings.TrimSpace(spec.SearchTerm))

	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if dateActive {
			if r.Date.IsZero() {
				continue
			}
			if r.Date.Before(from) || r.Date.After(to) {
				continue
			}
		}
		if !matchesExact(spec.Category, r.Category) {
			continue
		}
		if !matchesExact(spec.PaymentMethod, r.PaymentMethod) {
			continue
		}
		if search != "" && !matchesSearch(r, search) {
			continue
		}
		out = append(out, r)
	}

	if spec.Sort == SortOldest {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[j].Date.Before(out[i].Date) })
	}
	return out
}

// matchesExact passes when the filter value is empty or "all", otherwise
// requires an exact match.
func matchesExact(filter, value string) bool {
	if filter == "" || filter == "all" {
		return true
	}
	return filter == value
}

// matchesSearch does a case-insensitive substring match against the fixed
// set of textual fields; any single match passes.
func matchesSearch(r core.Record, search string) bool {
	for _, field := range []string{r.Title, r.OwnerName, r.OwnerRoom} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
