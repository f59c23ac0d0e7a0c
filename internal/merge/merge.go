// Package merge deduplicates overlapping usage intervals into true
// elapsed coverage. It is the single source of truth for "real" usage
// time; raw duration sums elsewhere are approximations and must not be
// used for enforcement.
package merge

import (
	"sort"
	"strings"
	"time"

	"github.com/fernwall/screentime/internal/domain"
)

// Interval is a half-open span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Seconds returns the interval length in whole seconds.
func (iv Interval) Seconds() int64 {
	return int64(iv.End.Sub(iv.Start) / time.Second)
}

// Result is the merged coverage for one device within a query window.
type Result struct {
	// SecondsByApp maps classified app name (lowercased) to merged
	// seconds with overlaps removed.
	SecondsByApp map[string]int64
	// TotalSeconds is the device total across all apps.
	TotalSeconds int64
	// SpanSeconds is the wall-clock span covered: max end minus min
	// start across all merged intervals. Zero when no intervals.
	SpanSeconds int64
}

// Entries merges raw usage log rows for one device. Overlapping agent
// sessions and restarts log duplicate coverage for the same app, so a
// naive sum of durations over-counts; this walks sorted intervals per
// app and counts each covered second once.
//
// Zero and negative durations are dropped before merging. Input order
// does not matter.
func Entries(entries []domain.UsageLogEntry) Result {
	byApp := make(map[string][]Interval)
	for _, e := range entries {
		if e.DurationSeconds <= 0 {
			continue
		}
		app := strings.ToLower(e.AppName)
		byApp[app] = append(byApp[app], Interval{Start: e.Timestamp, End: e.End()})
	}

	res := Result{SecondsByApp: make(map[string]int64, len(byApp))}
	var minStart, maxEnd time.Time

	for app, ivs := range byApp {
		merged := Intervals(ivs)
		var secs int64
		for _, iv := range merged {
			secs += iv.Seconds()
			if minStart.IsZero() || iv.Start.Before(minStart) {
				minStart = iv.Start
			}
			if iv.End.After(maxEnd) {
				maxEnd = iv.End
			}
		}
		res.SecondsByApp[app] = secs
		res.TotalSeconds += secs
	}

	if !minStart.IsZero() {
		res.SpanSeconds = int64(maxEnd.Sub(minStart) / time.Second)
	}
	return res
}

// EntriesWindow merges rows clamped to the half-open window
// [start, end). Rows wholly outside the window are dropped; rows
// crossing a boundary contribute only their in-window portion. The
// merged total therefore can never exceed the window length per app,
// no matter how oversized a single row's duration is.
func EntriesWindow(entries []domain.UsageLogEntry, start, end time.Time) Result {
	clamped := make([]domain.UsageLogEntry, 0, len(entries))
	for _, e := range entries {
		s, t := e.Timestamp, e.End()
		if s.Before(start) {
			s = start
		}
		if t.After(end) {
			t = end
		}
		if !t.After(s) {
			continue
		}
		e.Timestamp = s
		e.DurationSeconds = int64(t.Sub(s) / time.Second)
		clamped = append(clamped, e)
	}
	return Entries(clamped)
}

// Intervals merges a single app's intervals. Sorts by start, then walks
// the sorted list keeping a current merged interval [s, e): a next
// interval starting at or before e (overlap or adjacency) extends e to
// max(e, next end); otherwise the current interval is closed and a new
// one starts. A fully-contained interval therefore contributes nothing.
func Intervals(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}

	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, next := range sorted[1:] {
		cur := &merged[len(merged)-1]
		if !next.Start.After(cur.End) {
			if next.End.After(cur.End) {
				cur.End = next.End
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}
