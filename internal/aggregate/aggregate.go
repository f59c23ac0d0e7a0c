// Package aggregate computes daily usage totals from usage log rows:
// unique-minute screen time, per-app duration sums, and the first/last
// activity boundaries of a day.
package aggregate

import (
	"strings"
	"time"

	"github.com/fernwall/screentime/internal/domain"
	"github.com/fernwall/screentime/internal/merge"
)

// minuteBucket is the YYYY-MM-DD HH:MM granularity used for the
// device-level screen time proxy.
const minuteBucket = "2006-01-02 15:04"

// UniqueMinutes counts distinct minute buckets with any activity across
// all apps. Deliberately coarser than the interval merger: it answers
// "was the device in use during this minute", not "how much app-time
// accrued".
func UniqueMinutes(entries []domain.UsageLogEntry) int {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.Timestamp.Format(minuteBucket)] = struct{}{}
	}
	return len(seen)
}

// AppDuration is the plain sum of duration_seconds across rows whose
// app name matches any of names, case-insensitively. This is a
// reporting approximation: it does not merge overlaps and must not be
// used for enforcement precision.
func AppDuration(entries []domain.UsageLogEntry, names []string) int64 {
	if len(names) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[strings.ToLower(n)] = struct{}{}
	}

	var total int64
	for _, e := range entries {
		if _, ok := want[strings.ToLower(e.AppName)]; ok {
			total += e.DurationSeconds
		}
	}
	return total
}

// ActivityBoundaries returns the earliest and latest log timestamps of
// the day formatted HH:MM. ok is false when there are zero rows.
func ActivityBoundaries(entries []domain.UsageLogEntry) (first, last string, ok bool) {
	if len(entries) == 0 {
		return "", "", false
	}

	min, max := entries[0].Timestamp, entries[0].Timestamp
	for _, e := range entries[1:] {
		if e.Timestamp.Before(min) {
			min = e.Timestamp
		}
		if e.Timestamp.After(max) {
			max = e.Timestamp
		}
	}
	return min.Format("15:04"), max.Format("15:04"), true
}

// Snapshot assembles the derived daily view for one device/day from its
// rows. The merged device total is clamped to the UTC day window, so it
// is at most 86400 even when a row claims a longer duration. Recomputed
// per request; callers must not cache it across requests.
func Snapshot(deviceID string, day time.Time, entries []domain.UsageLogEntry) domain.DailySnapshot {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	merged := merge.EntriesWindow(entries, dayStart, dayStart.Add(24*time.Hour))

	snap := domain.DailySnapshot{
		DeviceID:     deviceID,
		Day:          day,
		TotalSeconds: merged.TotalSeconds,
		SecondsByApp: make(map[string]int64, len(entries)),
	}

	for _, e := range entries {
		snap.SecondsByApp[strings.ToLower(e.AppName)] += e.DurationSeconds
		if snap.FirstActivity.IsZero() || e.Timestamp.Before(snap.FirstActivity) {
			snap.FirstActivity = e.Timestamp
		}
		if e.Timestamp.After(snap.LastActivity) {
			snap.LastActivity = e.Timestamp
		}
	}
	return snap
}
