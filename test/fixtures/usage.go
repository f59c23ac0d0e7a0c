// Package fixtures provides canned usage batches for integration tests.
package fixtures

import (
	"time"

	"github.com/fernwall/screentime/internal/domain"
)

// OverlappingBatch returns samples the way a restarted agent produces
// them: the second chrome sample overlaps the first by 30 seconds, and
// a code sample follows after a gap. The merged device total is 120
// seconds; the raw per-app sums are chrome=120, code=30.
func OverlappingBatch(deviceID string, base time.Time) []domain.UsageLogEntry {
	return []domain.UsageLogEntry{
		{
			DeviceID:        deviceID,
			AppName:         "chrome",
			WindowTitle:     "Chrome - mail",
			Timestamp:       base,
			DurationSeconds: 60,
			IsFocused:       true,
		},
		{
			DeviceID:        deviceID,
			AppName:         "chrome",
			WindowTitle:     "Chrome - mail",
			Timestamp:       base.Add(30 * time.Second),
			DurationSeconds: 60,
			IsFocused:       true,
		},
		{
			DeviceID:        deviceID,
			AppName:         "code",
			WindowTitle:     "main.go - Visual Studio Code",
			Timestamp:       base.Add(2 * time.Minute),
			DurationSeconds: 30,
			IsFocused:       true,
		},
	}
}

// SteadyBatch returns n back-to-back samples of the same app, each
// step apart and dur long. With step == dur the samples are adjacent
// and merge into one interval of n*dur.
func SteadyBatch(deviceID, app string, base time.Time, n int, step, dur time.Duration) []domain.UsageLogEntry {
	out := make([]domain.UsageLogEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.UsageLogEntry{
			DeviceID:        deviceID,
			AppName:         app,
			Timestamp:       base.Add(time.Duration(i) * step),
			DurationSeconds: int64(dur / time.Second),
			IsFocused:       true,
		})
	}
	return out
}
