package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fernwall/screentime/internal/domain"
)

var day = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func at(hour, minute, second int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second)
}

func entry(app string, ts time.Time, seconds int64) domain.UsageLogEntry {
	return domain.UsageLogEntry{
		DeviceID:        "dev-1",
		AppName:         app,
		Timestamp:       ts,
		DurationSeconds: seconds,
	}
}

// TestUniqueMinutes_BucketsCollapse verifies five logs in the same
// minute count as one, and a sixth one minute later makes two.
func TestUniqueMinutes_BucketsCollapse(t *testing.T) {
	entries := []domain.UsageLogEntry{
		entry("chrome", at(9, 0, 1), 10),
		entry("chrome", at(9, 0, 12), 10),
		entry("steam", at(9, 0, 25), 10),
		entry("vim", at(9, 0, 40), 10),
		entry("chrome", at(9, 0, 59), 10),
	}
	assert.Equal(t, 1, UniqueMinutes(entries))

	entries = append(entries, entry("chrome", at(9, 1, 3), 10))
	assert.Equal(t, 2, UniqueMinutes(entries))
}

func TestUniqueMinutes_Empty(t *testing.T) {
	assert.Zero(t, UniqueMinutes(nil))
}

// TestAppDuration_PlainSum verifies the sum is timestamp-independent.
func TestAppDuration_PlainSum(t *testing.T) {
	entries := []domain.UsageLogEntry{
		entry("chrome", at(8, 0, 0), 60),
		entry("chrome", at(20, 15, 0), 120),
		entry("chrome", at(12, 30, 0), 180),
		entry("steam", at(12, 30, 0), 999),
	}

	assert.Equal(t, int64(360), AppDuration(entries, []string{"chrome"}))
}

func TestAppDuration_CaseInsensitiveNames(t *testing.T) {
	entries := []domain.UsageLogEntry{
		entry("Chrome", at(8, 0, 0), 60),
		entry("CHROME", at(9, 0, 0), 40),
	}

	assert.Equal(t, int64(100), AppDuration(entries, []string{"chrome"}))
}

func TestAppDuration_MultipleNames(t *testing.T) {
	entries := []domain.UsageLogEntry{
		entry("chrome", at(8, 0, 0), 60),
		entry("firefox", at(9, 0, 0), 30),
		entry("steam", at(10, 0, 0), 500),
	}

	assert.Equal(t, int64(90), AppDuration(entries, []string{"chrome", "firefox"}))
	assert.Zero(t, AppDuration(entries, nil))
}

// TestActivityBoundaries verifies literal min/max formatted HH:MM.
func TestActivityBoundaries(t *testing.T) {
	entries := []domain.UsageLogEntry{
		entry("chrome", at(20, 30, 0), 60),
		entry("vim", at(8, 0, 0), 60),
	}

	first, last, ok := ActivityBoundaries(entries)
	assert.True(t, ok)
	assert.Equal(t, "08:00", first)
	assert.Equal(t, "20:30", last)
}

func TestActivityBoundaries_NoData(t *testing.T) {
	_, _, ok := ActivityBoundaries(nil)
	assert.False(t, ok)
}

// TestSnapshot verifies the derived daily view: merged device total,
// raw per-app sums, and activity boundaries.
func TestSnapshot(t *testing.T) {
	entries := []domain.UsageLogEntry{
		entry("chrome", at(8, 0, 0), 60),
		entry("chrome", at(8, 0, 10), 30), // contained, collapses in the merged total
		entry("steam", at(20, 30, 0), 120),
	}

	snap := Snapshot("dev-1", day, entries)

	assert.Equal(t, "dev-1", snap.DeviceID)
	assert.Equal(t, int64(180), snap.TotalSeconds) // 60 merged + 120
	assert.Equal(t, int64(90), snap.SecondsByApp["chrome"])
	assert.Equal(t, int64(120), snap.SecondsByApp["steam"])
	assert.Equal(t, at(8, 0, 0), snap.FirstActivity)
	assert.Equal(t, at(20, 30, 0), snap.LastActivity)
}

// TestSnapshot_TotalCappedByDayWindow verifies a row whose claimed
// duration runs past midnight cannot push the device total beyond the
// 86400 seconds a day holds.
func TestSnapshot_TotalCappedByDayWindow(t *testing.T) {
	snap := Snapshot("dev-1", day, []domain.UsageLogEntry{
		entry("chrome", at(23, 0, 0), 200000),
	})

	assert.Equal(t, int64(3600), snap.TotalSeconds)
	assert.LessOrEqual(t, snap.TotalSeconds, int64(86400))
}
