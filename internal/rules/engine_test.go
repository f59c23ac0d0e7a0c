package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fernwall/screentime/internal/domain"
)

var now = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func entry(app string, start time.Time, seconds int64) domain.UsageLogEntry {
	return domain.UsageLogEntry{
		DeviceID:        "dev-1",
		AppName:         app,
		Timestamp:       start,
		DurationSeconds: seconds,
	}
}

// mockRuleStore implements domain.RuleStore for testing
type mockRuleStore struct {
	rules []domain.Rule
	err   error
}

func (m *mockRuleStore) EnabledForDevice(ctx context.Context, deviceID string) ([]domain.Rule, error) {
	return m.rules, m.err
}

// mockUsageStore implements domain.UsageLogStore for testing
type mockUsageStore struct {
	entries []domain.UsageLogEntry
	err     error
}

func (m *mockUsageStore) AppendBatch(ctx context.Context, entries []domain.UsageLogEntry) error {
	return nil
}

func (m *mockUsageStore) ForDay(ctx context.Context, deviceID string, day time.Time) ([]domain.UsageLogEntry, error) {
	return m.entries, m.err
}

func TestEvaluate_AppLimitExceeded(t *testing.T) {
	deviceRules := []domain.Rule{
		{ID: 1, RuleType: domain.RuleTimeLimit, AppName: "steam", TimeLimitMinutes: 1, Enabled: true},
	}
	entries := []domain.UsageLogEntry{
		entry("steam", now.Add(-time.Hour), 45),
		entry("steam", now.Add(-30*time.Minute), 30),
	}

	resp := Evaluate(deviceRules, entries, now)

	require.Len(t, resp.Rules, 1)
	assert.True(t, resp.Rules[0].Exceeded, "75s against a 60s limit")
	assert.Equal(t, int64(75), resp.UsageByApp["steam"])
}

func TestEvaluate_AppLimitNotExceeded(t *testing.T) {
	deviceRules := []domain.Rule{
		{ID: 1, RuleType: domain.RuleTimeLimit, AppName: "steam", TimeLimitMinutes: 2, Enabled: true},
	}
	entries := []domain.UsageLogEntry{
		entry("steam", now.Add(-time.Hour), 45),
	}

	resp := Evaluate(deviceRules, entries, now)

	require.Len(t, resp.Rules, 1)
	assert.False(t, resp.Rules[0].Exceeded)
}

// TestEvaluate_DeviceWideUsesMergedTotal verifies a rule with no app
// name compares the deduplicated device total, not the raw sum.
func TestEvaluate_DeviceWideUsesMergedTotal(t *testing.T) {
	deviceRules := []domain.Rule{
		{ID: 1, RuleType: domain.RuleTimeLimit, AppName: "", TimeLimitMinutes: 1, Enabled: true},
	}
	// Two fully overlapping 60s samples: raw sum 120s, merged 60s.
	start := now.Add(-time.Hour)
	entries := []domain.UsageLogEntry{
		entry("chrome", start, 60),
		entry("chrome", start, 60),
	}

	resp := Evaluate(deviceRules, entries, now)

	assert.Equal(t, int64(60), resp.DailyUsage)
	require.Len(t, resp.Rules, 1)
	assert.True(t, resp.Rules[0].Exceeded, "merged 60s meets the 60s limit")
}

func TestEvaluate_CaseInsensitiveAppMatch(t *testing.T) {
	deviceRules := []domain.Rule{
		{ID: 1, RuleType: domain.RuleTimeLimit, AppName: "Steam", TimeLimitMinutes: 1, Enabled: true},
	}
	entries := []domain.UsageLogEntry{
		entry("STEAM", now.Add(-time.Hour), 90),
	}

	resp := Evaluate(deviceRules, entries, now)

	require.Len(t, resp.Rules, 1)
	assert.True(t, resp.Rules[0].Exceeded)
}

// TestEvaluate_ResponseCarriesLiveFigures verifies the response ships
// rules plus current usage so agents decide against live data.
func TestEvaluate_ResponseCarriesLiveFigures(t *testing.T) {
	deviceRules := []domain.Rule{
		{ID: 1, RuleType: domain.RuleTimeLimit, AppName: "steam", TimeLimitMinutes: 120, Enabled: true},
		{ID: 2, RuleType: domain.RuleSchedule, AppName: "", Enabled: true},
	}
	entries := []domain.UsageLogEntry{
		entry("steam", now.Add(-time.Hour), 300),
		entry("chrome", now.Add(-2*time.Hour), 600),
	}

	resp := Evaluate(deviceRules, entries, now)

	assert.Len(t, resp.Rules, 2)
	assert.Equal(t, int64(900), resp.DailyUsage)
	assert.Equal(t, int64(300), resp.UsageByApp["steam"])
	assert.Equal(t, int64(600), resp.UsageByApp["chrome"])
	assert.Equal(t, now, resp.ServerTime)
	// schedule rules carry no limit comparison
	assert.False(t, resp.Rules[1].Exceeded)
}

// TestEvaluate_DailyUsageBoundedByDay verifies a single row with an
// absurd claimed duration cannot report more device usage than the day
// holds.
func TestEvaluate_DailyUsageBoundedByDay(t *testing.T) {
	dayStart := now.Truncate(24 * time.Hour)
	entries := []domain.UsageLogEntry{
		entry("chrome", dayStart.Add(23*time.Hour), 200000),
	}

	resp := Evaluate(nil, entries, now)

	assert.Equal(t, int64(3600), resp.DailyUsage)
	assert.LessOrEqual(t, resp.DailyUsage, int64(86400))
}

func TestEvaluate_NoRulesNoUsage(t *testing.T) {
	resp := Evaluate(nil, nil, now)

	assert.Empty(t, resp.Rules)
	assert.Zero(t, resp.DailyUsage)
	assert.Empty(t, resp.UsageByApp)
}

func TestEngine_EvaluateDevice(t *testing.T) {
	rs := &mockRuleStore{rules: []domain.Rule{
		{ID: 1, RuleType: domain.RuleTimeLimit, AppName: "steam", TimeLimitMinutes: 1, Enabled: true},
	}}
	us := &mockUsageStore{entries: []domain.UsageLogEntry{
		entry("steam", now.Add(-time.Hour), 90),
	}}

	engine := NewEngine(rs, us, &TestClock{CurrentTime: now}, zap.NewNop())

	resp, err := engine.EvaluateDevice(context.Background(), "dev-1")
	require.NoError(t, err)
	require.Len(t, resp.Rules, 1)
	assert.True(t, resp.Rules[0].Exceeded)
	assert.Equal(t, now, resp.ServerTime)
}

func TestEngine_StoreErrorPropagates(t *testing.T) {
	us := &mockUsageStore{err: assert.AnError}
	engine := NewEngine(&mockRuleStore{}, us, nil, zap.NewNop())

	_, err := engine.EvaluateDevice(context.Background(), "dev-1")
	assert.Error(t, err)
}
