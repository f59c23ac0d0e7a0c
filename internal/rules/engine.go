// Package rules evaluates configured limits against aggregated usage
// and builds the enforcement response returned to agents.
package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fernwall/screentime/internal/aggregate"
	"github.com/fernwall/screentime/internal/domain"
)

// Engine computes enforcement responses. It performs no writes: the
// evaluation is purely a function of already-committed usage rows, so
// it cannot race with reporting.
type Engine struct {
	ruleStore  domain.RuleStore
	usageStore domain.UsageLogStore
	clock      Clock
	logger     *zap.Logger
}

// NewEngine creates a rule engine.
func NewEngine(rs domain.RuleStore, us domain.UsageLogStore, clock Clock, logger *zap.Logger) *Engine {
	if clock == nil {
		clock = RealClock{}
	}
	return &Engine{
		ruleStore:  rs,
		usageStore: us,
		clock:      clock,
		logger:     logger,
	}
}

// EvaluateDevice loads today's usage rows and the device's enabled
// rules, and returns the enforcement response. The device total comes
// from the interval merger; per-app figures are raw duration sums
// (reporting approximation, matching what agents display).
func (e *Engine) EvaluateDevice(ctx context.Context, deviceID string) (*domain.EnforcementResponse, error) {
	now := e.clock.Now()

	entries, err := e.usageStore.ForDay(ctx, deviceID, now)
	if err != nil {
		return nil, fmt.Errorf("load usage for device %s: %w", deviceID, err)
	}

	deviceRules, err := e.ruleStore.EnabledForDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("load rules for device %s: %w", deviceID, err)
	}

	resp := Evaluate(deviceRules, entries, now)

	e.logger.Debug("evaluated device rules",
		zap.String("device_id", deviceID),
		zap.Int("rules", len(resp.Rules)),
		zap.Int64("daily_usage", resp.DailyUsage))

	return resp, nil
}

// Evaluate marks exceeded time_limit rules against the given usage rows
// and assembles the response. A rule with an empty app name compares
// the merged device-wide total; otherwise today's raw sum for its app.
func Evaluate(deviceRules []domain.Rule, entries []domain.UsageLogEntry, now time.Time) *domain.EnforcementResponse {
	// The snapshot's device id plays no part in evaluation.
	snap := aggregate.Snapshot("", now, entries)

	resp := &domain.EnforcementResponse{
		Rules:      make([]domain.EvaluatedRule, 0, len(deviceRules)),
		DailyUsage: snap.TotalSeconds,
		UsageByApp: snap.SecondsByApp,
		ServerTime: now,
	}

	for _, r := range deviceRules {
		evaluated := domain.EvaluatedRule{Rule: r}
		if r.RuleType == domain.RuleTimeLimit && r.TimeLimitMinutes > 0 {
			limit := int64(r.TimeLimitMinutes) * 60
			evaluated.Exceeded = usageFor(r, snap) >= limit
		}
		resp.Rules = append(resp.Rules, evaluated)
	}

	return resp
}

// usageFor picks the figure a rule is compared against: the merged
// device total for device-wide rules, the raw per-app sum otherwise.
func usageFor(r domain.Rule, snap domain.DailySnapshot) int64 {
	if r.AppName == "" {
		return snap.TotalSeconds
	}
	return snap.SecondsByApp[strings.ToLower(r.AppName)]
}
