// Package api defines the JSON wire types of the agent/backend
// protocol. Both the server handlers and the agent client build
// against these so the two sides cannot drift.
package api

import (
	"time"

	"github.com/fernwall/screentime/internal/domain"
)

// PairRequest is the body of POST /pairing/pair.
type PairRequest struct {
	Token      string `json:"token"`
	DeviceName string `json:"device_name"`
	DeviceType string `json:"device_type"`
	MACAddress string `json:"mac_address"`
	DeviceID   string `json:"device_id"`
}

// PairResponse carries the minted credentials.
type PairResponse struct {
	DeviceID string `json:"device_id"`
	APIKey   string `json:"api_key"`
}

// PairingStatusResponse is the body of GET /pairing/status/{token}.
type PairingStatusResponse struct {
	Status string `json:"status"` // pending | consumed | expired | unknown
}

// FetchRulesRequest is the body of POST /rules/agent/fetch.
type FetchRulesRequest struct {
	DeviceID string `json:"device_id"`
	APIKey   string `json:"api_key"`
}

// RuleDTO is one rule in the enforcement response.
type RuleDTO struct {
	ID               int64  `json:"id"`
	RuleType         string `json:"rule_type"`
	AppName          string `json:"app_name,omitempty"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	Enabled          bool   `json:"enabled"`
	Exceeded         bool   `json:"exceeded"`
}

// FetchRulesResponse carries the full rule list plus live usage
// figures so the agent enforces against current data.
type FetchRulesResponse struct {
	Rules      []RuleDTO        `json:"rules"`
	DailyUsage int64            `json:"daily_usage"`
	UsageByApp map[string]int64 `json:"usage_by_app"`
	ServerTime time.Time        `json:"server_time"`
}

// UsageLogDTO is one usage sample on the wire.
type UsageLogDTO struct {
	AppName     string    `json:"app_name"`
	WindowTitle string    `json:"window_title"`
	ExePath     string    `json:"exe_path"`
	Duration    int64     `json:"duration"`
	Timestamp   time.Time `json:"timestamp"`
	IsFocused   bool      `json:"is_focused"`
}

// ReportRequest is the body of POST /reports/agent/report.
type ReportRequest struct {
	DeviceID  string        `json:"device_id"`
	APIKey    string        `json:"api_key"`
	UsageLogs []UsageLogDTO `json:"usage_logs"`
}

// ReportResponse acknowledges an accepted batch.
type ReportResponse struct {
	Status   string `json:"status"`
	Received int    `json:"received"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// FromEnforcement converts the domain response to wire form.
func FromEnforcement(resp *domain.EnforcementResponse) FetchRulesResponse {
	out := FetchRulesResponse{
		Rules:      make([]RuleDTO, 0, len(resp.Rules)),
		DailyUsage: resp.DailyUsage,
		UsageByApp: resp.UsageByApp,
		ServerTime: resp.ServerTime,
	}
	for _, r := range resp.Rules {
		out.Rules = append(out.Rules, RuleDTO{
			ID:               r.ID,
			RuleType:         string(r.RuleType),
			AppName:          r.AppName,
			TimeLimitMinutes: r.TimeLimitMinutes,
			Enabled:          r.Enabled,
			Exceeded:         r.Exceeded,
		})
	}
	return out
}

// ToEnforcement converts a wire response back to domain form on the
// agent side.
func ToEnforcement(resp FetchRulesResponse) *domain.EnforcementResponse {
	out := &domain.EnforcementResponse{
		Rules:      make([]domain.EvaluatedRule, 0, len(resp.Rules)),
		DailyUsage: resp.DailyUsage,
		UsageByApp: resp.UsageByApp,
		ServerTime: resp.ServerTime,
	}
	for _, r := range resp.Rules {
		out.Rules = append(out.Rules, domain.EvaluatedRule{
			Rule: domain.Rule{
				ID:               r.ID,
				RuleType:         domain.RuleType(r.RuleType),
				AppName:          r.AppName,
				TimeLimitMinutes: r.TimeLimitMinutes,
				Enabled:          r.Enabled,
			},
			Exceeded: r.Exceeded,
		})
	}
	return out
}

// FromEntries converts domain entries to wire samples.
func FromEntries(entries []domain.UsageLogEntry) []UsageLogDTO {
	out := make([]UsageLogDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, UsageLogDTO{
			AppName:     e.AppName,
			WindowTitle: e.WindowTitle,
			ExePath:     e.ExePath,
			Duration:    e.DurationSeconds,
			Timestamp:   e.Timestamp,
			IsFocused:   e.IsFocused,
		})
	}
	return out
}
