// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Device is a paired agent installation. The DeviceID is immutable for
// the device's lifetime; the APIKey changes only by re-pairing.
type Device struct {
	DeviceID   string
	APIKey     string
	OwnerID    string
	Name       string
	DeviceType string
	MACAddress string
	PairedAt   time.Time
}

// UsageLogEntry is one observed sample window of foreground activity.
// The log is append-only; duplicates and overlaps across agent restarts
// are expected and tolerated (the interval merger deduplicates them).
type UsageLogEntry struct {
	DeviceID        string
	AppName         string
	WindowTitle     string
	ExePath         string
	Timestamp       time.Time
	DurationSeconds int64
	IsFocused       bool
}

// End returns the exclusive end of the half-open interval
// [Timestamp, Timestamp+Duration).
func (e UsageLogEntry) End() time.Time {
	return e.Timestamp.Add(time.Duration(e.DurationSeconds) * time.Second)
}

// RuleType identifies the kind of enforcement rule.
type RuleType string

const (
	RuleTimeLimit RuleType = "time_limit"
	RuleAppLimit  RuleType = "app_limit"
	RuleSchedule  RuleType = "schedule"
)

// Rule is an enforcement rule configured by a parent. Read-only to this
// core; the admin surface that mutates rules lives elsewhere.
// AppName empty means the rule applies device-wide.
type Rule struct {
	ID               int64
	DeviceID         string
	RuleType         RuleType
	AppName          string
	TimeLimitMinutes int
	Enabled          bool
}

// DailySnapshot is the derived per-device/day usage view. It is
// recomputed from usage log rows on every request and never cached
// beyond a single request's lifetime.
type DailySnapshot struct {
	DeviceID      string
	Day           time.Time
	TotalSeconds  int64
	SecondsByApp  map[string]int64
	FirstActivity time.Time
	LastActivity  time.Time
}

// PairingToken is a one-time credential exchanged for a Device.
type PairingToken struct {
	Token     string
	ExpiresAt time.Time
	Consumed  bool
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at the given time.
func (t PairingToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// ProcessInfo is the metadata the OS probe could gather for one running
// process. Fields may be empty when the process vanished or denied
// access mid-enumeration; classification must tolerate partial data.
type ProcessInfo struct {
	PID      int32
	Name     string
	ExePath  string
	Username string
}

// WindowInfo is one visible, non-minimized top-level window.
type WindowInfo struct {
	OwnerPID    int32
	Title       string
	ActivatedAt time.Time
}

// CandidacyKind tags the outcome of classifying one process in a tick.
type CandidacyKind int

const (
	// CandidateForeground means the process owns a visible window.
	CandidateForeground CandidacyKind = iota
	// CandidateBackground means the process is not blacklisted and runs
	// under the active user's session, but owns no visible window.
	CandidateBackground
	// Excluded means the process is skipped for this tick.
	Excluded
)

// Candidacy is the tagged result of the per-process classification
// cascade. Classification never fails; partial metadata degrades to
// Excluded with a reason.
type Candidacy struct {
	Kind    CandidacyKind
	App     string // classified app name, set unless Excluded
	Window  *WindowInfo
	Reason  string // why Excluded, for diagnostics
	Process ProcessInfo
}
