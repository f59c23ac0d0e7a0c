package domain

import (
	"context"
	"time"
)

// SystemProbe enumerates running processes and visible windows.
// Implementation: gopsutil for cross-platform process access, plus a
// per-platform window source. The foreground detector depends only on
// this interface so tests can supply deterministic doubles.
type SystemProbe interface {
	// ListProcesses returns all running processes. A process missing
	// metadata (exe path, owner) is still returned with empty fields.
	ListProcesses(ctx context.Context) ([]ProcessInfo, error)

	// ListVisibleWindows returns visible, non-minimized top-level
	// windows with their owning process IDs.
	ListVisibleWindows(ctx context.Context) ([]WindowInfo, error)

	// ActiveUsername returns the login name of the active console user.
	ActiveUsername() string
}

// AppClassifier maps raw process identifiers to trackability and
// display metadata. Backed by reloadable pattern tables.
type AppClassifier interface {
	// IsTrackable reports whether the process name is a user-facing app
	// (not on the system-process blacklist). Unknown apps are trackable.
	IsTrackable(name string) bool

	// FriendlyName returns the display name for a process name.
	FriendlyName(name string) string

	// Category returns the configured category, or "" when unknown.
	Category(name string) string

	// IconClass returns the icon class for a name or its category,
	// defaulting to "app".
	IconClass(name string) string

	// Reload re-reads the pattern tables without restarting. Idempotent.
	Reload() error
}

// DeviceStore persists paired devices.
type DeviceStore interface {
	// Upsert inserts a new device, or re-pairs an existing one: the
	// device_id stays immutable and the api_key rotates to the new
	// value.
	Upsert(ctx context.Context, d Device) error

	// FindByID returns the device, or nil when not found.
	FindByID(ctx context.Context, deviceID string) (*Device, error)

	// Authenticate returns the device when the credentials match.
	// Returns ErrUnauthorized otherwise, without revealing which
	// credential was wrong.
	Authenticate(ctx context.Context, deviceID, apiKey string) (*Device, error)
}

// UsageLogStore persists the append-only usage log.
type UsageLogStore interface {
	// AppendBatch inserts all entries in one transaction.
	AppendBatch(ctx context.Context, entries []UsageLogEntry) error

	// ForDay returns all entries for the device on the given local day,
	// in ascending timestamp order.
	ForDay(ctx context.Context, deviceID string, day time.Time) ([]UsageLogEntry, error)
}

// RuleStore reads enforcement rules. Rules are written by the admin
// surface, which is outside this core.
type RuleStore interface {
	// EnabledForDevice returns all enabled rules for the device.
	EnabledForDevice(ctx context.Context, deviceID string) ([]Rule, error)
}

// PairingStore manages one-time pairing tokens.
type PairingStore interface {
	// CreateToken inserts a fresh token.
	CreateToken(ctx context.Context, t PairingToken) error

	// Find returns the token, or nil when unknown.
	Find(ctx context.Context, token string) (*PairingToken, error)

	// Consume marks the token consumed exactly once. Returns
	// ErrUnauthorized when the token is unknown, expired, or already
	// consumed.
	Consume(ctx context.Context, token string, now time.Time) (*PairingToken, error)
}

// SpillQueue is the agent-local durable store for batches that could
// not be delivered. Entries survive agent restarts and are removed
// only after a confirmed delivery; resending an already-delivered
// entry is preferable to losing one.
type SpillQueue interface {
	// Push persists entries for later delivery.
	Push(entries []UsageLogEntry) error

	// Peek returns everything currently spilled, oldest first,
	// without removing it.
	Peek() ([]UsageLogEntry, error)

	// Drop removes the n oldest spilled entries.
	Drop(n int) error

	// Len returns the number of spilled entries.
	Len() (int, error)

	// Close releases the underlying database.
	Close() error
}

// BackendClient is the agent's view of the backend protocol.
type BackendClient interface {
	// Pair exchanges a one-time token for device credentials.
	Pair(ctx context.Context, req PairRequest) (*Device, error)

	// FetchRules returns the enforcement response for the device.
	FetchRules(ctx context.Context, deviceID, apiKey string) (*EnforcementResponse, error)

	// ReportUsage ships a batch of usage entries.
	ReportUsage(ctx context.Context, deviceID, apiKey string, entries []UsageLogEntry) error
}

// PairRequest carries the fields the pairing endpoint needs.
type PairRequest struct {
	Token      string
	DeviceName string
	DeviceType string
	MACAddress string
	DeviceID   string
}

// EvaluatedRule is a rule plus its live exceeded flag.
type EvaluatedRule struct {
	Rule
	Exceeded bool
}

// EnforcementResponse is what the agent receives from fetch-rules. It
// carries live usage figures so the agent decides enforcement against
// current data rather than a stale server-side boolean.
type EnforcementResponse struct {
	Rules      []EvaluatedRule
	DailyUsage int64
	UsageByApp map[string]int64
	ServerTime time.Time
}
