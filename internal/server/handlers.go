package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fernwall/screentime/internal/api"
	"github.com/fernwall/screentime/internal/domain"
	"github.com/fernwall/screentime/internal/metrics"
	"github.com/fernwall/screentime/internal/rules"
)

// maxBodyBytes bounds request bodies; agents send small JSON batches.
const maxBodyBytes = 1 << 20

// maxSampleSeconds caps a single sample's duration at one full day. No
// honest agent can observe more than that in one row.
const maxSampleSeconds = 86400

// Handlers implements the agent-facing HTTP surface.
type Handlers struct {
	devices domain.DeviceStore
	usage   domain.UsageLogStore
	pairing domain.PairingStore
	engine  *rules.Engine
	clock   rules.Clock
	logger  *zap.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	devices domain.DeviceStore,
	usage domain.UsageLogStore,
	pairing domain.PairingStore,
	engine *rules.Engine,
	clock rules.Clock,
	logger *zap.Logger,
) *Handlers {
	if clock == nil {
		clock = rules.RealClock{}
	}
	return &Handlers{
		devices: devices,
		usage:   usage,
		pairing: pairing,
		engine:  engine,
		clock:   clock,
		logger:  logger,
	}
}

// Pair handles POST /pairing/pair: consume a one-time token and mint a
// device. Invalid, expired or consumed tokens all yield 401.
func (h *Handlers) Pair(w http.ResponseWriter, r *http.Request) {
	var req api.PairRequest
	if !h.decode(w, r, &req) {
		return
	}

	verr := &domain.ValidationError{}
	if req.Token == "" {
		verr.Add("token", "required")
	}
	if req.DeviceName == "" {
		verr.Add("device_name", "required")
	}
	if verr.HasErrors() {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Fields)
		return
	}

	now := h.clock.Now()
	if _, err := h.pairing.Consume(r.Context(), req.Token, now); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			metrics.AuthFailures.Inc()
			writeError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		h.serverFault(w, "consume pairing token", err)
		return
	}

	// A request carrying a known device_id is a re-pair: the id stays
	// immutable and only the api_key rotates.
	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}
	device := domain.Device{
		DeviceID:   deviceID,
		APIKey:     uuid.NewString(),
		Name:       req.DeviceName,
		DeviceType: req.DeviceType,
		MACAddress: req.MACAddress,
		PairedAt:   now,
	}
	if err := h.devices.Upsert(r.Context(), device); err != nil {
		h.serverFault(w, "upsert device", err)
		return
	}

	metrics.DevicesPaired.Inc()
	h.logger.Info("device paired",
		zap.String("device_id", device.DeviceID),
		zap.String("name", device.Name))

	writeJSON(w, http.StatusOK, api.PairResponse{
		DeviceID: device.DeviceID,
		APIKey:   device.APIKey,
	})
}

// PairingStatus handles GET /pairing/status/{token}.
func (h *Handlers) PairingStatus(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	t, err := h.pairing.Find(r.Context(), token)
	if err != nil {
		h.serverFault(w, "find pairing token", err)
		return
	}

	status := "unknown"
	switch {
	case t == nil:
	case t.Consumed:
		status = "consumed"
	case t.Expired(h.clock.Now()):
		status = "expired"
	default:
		status = "pending"
	}
	writeJSON(w, http.StatusOK, api.PairingStatusResponse{Status: status})
}

/// FetchRules handles POST /rules/agent/fetch: authenticate, evaluate
// today's rules, and return the full rule list with live usage figures.
func (h *Handlers) FetchRules(w http.ResponseWriter, r *http.Request) {
	var req api.FetchRulesRequest
	if !h.decode(w, r, &req) {
		return
	}

	if !h.authenticate(w, r, req.DeviceID, req.APIKey) {
		return
	}

	resp, err := h.engine.EvaluateDevice(r.Context(), req.DeviceID)
	if err != nil {
		h.serverFault(w, "evaluate rules", err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromEnforcement(resp))
}

// Report handles POST /reports/agent/report: authenticate, validate
// every sample, and append the whole batch in one transaction.
func (h *Handlers) Report(w http.ResponseWriter, r *http.Request) {
	var req api.ReportRequest
	if !h.decode(w, r, &req) {
		return
	}

	if !h.authenticate(w, r, req.DeviceID, req.APIKey) {
		return
	}

	if verr := validateReport(req); verr.HasErrors() {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Fields)
		return
	}

	entries := make([]domain.UsageLogEntry, 0, len(req.UsageLogs))
	for _, dto := range req.UsageLogs {
		entries = append(entries, domain.UsageLogEntry{
			DeviceID:        req.DeviceID,
			AppName:         dto.AppName,
			WindowTitle:     dto.WindowTitle,
			ExePath:         dto.ExePath,
			Timestamp:       dto.Timestamp,
			DurationSeconds: dto.Duration,
			IsFocused:       dto.IsFocused,
		})
	}

	if err := h.usage.AppendBatch(r.Context(), entries); err != nil {
		h.serverFault(w, "append usage batch", err)
		return
	}

	metrics.UsageRowsIngested.Add(float64(len(entries)))
	writeJSON(w, http.StatusOK, api.ReportResponse{Status: "ok", Received: len(entries)})
}

// Healthz handles GET /healthz.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validateReport checks every sample field. Index-qualified field
// names let the agent pinpoint the offending entry.
func validateReport(req api.ReportRequest) *domain.ValidationError {
	verr := &domain.ValidationError{}
	if req.UsageLogs == nil {
		return verr.Add("usage_logs", "required")
	}
	for i, dto := range req.UsageLogs {
		if dto.AppName == "" {
			verr.Add(indexedField("usage_logs", i, "app_name"), "required")
		}
		if dto.Timestamp.IsZero() {
			verr.Add(indexedField("usage_logs", i, "timestamp"), "required")
		}
		if dto.Duration < 0 {
			verr.Add(indexedField("usage_logs", i, "duration"), "must be non-negative")
		} else if dto.Duration > maxSampleSeconds {
			verr.Add(indexedField("usage_logs", i, "duration"), "must not exceed 24 hours")
		}
	}
	return verr
}

func indexedField(list string, i int, field string) string {
	return list + "[" + strconv.Itoa(i) + "]." + field
}

// authenticate writes a 401 and returns false when credentials fail.
// The response never distinguishes a bad device id from a bad key.
func (h *Handlers) authenticate(w http.ResponseWriter, r *http.Request, deviceID, apiKey string) bool {
	if deviceID == "" || apiKey == "" {
		metrics.AuthFailures.Inc()
		writeError(w, http.StatusUnauthorized, "unauthorized", nil)
		return false
	}
	if _, err := h.devices.Authenticate(r.Context(), deviceID, apiKey); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			metrics.AuthFailures.Inc()
			writeError(w, http.StatusUnauthorized, "unauthorized", nil)
			return false
		}
		h.serverFault(w, "authenticate device", err)
		return false
	}
	return true
}

// decode parses the JSON body; malformed JSON is a validation error,
// never a server fault.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed",
			[]domain.FieldError{{Field: "body", Message: "malformed JSON: " + err.Error()}})
		return false
	}
	return true
}

func (h *Handlers) serverFault(w http.ResponseWriter, op string, err error) {
	h.logger.Error("server fault", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", nil)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string, details []domain.FieldError) {
	writeJSON(w, status, api.ErrorResponse{Error: code, Details: details})
}

// CreatePairingToken mints a one-time token, used by the token CLI.
func (h *Handlers) CreatePairingToken(ctx context.Context, ttl time.Duration) (*domain.PairingToken, error) {
	now := h.clock.Now()
	t := domain.PairingToken{
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := h.pairing.CreateToken(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}
