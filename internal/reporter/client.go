package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fernwall/screentime/internal/api"
	"github.com/fernwall/screentime/internal/domain"
)

// DefaultRequestTimeout bounds every backend call so a stalled network
// never stalls the agent's loops.
const DefaultRequestTimeout = 10 * time.Second

// Client implements domain.BackendClient over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// Pair exchanges a one-time token for device credentials.
func (c *Client) Pair(ctx context.Context, req domain.PairRequest) (*domain.Device, error) {
	body := api.PairRequest{
		Token:      req.Token,
		DeviceName: req.DeviceName,
		DeviceType: req.DeviceType,
		MACAddress: req.MACAddress,
		DeviceID:   req.DeviceID,
	}

	var resp api.PairResponse
	if err := c.post(ctx, "/pairing/pair", body, &resp); err != nil {
		return nil, err
	}
	return &domain.Device{DeviceID: resp.DeviceID, APIKey: resp.APIKey}, nil
}

// FetchRules returns the enforcement response for the device.
func (c *Client) FetchRules(ctx context.Context, deviceID, apiKey string) (*domain.EnforcementResponse, error) {
	body := api.FetchRulesRequest{DeviceID: deviceID, APIKey: apiKey}

	var resp api.FetchRulesResponse
	if err := c.post(ctx, "/rules/agent/fetch", body, &resp); err != nil {
		return nil, err
	}
	return api.ToEnforcement(resp), nil
}

// ReportUsage ships a batch of usage entries.
func (c *Client) ReportUsage(ctx context.Context, deviceID, apiKey string, entries []domain.UsageLogEntry) error {
	body := api.ReportRequest{
		DeviceID:  deviceID,
		APIKey:    apiKey,
		UsageLogs: api.FromEntries(entries),
	}
	var resp api.ReportResponse
	return c.post(ctx, "/reports/agent/report", body, &resp)
}

// post sends a JSON body and decodes the JSON response. Status codes
// map onto the error taxonomy: 401 is ErrUnauthorized, 4xx is a plain
// error, everything network-ish or 5xx is transient and retryable.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.TransientNetworkError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case resp.StatusCode >= 500:
		return &domain.TransientNetworkError{
			Err: fmt.Errorf("server returned %d", resp.StatusCode),
		}
	default:
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("backend rejected request (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("backend rejected request (%d)", resp.StatusCode)
	}
}

// Ensure Client implements domain.BackendClient.
var _ domain.BackendClient = (*Client)(nil)
