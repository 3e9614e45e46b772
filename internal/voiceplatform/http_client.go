package voiceplatform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"voicepool/internal/config"
)

// HTTPClient talks to the real voice platform over HTTPS. One instance is
// shared; secrets are passed per call, never stored.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(cfg *config.Config) Client {
	return &HTTPClient{
		baseURL: cfg.PlatformBaseURL,
		httpClient: &http.Client{
			Timeout: cfg.CallTimeout,
		},
	}
}

type createResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

func (c *HTTPClient) CreateAgentRegistration(ctx context.Context, secret string, spec ResourceSpec) (string, error) {
	return c.create(ctx, secret, "/v1/agents", spec)
}

func (c *HTTPClient) DeleteAgentRegistration(ctx context.Context, secret, remoteID string) error {
	return c.delete(ctx, secret, "/v1/agents/"+remoteID)
}

func (c *HTTPClient) CreatePhoneNumberRegistration(ctx context.Context, secret string, spec ResourceSpec) (string, error) {
	return c.create(ctx, secret, "/v1/phone-numbers", spec)
}

func (c *HTTPClient) DeletePhoneNumberRegistration(ctx context.Context, secret, remoteID string) error {
	return c.delete(ctx, secret, "/v1/phone-numbers/"+remoteID)
}

func (c *HTTPClient) CreateVoiceRegistration(ctx context.Context, secret string, spec ResourceSpec) (string, error) {
	return c.create(ctx, secret, "/v1/voices", spec)
}

func (c *HTTPClient) DeleteVoiceRegistration(ctx context.Context, secret, remoteID string) error {
	return c.delete(ctx, secret, "/v1/voices/"+remoteID)
}

// ProbeCapability performs a lightweight list call to verify the secret is
// still accepted. A 200 with an error body counts as degraded, not healthy.
func (c *HTTPClient) ProbeCapability(ctx context.Context, secret string) (ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/agents?limit=1", nil)
	if err != nil {
		return ProbeResult{}, err
	}
	c.setHeaders(req, secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return ProbeResult{}, &PlatformError{
			Kind:       kindFromStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return ProbeResult{OK: true, Degraded: true, Message: parsed.Error}, nil
	}

	return ProbeResult{OK: true}, nil
}

func (c *HTTPClient) create(ctx context.Context, secret, path string, spec ResourceSpec) (string, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	c.setHeaders(req, secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create registration failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &PlatformError{
			Kind:       kindFromStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var parsed createResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if parsed.ID == "" {
		return "", &PlatformError{Kind: ErrKindUnknown, StatusCode: resp.StatusCode, Message: "create response missing id"}
	}

	return parsed.ID, nil
}

func (c *HTTPClient) delete(ctx context.Context, secret, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req, secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete registration failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &PlatformError{
		Kind:       kindFromStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Message:    string(body),
	}
}

func (c *HTTPClient) setHeaders(req *http.Request, secret string) {
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "voicepool/"+version)
}

var version = "dev"
