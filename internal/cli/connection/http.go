package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/kvmesh-go/internal/server/httpserver/handler"
)

// AdminClient calls the admin HTTP API.
type AdminClient struct {
	baseURL  string
	password string
	client   *http.Client
}

// NewAdminClient creates a client for server, which may omit the scheme.
// A unix:///path/to/admin.sock address talks to the local admin socket.
func NewAdminClient(server, password string, timeout time.Duration) *AdminClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	base := server
	if path, ok := strings.CutPrefix(server, "unix://"); ok {
		var d net.Dialer
		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return d.DialContext(ctx, "unix", path)
			},
		}
		base = "http://localhost"
	} else if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &AdminClient{
		baseURL:  strings.TrimRight(base, "/"),
		password: password,
		client:   client,
	}
}

// BaseURL returns the normalized server URL.
func (c *AdminClient) BaseURL() string { return c.baseURL }

// Health calls GET /health.
func (c *AdminClient) Health(ctx context.Context) (*handler.HealthResponse, error) {
	var out handler.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status calls GET /admin/v1/status/summary.
func (c *AdminClient) Status(ctx context.Context) (*handler.StatusSummary, error) {
	var out handler.StatusSummary
	if err := c.do(ctx, http.MethodGet, "/admin/v1/status/summary", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Snapshot calls POST /admin/v1/snapshots.
func (c *AdminClient) Snapshot(ctx context.Context) (*handler.SnapshotResponse, error) {
	var out handler.SnapshotResponse
	if err := c.do(ctx, http.MethodPost, "/admin/v1/snapshots", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// APIError is a non-2xx admin response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("admin api: status %d", e.Status)
	}
	return fmt.Sprintf("admin api: [%s] %s", e.Code, e.Message)
}

func (c *AdminClient) do(ctx context.Context, method, path string, data any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "kvmesh-cli/"+buildinfo.Version)
	req.Header.Set("Accept", "application/json")
	if c.password != "" {
		req.Header.Set("Authorization", "Bearer "+c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code, apiErr.Message = env.Code, env.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
