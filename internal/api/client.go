package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/syncfix/syncfix/internal/domain"
)

// Client talks to a running daemon's control API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the daemon at host:port.
func NewClient(host string, port int) *Client {
	return NewClientURL(fmt.Sprintf("http://%s:%d", host, port))
}

// NewClientURL creates a client for an explicit base URL (tests).
func NewClientURL(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 90 * time.Second},
	}
}

// Status returns the daemon status snapshot.
func (c *Client) Status(ctx context.Context) (domain.Status, error) {
	var st domain.Status
	err := c.do(ctx, http.MethodGet, "/api/status", &st)
	return st, err
}

// Trigger starts a manual run and returns its run ID.
// Returns domain.ErrRunInProgress when a run is already active.
func (c *Client) Trigger(ctx context.Context) (string, error) {
	var resp TriggerResponse
	if err := c.do(ctx, http.MethodPost, "/api/trigger", &resp); err != nil {
		return "", err
	}
	return resp.RunID, nil
}

// ResetCooldown clears the cooldown and returns the new status.
func (c *Client) ResetCooldown(ctx context.Context) (domain.Status, error) {
	var st domain.Status
	err := c.do(ctx, http.MethodPost, "/api/cooldown/reset", &st)
	return st, err
}

// ApplyCooldown starts the cooldown now and returns the new status.
func (c *Client) ApplyCooldown(ctx context.Context) (domain.Status, error) {
	var st domain.Status
	err := c.do(ctx, http.MethodPost, "/api/cooldown/apply", &st)
	return st, err
}

// Apps returns the running state of both applications.
func (c *Client) Apps(ctx context.Context) ([]domain.AppState, error) {
	var states []domain.AppState
	err := c.do(ctx, http.MethodGet, "/api/apps", &states)
	return states, err
}

// StartApp starts one application.
func (c *Client) StartApp(ctx context.Context, app domain.AppID) (domain.AppState, error) {
	var st domain.AppState
	err := c.do(ctx, http.MethodPost, "/api/apps/"+url.PathEscape(string(app))+"/start", &st)
	return st, err
}

// StopApp stops one application.
func (c *Client) StopApp(ctx context.Context, app domain.AppID) (domain.AppState, error) {
	var st domain.AppState
	err := c.do(ctx, http.MethodPost, "/api/apps/"+url.PathEscape(string(app))+"/stop", &st)
	return st, err
}

// Logs returns up to limit recent log events, oldest first.
func (c *Client) Logs(ctx context.Context, limit int) ([]domain.LogEvent, error) {
	var events []domain.LogEvent
	err := c.do(ctx, http.MethodGet, "/api/logs?limit="+strconv.Itoa(limit), &events)
	return events, err
}

// Health returns the health report. An unhealthy daemon is not an error.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", &resp)
	if err != nil {
		if he, ok := err.(*httpError); ok && he.status == http.StatusServiceUnavailable {
			return he.health, nil
		}
	}
	return resp, err
}

// Version returns the daemon version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp map[string]string
	err := c.do(ctx, http.MethodGet, "/api/version", &resp)
	return resp["version"], err
}

// httpError is a non-2xx response.
type httpError struct {
	status int
	msg    string
	health HealthResponse
	err    error
}

func (e *httpError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("daemon returned %d", e.status)
}

func (e *httpError) Unwrap() error { return e.err }

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDaemonUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func decodeError(status int, body []byte) error {
	he := &httpError{status: status}

	if status == http.StatusServiceUnavailable && json.Unmarshal(body, &he.health) == nil && he.health.Checks != nil {
		he.msg = "unhealthy"
		return he
	}

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
		he.msg = eb.Error.Message
	} else {
		he.msg = strings.TrimSpace(string(body))
	}

	switch status {
	case http.StatusConflict:
		he.err = domain.ErrRunInProgress
	case http.StatusNotFound:
		if strings.Contains(he.msg, domain.ErrUnknownApp.Error()) {
			he.err = domain.ErrUnknownApp
		}
	case http.StatusUnprocessableEntity:
		he.err = domain.ErrAppNotFound
	}
	return he
}
