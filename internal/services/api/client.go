// Package api is the JSON client for the remote attendance server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/attendance-tui/internal/logger"
	"github.com/j-veylop/attendance-tui/internal/models"
)

// Endpoint paths.
const (
	PathLogin    = "/api/auth/login"
	PathLogout   = "/api/auth/logout"
	PathProfile  = "/api/auth/profile"
	PathToday    = "/api/attendance/today"
	PathCheckIn  = "/api/attendance/checkin"
	PathCheckOut = "/api/attendance/checkout"
)

const defaultTimeout = 30 * time.Second

// Client talks to the attendance server.
type Client struct {
	httpClient   *http.Client
	newRequestID func() string
	baseURL      string
}

// NewClient creates a client for baseURL. A nil httpClient gets a default
// one with a 30s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		newRequestID: uuid.NewString,
	}
}

// BaseURL returns the server root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if _, err := c.do(ctx, http.MethodPost, PathLogin, "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout tells the server the token is no longer in use.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPost, PathLogout, token, struct{}{}, nil)
	return err
}

// Profile returns the user owning token.
func (c *Client) Profile(ctx context.Context, token string) (*models.UserProfile, error) {
	var resp profileResponse
	if _, err := c.do(ctx, http.MethodGet, PathProfile, token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Today returns the server's record of today's attendance.
func (c *Client) Today(ctx context.Context, token string) (*TodayResponse, error) {
	var resp TodayResponse
	if _, err := c.do(ctx, http.MethodGet, PathToday, token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckIn records the start of the working day.
func (c *Client) CheckIn(ctx context.Context, token string, req CheckInRequest) (*AttendanceResponse, error) {
	var resp AttendanceResponse
	id, err := c.do(ctx, http.MethodPost, PathCheckIn, token, req, &resp)
	if err != nil {
		return nil, err
	}
	resp.RequestID = id
	return &resp, nil
}

// CheckOut records the end of the working day.
func (c *Client) CheckOut(ctx context.Context, token string, coords models.Coordinates) (*AttendanceResponse, error) {
	var resp AttendanceResponse
	id, err := c.do(ctx, http.MethodPost, PathCheckOut, token, coords, &resp)
	if err != nil {
		return nil, err
	}
	resp.RequestID = id
	return &resp, nil
}

// do sends one request and decodes the reply into out. It returns the
// request ID it sent.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) (string, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", fmt.Errorf("failed to create %s request: %w", path, err)
	}

	requestID := c.newRequestID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return requestID, fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return requestID, fmt.Errorf("%s %s: failed to read response: %w: %w", method, path, ErrTransport, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Warn("non-JSON response", "path", path, "status", resp.StatusCode, "request_id", requestID)
		return requestID, fmt.Errorf("%s %s: status %d with non-JSON body: %w", method, path, resp.StatusCode, ErrTransport)
	}

	if !env.Success {
		return requestID, &Error{
			Status:        resp.StatusCode,
			Code:          env.Code,
			Message:       env.Message,
			Distance:      env.Distance,
			AllowedRadius: env.AllowedRadius,
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return requestID, fmt.Errorf("failed to parse %s response: %w", path, err)
		}
	}

	logger.Debug("api request ok", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)
	return requestID, nil
}
