package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/embedsvc/embedsvc/internal/api"
)

// defaultTimeout covers lazy model construction on the daemon side.
const defaultTimeout = 2 * time.Minute

// Client provides methods to communicate with the embedsvcd daemon
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new daemon client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Health checks if the daemon is up and whether its model is ready.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var health api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Status retrieves daemon and model diagnostics.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var status api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Embed requests the embedding of text.
func (c *Client) Embed(ctx context.Context, text string) (*api.EmbedResponse, error) {
	var res api.EmbedResponse
	if err := c.do(ctx, http.MethodPost, "/embed", api.EmbedRequest{Text: &text}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrDaemonConnectionFailed(c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeErrorResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var errResp api.ErrorResponse
	detail := string(bytes.TrimSpace(data))
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Detail != "" {
		detail = errResp.Detail
	}
	return ErrRequestFailed(resp.StatusCode, resp.Header.Get(api.BackendErrorHeader), detail)
}

// StatusCode returns the HTTP status of a failed daemon request, or 0 when
// err did not come from a daemon response.
func StatusCode(err error) int {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.StatusCode
	}
	return 0
}
