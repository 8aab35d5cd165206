package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to a procmate daemon over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8321/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new procmate API client
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	var out []Info
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/processes", &out); err != nil {
		c.logger.Debug("Daemon unreachable", "error", err)
		return false
	}
	return true
}

// Snapshot fetches status and metadata for every registered process.
func (c *Client) Snapshot(ctx context.Context) ([]Info, error) {
	var out []Info
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/processes", &out)
	return out, err
}

// Status fetches the status of a single process.
func (c *Client) Status(ctx context.Context, key string) (Status, error) {
	var out Status
	err := c.doJSON(ctx, http.MethodGet, c.processURL(key, ""), &out)
	return out, err
}

// Logs fetches the most recent captured output lines. A non-positive
// limit asks the daemon for everything it has buffered.
func (c *Client) Logs(ctx context.Context, key string, limit int) ([]LogEntry, error) {
	u := c.processURL(key, "/logs")
	if limit != 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	var out []LogEntry
	err := c.doJSON(ctx, http.MethodGet, u, &out)
	return out, err
}

// Start starts a registered process.
func (c *Client) Start(ctx context.Context, key string) (Status, error) {
	c.logger.Debug("Starting process", "key", key)
	var out Status
	err := c.doJSON(ctx, http.MethodPost, c.processURL(key, "/start"), &out)
	return out, err
}

// Stop stops a running process. wait bounds the graceful-termination
// window; zero uses the daemon's default.
func (c *Client) Stop(ctx context.Context, key string, wait time.Duration) error {
	c.logger.Debug("Stopping process", "key", key, "wait", wait)
	return c.doJSON(ctx, http.MethodPost, c.processURL(key, "/stop")+waitQuery(wait), nil)
}

// Restart stops (if running) and starts a process.
func (c *Client) Restart(ctx context.Context, key string, wait time.Duration) (Status, error) {
	c.logger.Debug("Restarting process", "key", key, "wait", wait)
	var out Status
	err := c.doJSON(ctx, http.MethodPost, c.processURL(key, "/restart")+waitQuery(wait), &out)
	return out, err
}

// EnsureRunning starts a process unless it is already running.
func (c *Client) EnsureRunning(ctx context.Context, key string) (Status, error) {
	var out Status
	err := c.doJSON(ctx, http.MethodPost, c.processURL(key, "/ensure"), &out)
	return out, err
}

// SetAutostart toggles the autostart flag for a process.
func (c *Client) SetAutostart(ctx context.Context, key string, enabled bool) error {
	u := c.processURL(key, "/autostart") + "?enabled=" + strconv.FormatBool(enabled)
	return c.doJSON(ctx, http.MethodPost, u, nil)
}

// Sweep asks the daemon to run its autostart/schedule sweep now.
func (c *Client) Sweep(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, c.baseURL+"/sweep", nil)
}

func (c *Client) processURL(key, suffix string) string {
	return c.baseURL + "/processes/" + url.PathEscape(key) + suffix
}

func waitQuery(wait time.Duration) string {
	if wait > 0 {
		return "?wait=" + wait.String()
	}
	return ""
}

// doJSON performs a request and decodes the response into out when
// out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", url)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("API error: %s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
