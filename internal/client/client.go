// Package client provides HTTP access to a running daemon's management API
// for the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shelfsync/internal/api"
)

// Client talks to the daemon management API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at addr (host:port or full URL).
func New(addr string) (*Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("api address required")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		baseURL:    strings.TrimRight(addr, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var status api.DaemonStatus
	if err := c.get(ctx, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListQueue returns tasks, optionally filtered by status names.
func (c *Client) ListQueue(ctx context.Context, statuses []string) ([]api.Task, error) {
	params := url.Values{}
	for _, status := range statuses {
		params.Add("status", status)
	}
	var resp api.TaskListResponse
	if err := c.get(ctx, "/api/queue", params, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// QueueStats returns task counts per status.
func (c *Client) QueueStats(ctx context.Context) (map[string]int, error) {
	var resp api.QueueStatsResponse
	if err := c.get(ctx, "/api/queue/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

// DescribeTask fetches a single task.
func (c *Client) DescribeTask(ctx context.Context, id int64) (*api.Task, error) {
	var resp api.TaskResponse
	if err := c.get(ctx, "/api/queue/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// Enqueue queues a channel message for binding.
func (c *Client) Enqueue(ctx context.Context, req api.EnqueueRequest) (*api.EnqueueResponse, error) {
	var resp api.EnqueueResponse
	if err := c.post(ctx, "/api/queue", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RetryTask requeues one failed task.
func (c *Client) RetryTask(ctx context.Context, id int64) (int64, error) {
	var resp api.RetryResponse
	if err := c.post(ctx, "/api/queue/"+strconv.FormatInt(id, 10)+"/retry", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Retried, nil
}

// RetryAllFailed requeues every failed task.
func (c *Client) RetryAllFailed(ctx context.Context) (int64, error) {
	var resp api.RetryResponse
	if err := c.post(ctx, "/api/queue/retry", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Retried, nil
}

// RemoveTask deletes a task unless it is processing.
func (c *Client) RemoveTask(ctx context.Context, id int64) error {
	var resp api.RemoveResponse
	return c.do(ctx, http.MethodDelete, "/api/queue/"+strconv.FormatInt(id, 10), nil, nil, &resp)
}

// ClearQueue removes tasks in bulk. Scope is "all", "completed", or
// "failed"; empty means all. Processing tasks are never removed.
func (c *Client) ClearQueue(ctx context.Context, scope string) (int64, error) {
	params := url.Values{}
	if scope != "" {
		params.Set("scope", scope)
	}
	var resp api.ClearResponse
	if err := c.do(ctx, http.MethodDelete, "/api/queue", params, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// Sweep triggers a reconciliation pass and returns its report.
func (c *Client) Sweep(ctx context.Context) (*api.SweepReport, error) {
	var resp api.SweepReport
	if err := c.post(ctx, "/api/sweep", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Match ranks a file name against unbound catalog books.
func (c *Client) Match(ctx context.Context, fileName string) (*api.MatchResponse, error) {
	params := url.Values{}
	params.Set("file", fileName)
	var resp api.MatchResponse
	if err := c.get(ctx, "/api/match", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
