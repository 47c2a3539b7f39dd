// Package client talks to a running sendbuf demo server.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/server"
)

// Client is an HTTP client of the demo server. It is safe for concurrent use.
type Client struct {
	client *resty.Client
}

// New returns a client of the server at baseURL, such as "http://127.0.0.1:8080". Requests that
// fail to connect are retried up to retries times.
func New(baseURL string, timeout time.Duration, retries int, logger *zap.Logger) *Client {
	client := resty.New()
	client.SetLogger(logger.Sugar())

	client.
		SetTimeout(timeout).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "sendbuf-produce")

	// Only connection errors are retried. A rejected request would be rejected again.
	client.
		SetRetryCount(retries).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil
		})

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Debug("response",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("duration", resp.Time()),
		)
		return nil
	})

	return &Client{
		client: client,
	}
}

// Add produces an item with the description desc.
func (c *Client) Add(ctx context.Context, desc string) (*server.Item, error) {
	var item server.Item
	err := c.do(ctx, http.MethodPost, "/items", server.AddRequest{Desc: desc}, &item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Flush requests a flush of the buffer.
func (c *Client) Flush(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/flush", nil, nil)
}

// State returns a view of the buffer.
func (c *Client) State(ctx context.Context) (*server.State, error) {
	var state server.State
	if err := c.do(ctx, http.MethodGet, "/state", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SetFail switches failing of sends.
func (c *Client) SetFail(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/fail", server.SwitchRequest{Enabled: &enabled}, nil)
}

// SetAutoFlush switches auto flush of the buffer.
func (c *Client) SetAutoFlush(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/autoflush", server.SwitchRequest{Enabled: &enabled}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var apiErr server.ErrorResponse

	req := c.client.R().
		SetContext(ctx).
		SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &Error{
			Status:  resp.StatusCode(),
			Message: apiErr.Error,
		}
	}

	return nil
}

// Error is returned when the server rejects a request.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}
