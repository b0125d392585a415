// Package client is the caller-side poller for the bridge.
//
// Run submits a code string and then polls for the outcome with
// exponential backoff, starting at 100ms and capped at 1s: quick enough
// to keep the perceived latency near the transport's own, without
// busy-looping. Polling is the only intentional wait on the caller side;
// it is bounded by the caller's timeout.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/tabpilot/bridge/internal/shared/types"
)

var (
	// ErrBridgeUnreachable means the bridge daemon itself did not answer
	ErrBridgeUnreachable = errors.New("bridge not reachable: is bridged running?")
	// ErrNoPeer means the bridge is up but no tab was listening
	ErrNoPeer = errors.New("no active tab: open the extension in a foreground tab")
	// ErrTimeout means a peer was reachable but did not reply in time
	ErrTimeout = errors.New("timed out waiting for the page to reply")
	// ErrUnknownRequest means the id was never issued or already collected
	ErrUnknownRequest = errors.New("unknown request id")
)

// ExecError carries the peer's own error string, verbatim: the submitted
// code failed on the page, the bridge worked fine.
type ExecError struct {
	Message string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("page execution failed: %s", e.Message)
}

const (
	pollInitialInterval = 100 * time.Millisecond
	pollMaxInterval     = time.Second
)

// RunResult is a successful outcome with its page context
type RunResult struct {
	Value interface{}
	URL   string
	Title string
}

// Health mirrors the bridge's /health payload
type Health struct {
	OK             bool   `json:"ok"`
	ConnectedPeers int    `json:"connected_peers"`
	Pending        int    `json:"pending"`
	Completed      int    `json:"completed"`
	ControlSession string `json:"control_session"`
}

// Config holds client construction options
type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
}

// Client talks to the bridge over its HTTP surface
type Client struct {
	resty *resty.Client
}

// New creates a client. Transport retries cover transient local hiccups;
// request-level polling is handled by Run, not the transport.
func New(cfg Config) *Client {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = time.Second
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("User-Agent", "tabpilot-cli/0.3").
		SetTransport(retryClient.StandardClient().Transport)

	return &Client{resty: restyClient}
}

type submitResponse struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
	Warning   string `json:"warning"`
}

type resultResponse struct {
	OK     bool        `json:"ok"`
	Status string      `json:"status"`
	Result interface{} `json:"result"`
	URL    string      `json:"url"`
	Title  string      `json:"title"`
	Error  string      `json:"error"`
}

// Submit sends code to the bridge and returns the request id without
// waiting for the outcome.
func (c *Client) Submit(ctx context.Context, code string, timeout time.Duration) (string, error) {
	body := map[string]interface{}{"code": code}
	if timeout > 0 {
		body["timeout_ms"] = int(timeout / time.Millisecond)
	}

	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(body).
		Post("/run")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBridgeUnreachable, err)
	}

	var parsed submitResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("bad bridge response: %w", err)
	}
	if !parsed.OK {
		return "", fmt.Errorf("submit rejected: %s", parsed.Error)
	}
	return parsed.RequestID, nil
}

// Run submits code and polls until a terminal outcome or the timeout.
func (c *Client) Run(ctx context.Context, code string, timeout time.Duration) (*RunResult, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	requestID, err := c.Submit(ctx, code, timeout)
	if err != nil {
		return nil, err
	}
	return c.Await(ctx, requestID, timeout)
}

// Await polls an already-submitted request until it resolves. The local
// deadline runs slightly past the bridge's so the sweep can surface its
// definitive timeout outcome first.
func (c *Client) Await(ctx context.Context, requestID string, timeout time.Duration) (*RunResult, error) {
	deadline := time.Now().Add(timeout + 15*time.Second)
	interval := pollInitialInterval

	for {
		result, done, err := c.pollOnce(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if done {
			return result, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		interval *= 2
		if interval > pollMaxInterval {
			interval = pollMaxInterval
		}
	}
}

// pollOnce queries /result once. done=false means still pending.
func (c *Client) pollOnce(ctx context.Context, requestID string) (*RunResult, bool, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetQueryParam("request_id", requestID).
		Get("/result")
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrBridgeUnreachable, err)
	}

	var parsed resultResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, false, fmt.Errorf("bad bridge response: %w", err)
	}

	if parsed.OK {
		return &RunResult{Value: parsed.Result, URL: parsed.URL, Title: parsed.Title}, true, nil
	}
	if parsed.Status == "pending" {
		return nil, false, nil
	}

	return nil, true, classifyError(parsed.Error)
}

// classifyError maps the bridge's terminal error strings onto the client's
// typed errors so the CLI can tell "nothing was listening" from "my code
// crashed".
func classifyError(msg string) error {
	switch {
	case msg == "unknown request id":
		return ErrUnknownRequest
	case strings.HasPrefix(msg, "no peer connected"):
		return ErrNoPeer
	case strings.HasPrefix(msg, "timed out waiting"):
		return ErrTimeout
	default:
		return &ExecError{Message: msg}
	}
}

// Notifications drains the bridge's caller side-channel
func (c *Client) Notifications(ctx context.Context) ([]types.Notification, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		Get("/notifications")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnreachable, err)
	}

	var parsed struct {
		OK            bool                 `json:"ok"`
		Notifications []types.Notification `json:"notifications"`
	}
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("bad bridge response: %w", err)
	}
	return parsed.Notifications, nil
}

// Health fetches the bridge's health summary
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		Get("/health")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnreachable, err)
	}

	var parsed Health
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("bad bridge response: %w", err)
	}
	return &parsed, nil
}

// StartControl begins a control session on the bridge
func (c *Client) StartControl(ctx context.Context, cfg *types.ControlConfig) (string, error) {
	req := c.resty.R().SetContext(ctx)
	if cfg != nil {
		req.SetBody(map[string]interface{}{"config": cfg})
	} else {
		req.SetBody(map[string]interface{}{})
	}

	resp, err := req.Post("/control/start")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBridgeUnreachable, err)
	}

	var parsed submitResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("bad bridge response: %w", err)
	}
	if !parsed.OK {
		return "", fmt.Errorf("control start rejected: %s", parsed.Error)
	}
	return parsed.RequestID, nil
}

// Directive issues a control session directive and waits for its outcome
func (c *Client) Directive(ctx context.Context, name string, args map[string]interface{}, timeout time.Duration) (*RunResult, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	body := map[string]interface{}{
		"name":       name,
		"timeout_ms": int(timeout / time.Millisecond),
	}
	if len(args) > 0 {
		body["args"] = args
	}

	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(body).
		Post("/control/directive")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnreachable, err)
	}

	var parsed submitResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("bad bridge response: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("directive rejected: %s", parsed.Error)
	}
	return c.Await(ctx, parsed.RequestID, timeout)
}

// StopControl ends the control session on the bridge
func (c *Client) StopControl(ctx context.Context) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		Post("/control/stop")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeUnreachable, err)
	}

	var parsed submitResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return fmt.Errorf("bad bridge response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("control stop rejected: %s", parsed.Error)
	}
	return nil
}
