package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quailyquaily/morphgate/internal/strutil"
)

const (
	defaultMaxResponseBytes = int64(1 << 20)
	defaultRequestTimeout   = 30 * time.Second
	errorBodyPreviewBytes   = 512

	// DefaultPollInterval is used by Wait when the caller passes no interval.
	DefaultPollInterval = 5 * time.Second
)

// Client is a thin wrapper over the review service HTTP API. The zero
// value is not usable; construct with New. A single Client is safe for
// concurrent use across hook invocations.
type Client struct {
	Endpoint string
	APIKey   string

	HTTP             *http.Client
	MaxResponseBytes int64
	UserAgent        string

	// sleep is the wait primitive between polls; tests override it.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(endpoint, apiKey string) *Client {
	return &Client{
		Endpoint:         strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		APIKey:           strings.TrimSpace(apiKey),
		HTTP:             &http.Client{Timeout: defaultRequestTimeout},
		MaxResponseBytes: defaultMaxResponseBytes,
		sleep:            sleepContext,
	}
}

// Submit creates a review task and returns the service's immediate
// verdict, which may already be terminal for low-risk work.
func (c *Client) Submit(ctx context.Context, task Task) (Verdict, error) {
	if strings.TrimSpace(task.FunctionName) == "" {
		return Verdict{}, fmt.Errorf("missing function_name")
	}
	return c.do(ctx, http.MethodPost, "/v1/review-tasks", task)
}

// Status fetches the current verdict for a known review task id.
func (c *Client) Status(ctx context.Context, reviewTaskID string) (Verdict, error) {
	id := strings.TrimSpace(reviewTaskID)
	if id == "" {
		return Verdict{}, fmt.Errorf("missing review_task_id")
	}
	return c.do(ctx, http.MethodGet, "/v1/review-tasks/"+url.PathEscape(id), nil)
}

// WaitOptions bounds a polling wait. A zero Timeout polls until ctx is
// done; a zero PollInterval falls back to DefaultPollInterval.
type WaitOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// WaitResult pairs the outcome of an asynchronous wait.
type WaitResult struct {
	Verdict Verdict
	Err     error
}

// Wait polls Status at PollInterval spacing until the task reaches a
// terminal state or the timeout elapses. The number of status calls is
// capped at floor(timeout/interval)+1, so the wait terminates even under
// clock irregularities. On deadline it fails with *ApprovalTimeoutError
// carrying the id and elapsed time.
func (c *Client) Wait(ctx context.Context, reviewTaskID string, opts WaitOptions) (Verdict, error) {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	maxAttempts := 0
	if opts.Timeout > 0 {
		maxAttempts = int(opts.Timeout/interval) + 1
	}

	start := time.Now()
	attempts := 0
	for {
		v, err := c.Status(ctx, reviewTaskID)
		if err != nil {
			return Verdict{}, err
		}
		attempts++
		if v.IsTerminal() {
			return v, nil
		}
		if maxAttempts > 0 && attempts >= maxAttempts {
			return Verdict{}, &ApprovalTimeoutError{
				ReviewTaskID: reviewTaskID,
				Elapsed:      time.Since(start),
				Timeout:      opts.Timeout,
			}
		}
		if err := c.sleepFn()(ctx, interval); err != nil {
			return Verdict{}, err
		}
	}
}

// WaitAsync runs Wait on its own goroutine and delivers the outcome on
// the returned channel. The channel is buffered and closed after the
// single result, so the caller may abandon it.
func (c *Client) WaitAsync(ctx context.Context, reviewTaskID string, opts WaitOptions) <-chan WaitResult {
	out := make(chan WaitResult, 1)
	go func() {
		defer close(out)
		v, err := c.Wait(ctx, reviewTaskID, opts)
		out <- WaitResult{Verdict: v, Err: err}
	}()
	return out
}

func (c *Client) do(ctx context.Context, method, path string, body any) (Verdict, error) {
	if c == nil {
		return Verdict{}, fmt.Errorf("nil review client")
	}
	endpoint := strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	if endpoint == "" {
		return Verdict{}, fmt.Errorf("missing review service endpoint")
	}
	op := method + " " + path

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return Verdict{}, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint+path, rd)
	if err != nil {
		return Verdict{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if ua := strings.TrimSpace(c.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return Verdict{}, &ServiceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	limit := c.MaxResponseBytes
	if limit <= 0 {
		limit = defaultMaxResponseBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return Verdict{}, &ServiceError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Verdict{}, &ServiceError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strutil.TruncateUTF8(string(data), errorBodyPreviewBytes),
		}
	}

	var v Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return Verdict{}, &ServiceError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if strings.TrimSpace(v.ReviewTaskID) == "" {
		return Verdict{}, &ServiceError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       "response missing review_task_id",
		}
	}
	return v, nil
}

func (c *Client) sleepFn() func(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep
	}
	return sleepContext
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
