package review

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// noSleep replaces the wait primitive so polling tests run instantly.
func noSleep(ctx context.Context, d time.Duration) error { return nil }

// scriptedClient returns a client whose status endpoint walks through the
// given states, one per call, sticking at the last.
func scriptedClient(t *testing.T, states []State, statusCalls *int) *Client {
	t.Helper()
	var mu sync.Mutex
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		idx := *statusCalls
		if idx >= len(states) {
			idx = len(states) - 1
		}
		*statusCalls++
		v := Verdict{ReviewTaskID: "rt_1", State: states[idx]}
		b, _ := json.Marshal(v)
		return jsonResponse(200, string(b)), nil
	})
	c := New("http://fake.test", "key")
	c.HTTP = &http.Client{Transport: rt}
	c.sleep = noSleep
	return c
}

func TestSubmit_SetsAuthAndParsesVerdict(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	var gotBody Task

	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		return jsonResponse(200, `{"review_task_id":"rt_42","state":"Approved"}`), nil
	})
	c := New("http://fake.test/", "secret-key")
	c.HTTP = &http.Client{Transport: rt}

	v, err := c.Submit(context.Background(), Task{
		FunctionName: "delete_file",
		Args:         map[string]any{"path": "/tmp/x"},
		Metadata:     map[string]any{"tool_call_id": "call_1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/v1/review-tasks" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotBody.FunctionName != "delete_file" {
		t.Fatalf("unexpected function_name: %q", gotBody.FunctionName)
	}
	if v.ReviewTaskID != "rt_42" || !v.IsApproved() {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestSubmit_MissingFunctionName(t *testing.T) {
	c := New("http://fake.test", "key")
	if _, err := c.Submit(context.Background(), Task{}); err == nil {
		t.Fatal("expected error for missing function_name")
	}
}

func TestStatus_EscapesID(t *testing.T) {
	var gotPath string
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.EscapedPath()
		return jsonResponse(200, `{"review_task_id":"a/b","state":"Pending"}`), nil
	})
	c := New("http://fake.test", "key")
	c.HTTP = &http.Client{Transport: rt}

	if _, err := c.Status(context.Background(), "a/b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v1/review-tasks/a%2Fb" {
		t.Fatalf("id was not escaped: %q", gotPath)
	}
}

func TestDo_HTTPErrorBecomesServiceError(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(401, `{"error":"bad key"}`), nil
	})
	c := New("http://fake.test", "wrong")
	c.HTTP = &http.Client{Transport: rt}

	_, err := c.Status(context.Background(), "rt_1")
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	if se.StatusCode != 401 {
		t.Fatalf("expected status 401, got %d", se.StatusCode)
	}
	if !strings.Contains(se.Body, "bad key") {
		t.Fatalf("expected body preview, got %q", se.Body)
	}
}

func TestDo_TransportErrorBecomesServiceError(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	c := New("http://fake.test", "key")
	c.HTTP = &http.Client{Transport: rt}

	_, err := c.Status(context.Background(), "rt_1")
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	if se.StatusCode != 0 {
		t.Fatalf("expected status 0 for transport failure, got %d", se.StatusCode)
	}
}

func TestDo_MissingReviewTaskID(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"state":"Approved"}`), nil
	})
	c := New("http://fake.test", "key")
	c.HTTP = &http.Client{Transport: rt}

	_, err := c.Status(context.Background(), "rt_1")
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
}

func TestWait_TerminalAfterPolls(t *testing.T) {
	statusCalls := 0
	c := scriptedClient(t, []State{StatePending, StatePending, StateApproved}, &statusCalls)

	v, err := c.Wait(context.Background(), "rt_1", WaitOptions{
		PollInterval: time.Second,
		Timeout:      30 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsApproved() {
		t.Fatalf("expected Approved, got %s", v.State)
	}
	if statusCalls != 3 {
		t.Fatalf("expected exactly 3 status calls, got %d", statusCalls)
	}
}

func TestWait_AttemptCap(t *testing.T) {
	cases := []struct {
		name     string
		interval time.Duration
		timeout  time.Duration
		wantMax  int
	}{
		{"thirty_over_two", 2 * time.Second, 30 * time.Second, 16},
		{"exact_division", 5 * time.Second, 10 * time.Second, 3},
		{"interval_exceeds_timeout", 10 * time.Second, 5 * time.Second, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			statusCalls := 0
			c := scriptedClient(t, []State{StatePending}, &statusCalls)

			_, err := c.Wait(context.Background(), "rt_1", WaitOptions{
				PollInterval: tc.interval,
				Timeout:      tc.timeout,
			})
			var te *ApprovalTimeoutError
			if !errors.As(err, &te) {
				t.Fatalf("expected *ApprovalTimeoutError, got %T: %v", err, err)
			}
			if statusCalls != tc.wantMax {
				t.Fatalf("expected %d status calls (floor(t/p)+1), got %d", tc.wantMax, statusCalls)
			}
			if te.ReviewTaskID != "rt_1" {
				t.Fatalf("timeout error missing task id: %+v", te)
			}
			if te.Timeout != tc.timeout {
				t.Fatalf("timeout error carries %s, want %s", te.Timeout, tc.timeout)
			}
		})
	}
}

func TestWait_StatusErrorPropagates(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(500, `oops`), nil
	})
	c := New("http://fake.test", "key")
	c.HTTP = &http.Client{Transport: rt}
	c.sleep = noSleep

	_, err := c.Wait(context.Background(), "rt_1", WaitOptions{PollInterval: time.Second, Timeout: 10 * time.Second})
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
}

func TestWait_ZeroTimeoutPollsUntilContextDone(t *testing.T) {
	statusCalls := 0
	c := scriptedClient(t, []State{StatePending}, &statusCalls)
	// Real sleep primitive so ctx cancellation is exercised.
	c.sleep = sleepContext

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Wait(ctx, "rt_1", WaitOptions{PollInterval: 10 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
	if statusCalls < 2 {
		t.Fatalf("expected unbounded polling until ctx done, got %d calls", statusCalls)
	}
}

// Wait and WaitAsync must behave identically for the same script.
func TestWaitAsync_ParityWithWait(t *testing.T) {
	script := []State{StatePending, StateProcessing, StateChangeRequested}

	syncCalls := 0
	syncClient := scriptedClient(t, script, &syncCalls)
	syncV, syncErr := syncClient.Wait(context.Background(), "rt_1", WaitOptions{
		PollInterval: time.Second, Timeout: 30 * time.Second,
	})

	asyncCalls := 0
	asyncClient := scriptedClient(t, script, &asyncCalls)
	res := <-asyncClient.WaitAsync(context.Background(), "rt_1", WaitOptions{
		PollInterval: time.Second, Timeout: 30 * time.Second,
	})

	if (syncErr == nil) != (res.Err == nil) {
		t.Fatalf("error parity broken: sync=%v async=%v", syncErr, res.Err)
	}
	if syncV != res.Verdict {
		t.Fatalf("verdict parity broken: sync=%+v async=%+v", syncV, res.Verdict)
	}
	if syncCalls != asyncCalls {
		t.Fatalf("status call parity broken: sync=%d async=%d", syncCalls, asyncCalls)
	}
}

func TestWaitAsync_TimeoutParity(t *testing.T) {
	syncCalls := 0
	syncClient := scriptedClient(t, []State{StatePending}, &syncCalls)
	_, syncErr := syncClient.Wait(context.Background(), "rt_1", WaitOptions{
		PollInterval: time.Second, Timeout: 3 * time.Second,
	})

	asyncCalls := 0
	asyncClient := scriptedClient(t, []State{StatePending}, &asyncCalls)
	res := <-asyncClient.WaitAsync(context.Background(), "rt_1", WaitOptions{
		PollInterval: time.Second, Timeout: 3 * time.Second,
	})

	var te1, te2 *ApprovalTimeoutError
	if !errors.As(syncErr, &te1) || !errors.As(res.Err, &te2) {
		t.Fatalf("expected timeout errors from both paths: sync=%v async=%v", syncErr, res.Err)
	}
	if syncCalls != asyncCalls {
		t.Fatalf("status call parity broken: sync=%d async=%d", syncCalls, asyncCalls)
	}
}

func TestClient_ResponseBodyTruncated(t *testing.T) {
	const limit int64 = 64
	bigBody := strings.Repeat("x", int(limit)+100)

	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, bigBody), nil
	})
	c := New("http://fake.test", "key")
	c.HTTP = &http.Client{Transport: rt}
	c.MaxResponseBytes = limit

	// The truncated body is not valid JSON; the key point is that the
	// read stopped at the limit.
	_, err := c.Status(context.Background(), "rt_1")
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError from truncated JSON, got %T: %v", err, err)
	}
}
