package review

import (
	"fmt"
	"time"
)

// ServiceError reports a transport or HTTP-level failure talking to the
// review service. This layer does not retry; the configured http.Client
// owns timeout and retry behavior.
type ServiceError struct {
	Op         string // e.g. "POST /v1/review-tasks"
	StatusCode int    // 0 when the request never produced a response
	Body       string // truncated response body, when available
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode > 0:
		return fmt.Sprintf("review service: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("review service: %s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("review service: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("review service: %s: status %d", e.Op, e.StatusCode)
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ApprovalTimeoutError is returned when polling reached its deadline
// before the task left a non-terminal state.
type ApprovalTimeoutError struct {
	ReviewTaskID string
	Operation    string // tool name or "agent_response"; empty at the client layer
	Elapsed      time.Duration
	Timeout      time.Duration
}

func (e *ApprovalTimeoutError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("approval timeout for %s after %s waiting for review task %s",
			e.Operation, e.Elapsed.Round(time.Millisecond), e.ReviewTaskID)
	}
	return fmt.Sprintf("approval timeout after %s waiting for review task %s",
		e.Elapsed.Round(time.Millisecond), e.ReviewTaskID)
}

// ApprovalDeniedError is raised when a tool call receives a blocking
// verdict; it vetoes the whole batch.
type ApprovalDeniedError struct {
	ReviewTaskID    string
	FunctionName    string
	RequestedChange string
}

func (e *ApprovalDeniedError) Error() string {
	reason := e.RequestedChange
	if reason == "" {
		reason = "no reason provided"
	}
	return fmt.Sprintf("tool execution denied for %s: %s (review task %s)",
		e.FunctionName, reason, e.ReviewTaskID)
}
