package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/quailyquaily/morphgate/review"
)

// Hook identifiers recorded on audit events.
const (
	HookAfterResponse       = "after_response"
	HookBeforeToolExecution = "before_tool_execution"
)

// AuditEvent records one review decision point. Reasons and errors are
// redacted before they are persisted.
type AuditEvent struct {
	EventID      string       `json:"event_id"`
	Timestamp    time.Time    `json:"ts"`
	Hook         string       `json:"hook"`
	FunctionName string       `json:"function_name"`
	ToolCallID   string       `json:"tool_call_id,omitempty"`
	ReviewTaskID string       `json:"review_task_id,omitempty"`
	State        review.State `json:"state,omitempty"`
	Mode         Mode         `json:"mode,omitempty"`
	Blocked      bool         `json:"blocked"`
	Reason       string       `json:"reason,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// AuditSink persists audit events. Sinks must tolerate concurrent Emit
// calls.
type AuditSink interface {
	Emit(ctx context.Context, e AuditEvent) error
	Close() error
}

var auditRedactor = NewRedactor()

// emitAudit fills in derived fields and writes the event. Audit failures
// are logged and never block the hook.
func emitAudit(ctx context.Context, log *slog.Logger, sink AuditSink, e AuditEvent) {
	if sink == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.EventID == "" {
		e.EventID = newEventID(e)
	}
	e.Reason, _ = auditRedactor.RedactString(e.Reason)
	e.Error, _ = auditRedactor.RedactString(e.Error)
	if err := sink.Emit(ctx, e); err != nil && log != nil {
		log.Warn("guard_audit_error", "error", err.Error(), "event_id", e.EventID)
	}
}

func newEventID(e AuditEvent) string {
	seed := fmt.Sprintf("%s|%s|%s|%s",
		e.Hook, e.FunctionName, e.ReviewTaskID, e.Timestamp.UTC().Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(seed))
	return "evt_" + hex.EncodeToString(sum[:8])
}
