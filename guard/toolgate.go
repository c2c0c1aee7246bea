package guard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quailyquaily/morphgate/llm"
	"github.com/quailyquaily/morphgate/review"
)

const toolGateName = "ToolCallGate"

// ToolCallGate reviews each tool call proposed by the latest assistant
// turn before the host framework executes it. Gating is strictly ordered
// and short-circuiting: the first denial or timeout vetoes the remaining
// calls in the batch, because later calls may be predicated on earlier
// ones never having been rejected.
type ToolCallGate struct {
	client *review.Client
	cfg    ToolGateConfig
	log    *slog.Logger
	sink   AuditSink

	// required is nil when every tool call needs review.
	required map[string]bool
}

type ToolGateOption func(*ToolCallGate)

func WithToolGateLogger(log *slog.Logger) ToolGateOption {
	return func(t *ToolCallGate) { t.log = log }
}

func WithToolGateAuditSink(sink AuditSink) ToolGateOption {
	return func(t *ToolCallGate) { t.sink = sink }
}

func NewToolCallGate(client *review.Client, cfg ToolGateConfig, opts ...ToolGateOption) *ToolCallGate {
	t := &ToolCallGate{
		client: client,
		cfg:    cfg.withDefaults(),
	}
	if cfg.RequireApprovalFor != nil {
		t.required = make(map[string]bool, len(cfg.RequireApprovalFor))
		for _, name := range cfg.RequireApprovalFor {
			t.required[name] = true
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	return t
}

// Hook returns the callback slot the host framework registers to run
// before tool execution.
func (t *ToolCallGate) Hook() BeforeToolExecutionHook {
	return t.BeforeToolExecution
}

// BeforeToolExecution gates the tool calls attached to the last message.
// It returns nil when every call clears review (the host then executes
// them itself), *review.ApprovalDeniedError on a blocking verdict,
// *review.ApprovalTimeoutError when a wait deadline fires, and propagates
// service errors unmodified.
func (t *ToolCallGate) BeforeToolExecution(ctx context.Context, messages []llm.Message) error {
	if t == nil || t.client == nil || len(messages) == 0 {
		return nil
	}
	last := messages[len(messages)-1]
	if len(last.ToolCalls) == 0 {
		return nil
	}

	calls := t.filter(last.ToolCalls)
	if len(calls) == 0 {
		return nil
	}

	convCtx := conversationContext(messages, conversationContextSize)
	for _, call := range calls {
		if err := t.reviewCall(ctx, call, convCtx); err != nil {
			return err
		}
	}
	return nil
}

func (t *ToolCallGate) filter(calls []llm.ToolCall) []llm.ToolCall {
	if t.required == nil {
		return calls
	}
	out := make([]llm.ToolCall, 0, len(calls))
	for _, c := range calls {
		if t.required[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

func (t *ToolCallGate) reviewCall(ctx context.Context, call llm.ToolCall, convCtx []string) error {
	task := review.Task{
		FunctionName:   call.Name,
		Args:           call.Arguments,
		Doc:            fmt.Sprintf("Agent requesting to execute: %s", call.Name),
		LLMExplanation: "Tool call proposed during an agent run",
		Metadata: mergedMetadata(t.cfg.Metadata, map[string]any{
			"tool_call_id":         call.ID,
			"middleware":           toolGateName,
			"conversation_context": convCtx,
		}),
	}

	verdict, err := t.client.Submit(ctx, task)
	if err != nil {
		// Transport failures are not swallowed: the host must stop rather
		// than execute an unreviewed call.
		return err
	}

	if !verdict.IsTerminal() {
		waiter := &review.Waiter{
			Client:       t.client,
			PollInterval: t.cfg.PollInterval,
			Timeout:      t.cfg.WaitTimeout,
		}
		final, err := waiter.Await(ctx, verdict.ReviewTaskID, call.Name)
		if err != nil {
			t.log.Warn("toolgate_wait_failed", "tool", call.Name, "error", err.Error())
			t.audit(ctx, call, review.Verdict{ReviewTaskID: verdict.ReviewTaskID}, true, err.Error())
			return err
		}
		verdict = final
	}

	switch {
	case verdict.IsApproved():
		t.log.Info("toolgate_approved", "tool", call.Name, "review_task_id", verdict.ReviewTaskID)
		t.audit(ctx, call, verdict, false, "")
		return nil
	case verdict.IsBlocking():
		t.log.Warn("toolgate_denied",
			"tool", call.Name,
			"review_task_id", verdict.ReviewTaskID,
			"reason", verdict.RequestedChange,
		)
		t.audit(ctx, call, verdict, true, verdict.RequestedChange)
		return &review.ApprovalDeniedError{
			ReviewTaskID:    verdict.ReviewTaskID,
			FunctionName:    call.Name,
			RequestedChange: verdict.RequestedChange,
		}
	}
	return nil
}

func (t *ToolCallGate) audit(ctx context.Context, call llm.ToolCall, v review.Verdict, blocked bool, reason string) {
	emitAudit(ctx, t.log, t.sink, AuditEvent{
		Hook:         HookBeforeToolExecution,
		FunctionName: call.Name,
		ToolCallID:   call.ID,
		ReviewTaskID: v.ReviewTaskID,
		State:        v.State,
		Blocked:      blocked,
		Reason:       reason,
	})
}
