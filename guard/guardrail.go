package guard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/quailyquaily/morphgate/llm"
	"github.com/quailyquaily/morphgate/review"
)

// FunctionAgentResponse is the function_name under which agent replies
// are submitted for review.
const FunctionAgentResponse = "agent_response"

const guardrailName = "ResponseGuardrail"

// ResponseGuardrail reviews the agent's final reply after it is produced
// and, depending on the verdict and the configured mode, lets it stand,
// replaces it with a substitute message, or annotates it with a warning.
// It never re-invokes the agent and never returns an error across the
// hook boundary.
type ResponseGuardrail struct {
	client *review.Client
	cfg    GuardrailConfig
	log    *slog.Logger
	sink   AuditSink
}

type GuardrailOption func(*ResponseGuardrail)

func WithGuardrailLogger(log *slog.Logger) GuardrailOption {
	return func(g *ResponseGuardrail) { g.log = log }
}

func WithGuardrailAuditSink(sink AuditSink) GuardrailOption {
	return func(g *ResponseGuardrail) { g.sink = sink }
}

func NewResponseGuardrail(client *review.Client, cfg GuardrailConfig, opts ...GuardrailOption) *ResponseGuardrail {
	g := &ResponseGuardrail{
		client: client,
		cfg:    cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	return g
}

// Hook returns the callback slot the host framework registers as its
// post-response hook.
func (g *ResponseGuardrail) Hook() AfterResponseHook {
	return g.AfterResponse
}

// AfterResponse submits the last assistant message for review and applies
// the verdict. Non-assistant tails and empty sequences pass through
// untouched.
func (g *ResponseGuardrail) AfterResponse(ctx context.Context, messages []llm.Message) []llm.Message {
	if g == nil || g.client == nil || len(messages) == 0 {
		return messages
	}
	last := messages[len(messages)-1]
	if !last.IsAssistant() {
		return messages
	}

	task := review.Task{
		FunctionName: FunctionAgentResponse,
		Args: map[string]any{
			"response":             last.Content,
			"conversation_context": conversationContext(messages, conversationContextSize),
		},
		Doc: "Agent response requiring governance review",
		Metadata: mergedMetadata(g.cfg.Metadata, map[string]any{
			"middleware": guardrailName,
			"mode":       string(g.cfg.Mode),
		}),
	}

	verdict, err := g.client.Submit(ctx, task)
	if err != nil {
		return g.failClosed(ctx, messages, err)
	}

	switch {
	case verdict.IsApproved():
		g.audit(ctx, verdict, false, "")
		return messages
	case verdict.IsBlocking():
		return g.applyBlocking(ctx, messages, verdict)
	}

	// Pending, Processing or RequiresIntervention: wait for the decision.
	waiter := &review.Waiter{
		Client:       g.client,
		PollInterval: g.cfg.PollInterval,
		Timeout:      g.cfg.ApprovalTimeout,
	}
	final, err := waiter.Await(ctx, verdict.ReviewTaskID, FunctionAgentResponse)
	if err != nil {
		var te *review.ApprovalTimeoutError
		if errors.As(err, &te) {
			return g.applyTimeout(ctx, messages, verdict.ReviewTaskID)
		}
		return g.failClosed(ctx, messages, err)
	}

	switch {
	case final.IsApproved():
		g.audit(ctx, final, false, "")
		return messages
	case final.IsBlocking():
		return g.applyBlocking(ctx, messages, final)
	}
	return messages
}

func (g *ResponseGuardrail) applyBlocking(ctx context.Context, messages []llm.Message, v review.Verdict) []llm.Message {
	if g.cfg.Mode == ModeLogging {
		// Logging mode annotates the original message in place; it must not
		// alter conversation semantics.
		last := &messages[len(messages)-1]
		last.SetMeta(MetaWarning, map[string]any{
			MetaReviewTaskID: v.ReviewTaskID,
			MetaReason:       v.RequestedChange,
		})
		g.log.Warn("guardrail_response_flagged",
			"review_task_id", v.ReviewTaskID,
			"state", string(v.State),
			"reason", v.RequestedChange,
		)
		g.audit(ctx, v, false, v.RequestedChange)
		return messages
	}

	g.log.Warn("guardrail_response_blocked",
		"review_task_id", v.ReviewTaskID,
		"state", string(v.State),
		"reason", v.RequestedChange,
	)
	g.audit(ctx, v, true, v.RequestedChange)
	return g.substitute(messages, g.cfg.BlockedMessage, map[string]any{
		MetaBlocked:      true,
		MetaReviewTaskID: v.ReviewTaskID,
		MetaReason:       v.RequestedChange,
	})
}

func (g *ResponseGuardrail) applyTimeout(ctx context.Context, messages []llm.Message, reviewTaskID string) []llm.Message {
	g.log.Warn("guardrail_review_timeout", "review_task_id", reviewTaskID, "mode", string(g.cfg.Mode))
	g.auditEvent(ctx, AuditEvent{
		ReviewTaskID: reviewTaskID,
		Blocked:      g.cfg.Mode == ModeBlocking,
		Reason:       "timeout waiting for approval",
	})
	if g.cfg.Mode != ModeBlocking {
		return messages
	}
	return g.substitute(messages, g.cfg.TimeoutMessage, map[string]any{
		MetaBlocked:      true,
		MetaReviewTaskID: reviewTaskID,
		MetaReason:       "timeout waiting for approval",
	})
}

// failClosed handles submission or polling failures. In blocking mode the
// failure is treated exactly like a denial; in logging mode it is a
// no-op. The gate is on configured mode, not on the kind of failure.
func (g *ResponseGuardrail) failClosed(ctx context.Context, messages []llm.Message, err error) []llm.Message {
	g.log.Error("guardrail_review_error", "error", err.Error(), "mode", string(g.cfg.Mode))
	g.auditEvent(ctx, AuditEvent{
		Blocked: g.cfg.Mode == ModeBlocking,
		Error:   err.Error(),
	})
	if g.cfg.Mode != ModeBlocking {
		return messages
	}
	return g.substitute(messages, DefaultErrorMessage, map[string]any{
		MetaBlocked: true,
		MetaError:   err.Error(),
	})
}

// substitute replaces the last message with a fresh assistant turn
// carrying the given content and annotations.
func (g *ResponseGuardrail) substitute(messages []llm.Message, content string, meta map[string]any) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	out = append(out, messages[:len(messages)-1]...)
	out = append(out, llm.Message{
		Role:    llm.RoleAssistant,
		Content: content,
		Meta:    meta,
	})
	return out
}

func (g *ResponseGuardrail) audit(ctx context.Context, v review.Verdict, blocked bool, reason string) {
	g.auditEvent(ctx, AuditEvent{
		ReviewTaskID: v.ReviewTaskID,
		State:        v.State,
		Blocked:      blocked,
		Reason:       reason,
	})
}

func (g *ResponseGuardrail) auditEvent(ctx context.Context, e AuditEvent) {
	e.Hook = HookAfterResponse
	e.FunctionName = FunctionAgentResponse
	e.Mode = g.cfg.Mode
	emitAudit(ctx, g.log, g.sink, e)
}
