package guard

import (
	"context"
	"fmt"

	"github.com/quailyquaily/morphgate/internal/strutil"
	"github.com/quailyquaily/morphgate/llm"
)

// Hook slots a host agent framework wires into its execution lifecycle.
// They are plain function values so embedding does not require
// inheriting from any framework base type.
type (
	// AfterResponseHook runs after the agent produced its final reply. It
	// returns the (possibly rewritten) message sequence and never fails:
	// every failure mode resolves to a state value so the conversation can
	// continue with a normal turn.
	AfterResponseHook func(ctx context.Context, messages []llm.Message) []llm.Message

	// BeforeToolExecutionHook runs before any of the latest turn's tool
	// calls execute. A non-nil error vetoes the whole batch and the host
	// must not run the tools.
	BeforeToolExecutionHook func(ctx context.Context, messages []llm.Message) error
)

// Annotation keys written into llm.Message.Meta.
const (
	MetaBlocked      = "review_blocked"
	MetaReviewTaskID = "review_task_id"
	MetaReason       = "reason"
	MetaWarning      = "review_warning"
	MetaError        = "review_error"
)

// conversationContext stringifies the trailing n messages for inclusion
// in a review task. Entries are truncated so oversized turns do not bloat
// the submission.
func conversationContext(messages []llm.Message, n int) []string {
	if n > 0 && len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		s := m.Role + ": " + m.Content
		for _, tc := range m.ToolCalls {
			s += fmt.Sprintf(" [tool_call:%s]", tc.Name)
		}
		out = append(out, strutil.TruncateUTF8(s, contextEntryMaxBytes))
	}
	return out
}

// mergedMetadata copies the static metadata and layers the per-task
// fields on top.
func mergedMetadata(static map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(static)+len(extra))
	for k, v := range static {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
