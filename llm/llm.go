// Package llm holds the conversation value types the governance hooks
// operate on. Host frameworks convert their own message representation
// into these before invoking a hook.
package llm

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`

	// Meta carries out-of-band annotations attached by middleware, such as
	// review audit fields. It is never sent to the model.
	Meta map[string]any `json:"meta,omitempty"`
}

type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// IsAssistant reports whether the message was authored by the agent.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// SetMeta attaches an annotation, allocating the map on first use.
func (m *Message) SetMeta(key string, value any) {
	if m == nil {
		return
	}
	if m.Meta == nil {
		m.Meta = make(map[string]any)
	}
	m.Meta[key] = value
}
