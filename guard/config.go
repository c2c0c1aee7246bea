// Package guard implements the two governance hooks: a post-response
// guardrail that can rewrite the conversation, and a pre-execution gate
// that can veto tool calls. Both submit work to an external review
// service and act on its verdict.
package guard

import "time"

// Mode selects what a blocking verdict does to the conversation.
type Mode string

const (
	// ModeBlocking replaces a denied response with the configured
	// substitute message.
	ModeBlocking Mode = "blocking"
	// ModeLogging leaves the response untouched and only attaches a
	// warning annotation.
	ModeLogging Mode = "logging"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeBlocking, ModeLogging:
		return true
	default:
		return false
	}
}

const (
	DefaultBlockedMessage = "This response requires review and was not approved."
	DefaultTimeoutMessage = "Response review timed out."
	DefaultErrorMessage   = "Response blocked due to review system error."

	defaultApprovalTimeout  = 30 * time.Second
	defaultGuardrailPoll    = 2 * time.Second
	defaultToolGatePoll     = 5 * time.Second
	defaultToolGateTimeout  = 10 * time.Minute
	conversationContextSize = 3
	contextEntryMaxBytes    = 2048
)

// GuardrailConfig is the immutable per-instance configuration of a
// ResponseGuardrail.
type GuardrailConfig struct {
	Mode            Mode
	ApprovalTimeout time.Duration
	PollInterval    time.Duration
	BlockedMessage  string
	TimeoutMessage  string
	// Metadata is attached to every review task this instance submits.
	Metadata map[string]any
}

func (c GuardrailConfig) withDefaults() GuardrailConfig {
	if !c.Mode.Valid() {
		c.Mode = ModeBlocking
	}
	if c.ApprovalTimeout <= 0 {
		c.ApprovalTimeout = defaultApprovalTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultGuardrailPoll
	}
	if c.BlockedMessage == "" {
		c.BlockedMessage = DefaultBlockedMessage
	}
	if c.TimeoutMessage == "" {
		c.TimeoutMessage = DefaultTimeoutMessage
	}
	return c
}

// ToolGateConfig is the immutable per-instance configuration of a
// ToolCallGate.
type ToolGateConfig struct {
	PollInterval time.Duration
	WaitTimeout  time.Duration
	// RequireApprovalFor restricts review to the listed tool names. When
	// nil, every tool call is reviewed; an empty non-nil list reviews
	// nothing.
	RequireApprovalFor []string
	Metadata           map[string]any
}

func (c ToolGateConfig) withDefaults() ToolGateConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultToolGatePoll
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = defaultToolGateTimeout
	}
	return c
}
