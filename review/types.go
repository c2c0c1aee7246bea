// Package review talks to an external review service: it submits units of
// agent work for evaluation, fetches verdicts, and polls pending tasks
// until they reach a terminal state.
package review

// State is the lifecycle state of a review task as reported by the
// service. The set is closed; predicates switch over it exhaustively so a
// new service-side state surfaces as a compile-visible gap instead of a
// silent fallthrough.
type State string

const (
	StatePending              State = "Pending"
	StateProcessing           State = "Processing"
	StateApproved             State = "Approved"
	StateRequiresIntervention State = "RequiresIntervention"
	StateRejected             State = "Rejected"
	StateChangeRequested      State = "ChangeRequested"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateProcessing, StateApproved,
		StateRequiresIntervention, StateRejected, StateChangeRequested:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further state change will occur. Unknown
// states are treated as non-terminal so polling keeps going until the
// caller's timeout fires.
func (s State) Terminal() bool {
	switch s {
	case StateApproved, StateRejected, StateChangeRequested:
		return true
	case StatePending, StateProcessing, StateRequiresIntervention:
		return false
	default:
		return false
	}
}

// Task is one unit of work submitted for evaluation: an agent response or
// a proposed tool invocation. Tasks are built at the decision point, never
// mutated, and submitted exactly once.
type Task struct {
	FunctionName       string         `json:"function_name"`
	Args               map[string]any `json:"args"`
	Doc                string         `json:"doc,omitempty"`
	LLMExplanation     string         `json:"llm_explanation,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	ParentReviewTaskID string         `json:"parent_review_task_id,omitempty"`
}

// Verdict is the service's evaluation of a task. The id is stable across
// polls; once a terminal state is observed it never changes.
type Verdict struct {
	ReviewTaskID    string `json:"review_task_id"`
	State           State  `json:"state"`
	RequestedChange string `json:"requested_change,omitempty"`
}

func (v Verdict) IsApproved() bool { return v.State == StateApproved }

func (v Verdict) IsDenied() bool { return v.State == StateRejected }

func (v Verdict) IsChangeRequested() bool { return v.State == StateChangeRequested }

func (v Verdict) IsPending() bool { return v.State == StatePending }

func (v Verdict) RequiresIntervention() bool { return v.State == StateRequiresIntervention }

// IsBlocking reports whether the verdict should halt or alter normal
// execution. Denied and change-requested are treated uniformly at every
// call site.
func (v Verdict) IsBlocking() bool {
	switch v.State {
	case StateRejected, StateChangeRequested:
		return true
	case StateApproved, StatePending, StateProcessing, StateRequiresIntervention:
		return false
	default:
		return false
	}
}

func (v Verdict) IsTerminal() bool { return v.State.Terminal() }
