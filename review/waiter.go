package review

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Waiter resolves pending verdicts on behalf of a gate component. It
// annotates timeout failures with the name of the operation being
// approved, distinguishing an approval deadline from a raw transport
// timeout.
type Waiter struct {
	Client       *Client
	PollInterval time.Duration
	Timeout      time.Duration
}

// Await polls until the task is terminal. operation is the tool name, or
// "agent_response" for the response guardrail.
func (w *Waiter) Await(ctx context.Context, reviewTaskID, operation string) (Verdict, error) {
	if w == nil || w.Client == nil {
		return Verdict{}, fmt.Errorf("nil waiter client")
	}
	v, err := w.Client.Wait(ctx, reviewTaskID, WaitOptions{
		PollInterval: w.PollInterval,
		Timeout:      w.Timeout,
	})
	if err != nil {
		var te *ApprovalTimeoutError
		if errors.As(err, &te) {
			te.Operation = operation
			return Verdict{}, te
		}
		return Verdict{}, err
	}
	return v, nil
}

// AwaitAsync is the suspend-and-resume form of Await with identical
// semantics.
func (w *Waiter) AwaitAsync(ctx context.Context, reviewTaskID, operation string) <-chan WaitResult {
	out := make(chan WaitResult, 1)
	go func() {
		defer close(out)
		v, err := w.Await(ctx, reviewTaskID, operation)
		out <- WaitResult{Verdict: v, Err: err}
	}()
	return out
}
