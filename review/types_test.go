package review

import "testing"

func TestVerdictPredicates(t *testing.T) {
	cases := []struct {
		state      State
		approved   bool
		blocking   bool
		terminal   bool
		pending    bool
		intervene  bool
		denied     bool
		changeReq  bool
	}{
		{StateApproved, true, false, true, false, false, false, false},
		{StateRejected, false, true, true, false, false, true, false},
		{StateChangeRequested, false, true, true, false, false, false, true},
		{StatePending, false, false, false, true, false, false, false},
		{StateProcessing, false, false, false, false, false, false, false},
		{StateRequiresIntervention, false, false, false, false, true, false, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.state), func(t *testing.T) {
			v := Verdict{ReviewTaskID: "rt_1", State: tc.state}
			if got := v.IsApproved(); got != tc.approved {
				t.Errorf("IsApproved = %v, want %v", got, tc.approved)
			}
			if got := v.IsBlocking(); got != tc.blocking {
				t.Errorf("IsBlocking = %v, want %v", got, tc.blocking)
			}
			if got := v.IsTerminal(); got != tc.terminal {
				t.Errorf("IsTerminal = %v, want %v", got, tc.terminal)
			}
			if got := v.IsPending(); got != tc.pending {
				t.Errorf("IsPending = %v, want %v", got, tc.pending)
			}
			if got := v.RequiresIntervention(); got != tc.intervene {
				t.Errorf("RequiresIntervention = %v, want %v", got, tc.intervene)
			}
			if got := v.IsDenied(); got != tc.denied {
				t.Errorf("IsDenied = %v, want %v", got, tc.denied)
			}
			if got := v.IsChangeRequested(); got != tc.changeReq {
				t.Errorf("IsChangeRequested = %v, want %v", got, tc.changeReq)
			}
		})
	}
}

func TestUnknownStateIsNeitherBlockingNorTerminal(t *testing.T) {
	v := Verdict{ReviewTaskID: "rt_1", State: State("SomethingNew")}
	if v.State.Valid() {
		t.Fatal("unknown state should not be valid")
	}
	if v.IsBlocking() {
		t.Fatal("unknown state must not block")
	}
	if v.IsTerminal() {
		t.Fatal("unknown state must not be terminal")
	}
	if v.IsApproved() {
		t.Fatal("unknown state must not approve")
	}
}

func TestStateValid(t *testing.T) {
	for _, s := range []State{
		StatePending, StateProcessing, StateApproved,
		StateRequiresIntervention, StateRejected, StateChangeRequested,
	} {
		if !s.Valid() {
			t.Errorf("state %q should be valid", s)
		}
	}
	if State("Denied").Valid() {
		t.Error("unlisted state should not be valid")
	}
}
