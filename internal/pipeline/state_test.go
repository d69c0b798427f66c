package pipeline

import "testing"

func TestStateAdvancesInOrder(t *testing.T) {
	state := received()
	for _, next := range []Phase{PhasePrompted, PhaseGenerated, PhaseValidated, PhaseExecuted, PhaseSummarized, PhaseDone} {
		var err error
		state, err = state.advance(next)
		if err != nil {
			t.Fatalf("advance(%s) error = %v", next, err)
		}
	}
	if !state.Terminal() || len(state.Trace) != 7 {
		t.Fatalf("state = %#v", state)
	}
}

func TestStateRejectsSkipsAndBacktracking(t *testing.T) {
	state := received()
	if _, err := state.advance(PhaseValidated); err == nil {
		t.Fatal("expected error when skipping stages")
	}
	state, err := state.advance(PhasePrompted)
	if err != nil {
		t.Fatalf("advance() error = %v", err)
	}
	if _, err := state.advance(PhaseReceived); err == nil {
		t.Fatal("expected error when moving backwards")
	}
	failed := state.fail()
	if _, err := failed.advance(PhaseGenerated); err == nil {
		t.Fatal("failed is terminal")
	}
}

func TestStateTraceIsNotShared(t *testing.T) {
	base, _ := received().advance(PhasePrompted)
	a, _ := base.advance(PhaseGenerated)
	b := base.fail()
	if a.Trace[2] != PhaseGenerated || b.Trace[2] != PhaseFailed {
		t.Fatalf("a = %v b = %v", a.Trace, b.Trace)
	}
	if len(base.Trace) != 2 {
		t.Fatalf("base trace mutated: %v", base.Trace)
	}
}
