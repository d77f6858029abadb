package domain

import "testing"

func TestProgressIsMonotonicAlongHappyPath(t *testing.T) {
	path := []OrderStatus{
		StatusIntake, StatusDiagnosing, StatusAwaitingApproval,
		StatusWaitingParts, StatusReparacionExterna, StatusInProgress,
		StatusReadyForPickup, StatusCompleted,
	}
	prev := -1
	for _, st := range path {
		if st.Progress() <= prev {
			t.Fatalf("progress not monotonic at %s: %d <= %d", st, st.Progress(), prev)
		}
		prev = st.Progress()
	}
	if StatusCancelled.Progress() != 0 {
		t.Fatalf("cancelled progress should be 0, got %d", StatusCancelled.Progress())
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusIntake, StatusDiagnosing) {
		t.Fatalf("intake -> diagnosing should be allowed")
	}
	if CanTransition(StatusIntake, StatusCompleted) {
		t.Fatalf("intake -> completed should not be allowed")
	}
	if !CanTransition(StatusDiagnosing, StatusDiagnosing) {
		t.Fatalf("re-entering the current status should be allowed")
	}
	if !CanTransition(StatusWaitingParts, StatusCancelled) {
		t.Fatalf("cancel from a non-terminal status should be allowed")
	}
	if CanTransition(StatusCompleted, StatusCancelled) {
		t.Fatalf("terminal states admit no transitions")
	}
	if CanTransition(StatusCancelled, StatusIntake) {
		t.Fatalf("terminal states admit no transitions")
	}
}

func TestEveryStatusHasLabelAndProgress(t *testing.T) {
	for _, st := range OrderStatuses() {
		if !st.Known() {
			t.Fatalf("status %s not known", st)
		}
		if st.Label() == "" {
			t.Fatalf("status %s has no label", st)
		}
	}
	if OrderStatus("repairing").Known() {
		t.Fatalf("unknown status should not be known")
	}
}
