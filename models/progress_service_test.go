package models

import (
	"strings"
	"testing"
)

func sessionWith(step ReconciliationStep, remaining, total int) *ReconciliationSession {
	return &ReconciliationSession{
		ID:            "s-1",
		WorkspaceId:   "ws-1",
		CheckpointId:  "cp-1",
		CurrentStep:   step,
		GapsRemaining: remaining,
		Status:        SessionStatusActive,
		Metadata:      SessionMetadata{InitialGapCount: total},
	}
}

func TestProgressPercentage_Bounds(t *testing.T) {
	for _, step := range ReconciliationSteps {
		for total := 0; total <= 5; total++ {
			for remaining := 0; remaining <= total; remaining++ {
				session := sessionWith(step, remaining, total)
				pct := CalculateProgressPercentage(step, session.CompletedSteps(), remaining, total)
				if pct < 0 || pct > 100 {
					t.Fatalf("step=%s remaining=%d total=%d: percentage %f out of [0,100]", step, remaining, total, pct)
				}
			}
		}
	}
}

func TestProgressPercentage_MonotoneInResolvedGaps(t *testing.T) {
	const total = 8
	completed := []ReconciliationStep{StepBalanceEntry, StepGapReview}
	prev := -1.0
	for remaining := total; remaining >= 0; remaining-- {
		pct := CalculateProgressPercentage(StepGapResolution, completed, remaining, total)
		if pct < prev {
			t.Fatalf("percentage decreased from %f to %f at remaining=%d", prev, pct, remaining)
		}
		prev = pct
	}
}

func TestProgressPercentage_FiniteWithNoGaps(t *testing.T) {
	pct := CalculateProgressPercentage(StepGapResolution, []ReconciliationStep{StepBalanceEntry, StepGapReview}, 0, 0)
	if pct < 0 || pct > 100 {
		t.Fatalf("0/0 gaps must stay within bounds, got %f", pct)
	}
	// A checkpoint with no gaps earns the full gap-resolution weight.
	lesser := CalculateProgressPercentage(StepGapResolution, []ReconciliationStep{StepBalanceEntry, StepGapReview}, 3, 3)
	if pct <= lesser {
		t.Fatalf("no-gap session (%f) must be ahead of an unstarted resolution (%f)", pct, lesser)
	}
}

func TestEstimateCompletionTime_MonotoneAndNonNegative(t *testing.T) {
	remainingSteps := RemainingSteps(StepGapResolution)
	prev := -1
	for gaps := 0; gaps <= 20; gaps++ {
		estimate := EstimateCompletionTime(StepGapResolution, remainingSteps, gaps)
		if estimate < 0 {
			t.Fatalf("estimate must be non-negative, got %d", estimate)
		}
		if estimate < prev {
			t.Fatalf("estimate decreased from %d to %d at gaps=%d", prev, estimate, gaps)
		}
		prev = estimate
	}
	if EstimateCompletionTime(StepConfirmation, nil, -5) < 0 {
		t.Fatal("negative gap input must not produce a negative estimate")
	}
}

func TestValidateStepCompletion_GapResolution(t *testing.T) {
	session := sessionWith(StepGapResolution, 2, 3)
	check := ValidateStepCompletion(StepGapResolution, session)
	if check.IsComplete {
		t.Fatal("step must be incomplete while gaps remain")
	}
	if !strings.Contains(check.Reason, "gaps remaining") {
		t.Fatalf("reason %q must mention gaps remaining", check.Reason)
	}

	session.GapsRemaining = 0
	check = ValidateStepCompletion(StepGapResolution, session)
	if !check.IsComplete {
		t.Fatal("step must be complete with zero gaps remaining")
	}
}

func TestValidateStepCompletion_Deterministic(t *testing.T) {
	session := sessionWith(StepGapResolution, 1, 4)
	first := ValidateStepCompletion(StepGapResolution, session)
	for i := 0; i < 25; i++ {
		if got := ValidateStepCompletion(StepGapResolution, session); got != first {
			t.Fatalf("run %d: result changed from %+v to %+v", i, first, got)
		}
	}
}

func TestValidateStepCompletion_OtherSteps(t *testing.T) {
	session := sessionWith(StepBalanceEntry, 0, 0)
	if !ValidateStepCompletion(StepBalanceEntry, session).IsComplete {
		t.Fatal("balance entry with a checkpoint attached must be complete")
	}
	session.CheckpointId = ""
	if ValidateStepCompletion(StepBalanceEntry, session).IsComplete {
		t.Fatal("balance entry without a checkpoint must be incomplete")
	}

	session = sessionWith(StepConfirmation, 0, 2)
	if !ValidateStepCompletion(StepConfirmation, session).IsComplete {
		t.Fatal("confirmation with all gaps resolved must be completable")
	}
	session = sessionWith(StepConfirmation, 1, 2)
	if ValidateStepCompletion(StepConfirmation, session).IsComplete {
		t.Fatal("confirmation must be blocked while gaps remain")
	}

	if ValidateStepCompletion(ReconciliationStep("bogus"), session).IsComplete {
		t.Fatal("unknown step must be incomplete")
	}
}

func TestGenerateGapsSummary_Invariant(t *testing.T) {
	for total := 0; total <= 6; total++ {
		for remaining := 0; remaining <= total+2; remaining++ {
			summary := GenerateGapsSummary(sessionWith(StepGapResolution, remaining, total))
			if summary.TotalGaps != summary.ResolvedGaps+summary.RemainingGaps {
				t.Fatalf("total=%d remaining=%d: invariant broken %+v", total, remaining, summary)
			}
			if summary.ResolvedGaps < 0 || summary.RemainingGaps < 0 {
				t.Fatalf("negative counters: %+v", summary)
			}
		}
	}
}

func TestStepDisplayInfo_AllStepsDefined(t *testing.T) {
	for _, step := range ReconciliationSteps {
		info, ok := GetStepDisplayInfo(step)
		if !ok {
			t.Fatalf("missing display info for %s", step)
		}
		if info.Label == "" || info.Description == "" || info.ShortDescription == "" {
			t.Fatalf("display info for %s has empty fields: %+v", step, info)
		}
	}
	if _, ok := GetStepDisplayInfo(ReconciliationStep("bogus")); ok {
		t.Fatal("unknown step must not have display info")
	}
}

func TestStepSequence(t *testing.T) {
	if StepIndex(StepBalanceEntry) != 0 || StepIndex(StepConfirmation) != len(ReconciliationSteps)-1 {
		t.Fatal("step ordering changed")
	}
	if StepIndex(ReconciliationStep("bogus")) != -1 {
		t.Fatal("unknown step must have index -1")
	}
	if got := RemainingSteps(StepConfirmation); got != nil {
		t.Fatalf("terminal step must have no remaining steps, got %v", got)
	}
	if got := RemainingSteps(StepBalanceEntry); len(got) != 3 {
		t.Fatalf("remaining after first step = %v", got)
	}
}
