package models

import (
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/reconcile_backend/utils"
	"github.com/shopspring/decimal"
)

func TestDetermineAdjustmentType_FoundMoney(t *testing.T) {
	spec, err := DetermineAdjustmentType(dec("150"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Type != TransactionTypeIncome {
		t.Fatalf("type = %s, want income", spec.Type)
	}
	if spec.CategoryType != spec.Type {
		t.Fatal("category type must equal type")
	}
	if !strings.Contains(spec.Description, "Other Income") {
		t.Fatalf("description %q must mention Other Income", spec.Description)
	}
}

func TestDetermineAdjustmentType_MissingMoney(t *testing.T) {
	spec, err := DetermineAdjustmentType(dec("-75.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Type != TransactionTypeExpense {
		t.Fatalf("type = %s, want expense", spec.Type)
	}
	if spec.CategoryType != spec.Type {
		t.Fatal("category type must equal type")
	}
	if !strings.Contains(spec.Description, "Other Expense") {
		t.Fatalf("description %q must mention Other Expense", spec.Description)
	}
	if spec.Description == "" {
		t.Fatal("description must be non-empty")
	}
}

func TestDetermineAdjustmentType_RejectsResolvedGap(t *testing.T) {
	for _, gap := range []decimal.Decimal{dec("0"), dec("0.005"), dec("-0.0099")} {
		_, err := DetermineAdjustmentType(gap)
		if err == nil {
			t.Fatalf("gap %s below epsilon must be rejected", gap)
		}
		if !utils.IsValidationError(err) {
			t.Fatalf("gap %s: want ValidationError, got %T", gap, err)
		}
	}
}

func TestValidateGapResolution(t *testing.T) {
	gaps := []ReconciliationGap{
		{AccountId: 1, GapAmount: dec("30")},
		{AccountId: 2, GapAmount: dec("-10")},
		{AccountId: 3, GapAmount: dec("0.001")},
	}
	validation := ValidateGapResolution(gaps)
	if validation.IsResolved {
		t.Fatal("unresolved gaps present, IsResolved must be false")
	}
	if len(validation.RemainingGaps) != 2 {
		t.Fatalf("remaining = %d, want 2", len(validation.RemainingGaps))
	}
	if !validation.TotalRemainingAmount.Equal(dec("40")) {
		t.Fatalf("total remaining = %s, want 40", validation.TotalRemainingAmount)
	}

	validation = ValidateGapResolution(nil)
	if !validation.IsResolved || len(validation.RemainingGaps) != 0 {
		t.Fatal("empty gap list must be resolved")
	}
}

func methodPtr(m ResolutionMethod) *ResolutionMethod { return &m }

func TestGapResolutionSummary_CountersAreAdditive(t *testing.T) {
	adjId := 42
	original := []ReconciliationGap{
		{AccountId: 1, GapAmount: dec("30")},
		{AccountId: 2, GapAmount: dec("-10")},
		{AccountId: 3, GapAmount: dec("5")},
	}
	resolved := []ReconciliationGap{
		{AccountId: 1, GapAmount: dec("0"), ResolutionMethod: methodPtr(ResolutionMethodManualTransaction), AdjustmentTransactionId: &adjId},
		{AccountId: 2, GapAmount: dec("0"), ResolutionMethod: methodPtr(ResolutionMethodQuickClose)},
		{AccountId: 3, GapAmount: dec("5")},
	}

	summary := GetGapResolutionSummary(original, resolved)

	if !summary.TotalOriginalGap.Equal(dec("45")) {
		t.Fatalf("TotalOriginalGap = %s, want 45", summary.TotalOriginalGap)
	}
	if !summary.TotalResolvedGap.Equal(dec("5")) {
		t.Fatalf("TotalResolvedGap = %s, want 5", summary.TotalResolvedGap)
	}
	counts := summary.ResolutionMethods
	if counts.QuickClose != 1 || counts.ManualTransaction != 1 || counts.Unresolved != 1 {
		t.Fatalf("counts = %+v", counts)
	}
	if counts.QuickClose+counts.ManualTransaction+counts.Unresolved != len(resolved) {
		t.Fatal("resolution method counters must sum to the resolved gap count")
	}
	if len(summary.AdjustmentTransactions) != 1 || summary.AdjustmentTransactions[0] != adjId {
		t.Fatalf("adjustment transactions = %v, want [42]", summary.AdjustmentTransactions)
	}
}

func TestGapResolutionSummary_AdditivityHoldsForGeneratedLists(t *testing.T) {
	methods := []*ResolutionMethod{
		nil,
		methodPtr(ResolutionMethodQuickClose),
		methodPtr(ResolutionMethodManualTransaction),
	}
	for size := 0; size <= 6; size++ {
		resolved := make([]ReconciliationGap, 0, size)
		for i := 0; i < size; i++ {
			resolved = append(resolved, ReconciliationGap{
				AccountId:        i + 1,
				GapAmount:        decimal.NewFromInt(int64(i)),
				ResolutionMethod: methods[i%len(methods)],
			})
		}
		summary := GetGapResolutionSummary(nil, resolved)
		counts := summary.ResolutionMethods
		if counts.QuickClose+counts.ManualTransaction+counts.Unresolved != len(resolved) {
			t.Fatalf("size %d: counters %+v do not sum to %d", size, counts, len(resolved))
		}
	}
}
