package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAnalyzeGapSeverity_Thresholds(t *testing.T) {
	total := dec("10000")

	cases := []struct {
		name string
		gap  decimal.Decimal
		want GapSeverity
	}{
		{"just below 2 percent is low", dec("199"), GapSeverityLow},
		{"exactly 2 percent is medium", dec("200"), GapSeverityMedium},
		{"exactly 5 percent is medium", dec("500"), GapSeverityMedium},
		{"just above 5 percent is high", dec("501"), GapSeverityHigh},
		{"negative gap uses absolute value", dec("-501"), GapSeverityHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AnalyzeGapSeverity(tc.gap, total); got != tc.want {
				t.Fatalf("AnalyzeGapSeverity(%s, %s) = %s, want %s", tc.gap, total, got, tc.want)
			}
		})
	}
}

func TestAnalyzeGapSeverity_ZeroVolumeIsAlwaysLow(t *testing.T) {
	for _, gap := range []decimal.Decimal{dec("0"), dec("0.005"), dec("1000000"), dec("-1000000")} {
		if got := AnalyzeGapSeverity(gap, decimal.Zero); got != GapSeverityLow {
			t.Fatalf("AnalyzeGapSeverity(%s, 0) = %s, want low", gap, got)
		}
	}
}

func TestGapPercentage(t *testing.T) {
	got := GapPercentage(dec("-50"), dec("1000"))
	if !got.Equal(dec("5")) {
		t.Fatalf("GapPercentage(-50, 1000) = %s, want 5", got)
	}
	if !GapPercentage(dec("123"), decimal.Zero).IsZero() {
		t.Fatal("GapPercentage with zero volume must be zero")
	}
}

func TestNewReconciliationGap_CopiesFiguresAndAttachesSeverity(t *testing.T) {
	balance := AccountBalance{
		AccountId:       7,
		ActualBalance:   dec("1030"),
		ExpectedBalance: dec("1000"),
		GapAmount:       dec("30"),
		GapPercentage:   dec("3"),
	}
	gap := NewReconciliationGap(balance, dec("1000"))
	if gap.AccountId != 7 {
		t.Fatalf("account id = %d", gap.AccountId)
	}
	if !gap.GapAmount.Equal(balance.GapAmount) || !gap.GapPercentage.Equal(balance.GapPercentage) {
		t.Fatal("gap figures must be copied from the account balance")
	}
	if gap.Severity != GapSeverityMedium {
		t.Fatalf("severity = %s, want medium", gap.Severity)
	}
}

func TestGapIdentity(t *testing.T) {
	// gap_amount == actual - expected, within epsilon.
	balance := AccountBalance{
		ActualBalance:   dec("1250.00"),
		ExpectedBalance: dec("1219.95"),
		GapAmount:       dec("1250.00").Sub(dec("1219.95")),
	}
	diff := balance.GapAmount.Sub(balance.ActualBalance.Sub(balance.ExpectedBalance))
	if !diff.Abs().LessThan(GapEpsilon) {
		t.Fatalf("gap identity violated: diff=%s", diff)
	}
}

func TestAggregateMultiAccountGaps(t *testing.T) {
	total := dec("1000")
	balances := []AccountBalance{
		{AccountId: 1, GapAmount: dec("30")},
		{AccountId: 2, GapAmount: dec("-10")},
		{AccountId: 3, GapAmount: dec("0")},
	}

	agg := AggregateMultiAccountGaps(balances, total)

	if !agg.TotalGapAmount.Equal(dec("20")) {
		t.Fatalf("TotalGapAmount = %s, want 20", agg.TotalGapAmount)
	}
	if !agg.TotalAbsoluteGap.Equal(dec("40")) {
		t.Fatalf("TotalAbsoluteGap = %s, want 40", agg.TotalAbsoluteGap)
	}
	if len(agg.AccountsWithGaps) != 2 || agg.AccountsWithGaps[0] != 1 || agg.AccountsWithGaps[1] != 2 {
		t.Fatalf("AccountsWithGaps = %v, want [1 2]", agg.AccountsWithGaps)
	}
	if len(agg.GapsByAccount) != 2 {
		t.Fatalf("GapsByAccount has %d entries, want 2", len(agg.GapsByAccount))
	}
	if _, ok := agg.GapsByAccount[3]; ok {
		t.Fatal("resolved account must not appear in GapsByAccount")
	}
	// Aggregate severity follows the same thresholds: 20/1000 = 2% -> medium.
	if agg.OverallSeverity != GapSeverityMedium {
		t.Fatalf("OverallSeverity = %s, want medium", agg.OverallSeverity)
	}
}

func TestAggregateMultiAccountGaps_SubEpsilonIsResolved(t *testing.T) {
	agg := AggregateMultiAccountGaps([]AccountBalance{
		{AccountId: 1, GapAmount: dec("0.009")},
		{AccountId: 2, GapAmount: dec("-0.0099")},
	}, dec("100"))
	if len(agg.AccountsWithGaps) != 0 {
		t.Fatalf("sub-epsilon gaps must be excluded, got %v", agg.AccountsWithGaps)
	}
}

func TestSeverityDisplayMapping(t *testing.T) {
	labels := map[GapSeverity]string{
		GapSeverityLow:    "Good",
		GapSeverityMedium: "Review",
		GapSeverityHigh:   "Action Required",
	}
	for severity, want := range labels {
		if got := SeverityLabel(severity); got != want {
			t.Fatalf("SeverityLabel(%s) = %q, want %q", severity, got, want)
		}
		if SeverityColor(severity) == "" {
			t.Fatalf("SeverityColor(%s) must be non-empty", severity)
		}
	}
}
