package models

import (
	"github.com/shopspring/decimal"
)

var (
	severityMediumThreshold = decimal.NewFromInt(2)
	severityHighThreshold   = decimal.NewFromInt(5)
	hundred                 = decimal.NewFromInt(100)
)

// GapPercentage relates a gap to the transaction volume observed during the
// reconciliation period, NOT to the account balance. A large gap against
// light activity reads as more severe than the same gap against heavy
// activity. Zero volume yields zero.
func GapPercentage(gapAmount, periodTransactionTotal decimal.Decimal) decimal.Decimal {
	if periodTransactionTotal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return gapAmount.Abs().Div(periodTransactionTotal).Mul(hundred)
}

// AnalyzeGapSeverity classifies a gap against period activity.
// Boundaries are closed on the medium side: exactly 2% and exactly 5% are
// medium. No activity to judge against means low regardless of the gap.
func AnalyzeGapSeverity(gapAmount, periodTransactionTotal decimal.Decimal) GapSeverity {
	if periodTransactionTotal.LessThanOrEqual(decimal.Zero) {
		return GapSeverityLow
	}
	percentage := GapPercentage(gapAmount, periodTransactionTotal)
	switch {
	case percentage.LessThan(severityMediumThreshold):
		return GapSeverityLow
	case percentage.LessThanOrEqual(severityHighThreshold):
		return GapSeverityMedium
	default:
		return GapSeverityHigh
	}
}

// NewReconciliationGap copies the gap figures off an account balance and
// attaches severity.
func NewReconciliationGap(balance AccountBalance, periodTransactionTotal decimal.Decimal) ReconciliationGap {
	return ReconciliationGap{
		AccountId:     balance.AccountId,
		GapAmount:     balance.GapAmount,
		GapPercentage: balance.GapPercentage,
		Severity:      AnalyzeGapSeverity(balance.GapAmount, periodTransactionTotal),
	}
}

// GapAggregate is the cross-account roll-up of one checkpoint's gaps.
type GapAggregate struct {
	TotalGapAmount   decimal.Decimal           `json:"total_gap_amount"`
	TotalAbsoluteGap decimal.Decimal           `json:"total_absolute_gap"`
	OverallSeverity  GapSeverity               `json:"overall_severity"`
	AccountsWithGaps []int                     `json:"accounts_with_gaps"`
	GapsByAccount    map[int]ReconciliationGap `json:"gaps_by_account"`
}

// AggregateMultiAccountGaps rolls up per-account gaps. Accounts whose gap is
// within GapEpsilon of zero are excluded from AccountsWithGaps and from the
// per-account map. OverallSeverity applies the same thresholds to the
// aggregate, judged against the combined period volume.
func AggregateMultiAccountGaps(balances []AccountBalance, periodTransactionTotal decimal.Decimal) GapAggregate {
	agg := GapAggregate{
		TotalGapAmount:   decimal.Zero,
		TotalAbsoluteGap: decimal.Zero,
		AccountsWithGaps: []int{},
		GapsByAccount:    map[int]ReconciliationGap{},
	}
	for _, balance := range balances {
		agg.TotalGapAmount = agg.TotalGapAmount.Add(balance.GapAmount)
		agg.TotalAbsoluteGap = agg.TotalAbsoluteGap.Add(balance.GapAmount.Abs())
		if IsGapResolved(balance.GapAmount) {
			continue
		}
		agg.AccountsWithGaps = append(agg.AccountsWithGaps, balance.AccountId)
		agg.GapsByAccount[balance.AccountId] = NewReconciliationGap(balance, periodTransactionTotal)
	}
	agg.OverallSeverity = AnalyzeGapSeverity(agg.TotalGapAmount, periodTransactionTotal)
	return agg
}

// Display mapping is fixed, not configuration.
var severityLabels = map[GapSeverity]string{
	GapSeverityLow:    "Good",
	GapSeverityMedium: "Review",
	GapSeverityHigh:   "Action Required",
}

var severityColors = map[GapSeverity]string{
	GapSeverityLow:    "green",
	GapSeverityMedium: "orange",
	GapSeverityHigh:   "red",
}

func SeverityLabel(s GapSeverity) string {
	return severityLabels[s]
}

func SeverityColor(s GapSeverity) string {
	return severityColors[s]
}
