package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SumSignedTransactions folds ledger entries into a signed delta:
// +amount for income, -amount for expense.
func SumSignedTransactions(txns []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, txn := range txns {
		sum = sum.Add(txn.SignedAmount())
	}
	return sum
}

// TransactionVolume is the unsigned activity total, the denominator for gap
// severity.
func TransactionVolume(txns []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, txn := range txns {
		total = total.Add(txn.Amount.Abs())
	}
	return total
}

// ExpectedBalanceFrom is the pure core of the calculator: baseline plus
// signed deltas. Deterministic and side-effect-free.
func ExpectedBalanceFrom(baseline decimal.Decimal, txns []Transaction) decimal.Decimal {
	return baseline.Add(SumSignedTransactions(txns))
}

// ExpectedBalanceResult carries the computed balance together with the ledger
// rows that produced it, so callers can derive period volume and lock the
// contributing transaction ids.
type ExpectedBalanceResult struct {
	AccountId          int
	ExpectedBalance    decimal.Decimal
	Baseline           decimal.Decimal
	BaselineCheckpoint *Checkpoint
	Transactions       []Transaction
}

func (r ExpectedBalanceResult) TransactionIds() []int {
	ids := make([]int, 0, len(r.Transactions))
	for _, txn := range r.Transactions {
		ids = append(ids, txn.ID)
	}
	return ids
}

// CalculateExpectedBalance derives an account's expected balance at asOf.
//
// With a prior CLOSED checkpoint at or before asOf that covers the account,
// the baseline is that checkpoint's actual balance for the account plus the
// signed sum of non-deleted transactions dated strictly after the checkpoint
// through asOf inclusive. The lookup is per account: an account missing from
// the newest closed checkpoint still anchors on the older closed checkpoint
// that last covered it. Only an account in no closed checkpoint at all gets
// the zero baseline, with transactions counted from the first instant of
// asOf's month (the documented bootstrap, not a silent default).
func CalculateExpectedBalance(ctx context.Context, accountId int, workspaceId string, asOf time.Time) (*ExpectedBalanceResult, error) {

	prior, priorBalance, err := PreviousClosedCheckpointForAccount(ctx, workspaceId, accountId, asOf.Add(time.Millisecond))
	if err != nil {
		return nil, err
	}

	result := ExpectedBalanceResult{
		AccountId: accountId,
		Baseline:  decimal.Zero,
	}

	// Never reconciled: zero baseline from the start of the month.
	if priorBalance == nil {
		monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
		txns, err := ListTransactionsFrom(ctx, accountId, monthStart, asOf, false)
		if err != nil {
			return nil, err
		}
		result.Transactions = txns
		result.ExpectedBalance = ExpectedBalanceFrom(result.Baseline, txns)
		return &result, nil
	}

	result.Baseline = priorBalance.ActualBalance
	result.BaselineCheckpoint = prior

	txns, err := ListTransactions(ctx, accountId, prior.CreatedAt.Time, asOf, false)
	if err != nil {
		return nil, err
	}
	result.Transactions = txns
	result.ExpectedBalance = ExpectedBalanceFrom(result.Baseline, txns)
	return &result, nil
}
