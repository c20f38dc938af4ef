package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/reconcile_backend/config"
	"bitbucket.org/mmdatafocus/reconcile_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Transaction is a ledger entry. The ledger itself is owned by an external
// system; this subsystem only reads it for balance math and appends synthetic
// adjustment entries. Amount is always a positive magnitude, the sign is
// implied by Type.
type Transaction struct {
	ID              int             `gorm:"primary_key" json:"id"`
	WorkspaceId     string          `gorm:"size:64;index;not null;index:idx_txn_ws_acc_date,priority:1" json:"workspace_id"`
	AccountId       int             `gorm:"index;not null;index:idx_txn_ws_acc_date,priority:2" json:"account_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Type            TransactionType `gorm:"type:enum('income','expense');not null" json:"type"`
	CategoryType    TransactionType `gorm:"type:enum('income','expense');not null" json:"category_type"`
	Description     string          `gorm:"size:255" json:"description"`
	TransactionDate time.Time       `gorm:"index;not null;index:idx_txn_ws_acc_date,priority:3" json:"transaction_date"`
	IsAdjustment    bool            `gorm:"not null;default:false" json:"is_adjustment"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

// SignedAmount maps the stored magnitude onto the ledger sign convention:
// +amount for income, -amount for expense.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ListTransactions returns the account's ledger entries with
// transaction_date in (from, to], ordered by date. Soft-deleted rows are
// excluded unless includeDeleted is set. A zero `from` means no lower bound.
func ListTransactions(ctx context.Context, accountId int, from, to time.Time, includeDeleted bool) ([]Transaction, error) {

	workspaceId, ok := utils.GetWorkspaceIdFromContext(ctx)
	if !ok || workspaceId == "" {
		return nil, errors.New("workspace id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if includeDeleted {
		dbCtx = dbCtx.Unscoped()
	}
	dbCtx = dbCtx.
		Where("workspace_id = ?", workspaceId).
		Where("account_id = ?", accountId).
		Where("transaction_date <= ?", to)
	if !from.IsZero() {
		dbCtx = dbCtx.Where("transaction_date > ?", from)
	}

	var results []Transaction
	err := dbCtx.Order("transaction_date, id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ListTransactionsFrom is the inclusive-lower-bound variant: entries with
// transaction_date in [from, to]. Used for the never-reconciled baseline,
// which starts at the first instant of the accounting month.
func ListTransactionsFrom(ctx context.Context, accountId int, from, to time.Time, includeDeleted bool) ([]Transaction, error) {

	workspaceId, ok := utils.GetWorkspaceIdFromContext(ctx)
	if !ok || workspaceId == "" {
		return nil, errors.New("workspace id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if includeDeleted {
		dbCtx = dbCtx.Unscoped()
	}

	var results []Transaction
	err := dbCtx.
		Where("workspace_id = ?", workspaceId).
		Where("account_id = ?", accountId).
		Where("transaction_date >= ?", from).
		Where("transaction_date <= ?", to).
		Order("transaction_date, id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FetchTransactionsByIds re-reads specific ledger rows including soft-deleted
// ones, holding row locks until the surrounding transaction commits. Used by
// the locked-transaction check, which must see deletions and must not let a
// ledger edit slip in between the check and the commit.
func FetchTransactionsByIds(tx *gorm.DB, workspaceId string, ids []int) ([]Transaction, error) {

	if len(ids) == 0 {
		return nil, nil
	}

	var results []Transaction
	err := tx.Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("workspace_id = ?", workspaceId).
		Where("id IN ?", utils.UniqueSlice(ids)).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CreateAdjustmentTransaction appends a synthetic ledger entry produced by
// gap resolution. Magnitude must be positive; the direction comes from spec.Type.
func CreateAdjustmentTransaction(tx *gorm.DB, workspaceId string, accountId int, magnitude decimal.Decimal, spec AdjustmentSpec, date time.Time) (*Transaction, error) {

	if magnitude.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewValidationError("amount", "adjustment magnitude must be positive")
	}

	txn := Transaction{
		WorkspaceId:     workspaceId,
		AccountId:       accountId,
		Amount:          magnitude,
		Type:            spec.Type,
		CategoryType:    spec.CategoryType,
		Description:     spec.Description,
		TransactionDate: date,
		IsAdjustment:    true,
	}
	if err := tx.Create(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}
