package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/reconcile_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReconciliationPeriod is the open interval between two checkpoints.
// Lifecycle: active from the moment a checkpoint opens it, closed exactly
// once when every gap of the end checkpoint is extinguished. Closed is
// terminal.
type ReconciliationPeriod struct {
	ID                       string          `gorm:"primary_key;size:36" json:"id"`
	WorkspaceId              string          `gorm:"size:64;index;not null;index:idx_rp_ws_status,priority:1" json:"workspace_id"`
	StartCheckpointId        string          `gorm:"size:36;not null" json:"start_checkpoint_id"`
	EndCheckpointId          *string         `gorm:"size:36" json:"end_checkpoint_id,omitempty"`
	StartDate                time.Time       `gorm:"not null" json:"start_date"`
	EndDate                  *time.Time      `json:"end_date,omitempty"`
	Status                   PeriodStatus    `gorm:"type:enum('active','closed');default:'active';not null;index:idx_rp_ws_status,priority:2" json:"status"`
	TotalTransactions        int             `gorm:"not null;default:0" json:"total_transactions"`
	TotalAmount              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PatternLearningCompleted bool            `gorm:"not null;default:false" json:"pattern_learning_completed"`
	LockedTransactions       []int           `gorm:"serializer:json" json:"locked_transactions"`
	CreatedAt                time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p ReconciliationPeriod) GetId() string {
	return p.ID
}

// AllGapsZero is THE zero-gap predicate. The closure validator and the
// adjustment creator both route through IsGapResolved so the epsilon can
// never drift between them.
func AllGapsZero(gaps []ReconciliationGap) bool {
	for _, gap := range gaps {
		if !gap.IsResolved() {
			return false
		}
	}
	return true
}

// ClosureCheck is a normal negative result, not an error. Callers treat a
// refusal as expected control flow.
type ClosureCheck struct {
	CanClose bool   `json:"can_close"`
	Reason   string `json:"reason,omitempty"`
}

const (
	ClosureReasonGapsRemain     = "All gaps must be resolved before closure"
	ClosureReasonPeriodInactive = "Period is not active"
)

// ValidateClosureConstraints is the core safety property: no financial period
// can be sealed while any account's books disagree with the ledger beyond
// rounding noise.
func ValidateClosureConstraints(period *ReconciliationPeriod, allGapsZero bool) ClosureCheck {
	if period == nil || period.Status != PeriodStatusActive {
		return ClosureCheck{CanClose: false, Reason: ClosureReasonPeriodInactive}
	}
	if !allGapsZero {
		return ClosureCheck{CanClose: false, Reason: ClosureReasonGapsRemain}
	}
	return ClosureCheck{CanClose: true}
}

// CanTransitionStatus enumerates the legal period transitions:
// active -> closed (requires all gaps zero) and the idempotent
// closed -> closed. Periods never reopen.
func CanTransitionStatus(from, to PeriodStatus, allGapsZero bool) bool {
	switch {
	case from == PeriodStatusActive && to == PeriodStatusClosed:
		return allGapsZero
	case from == PeriodStatusClosed && to == PeriodStatusClosed:
		return true
	default:
		return false
	}
}

func IsReadyForClosure(period *ReconciliationPeriod, allGapsZero bool) bool {
	return ValidateClosureConstraints(period, allGapsZero).CanClose
}

// GetActivePeriod returns the workspace's single active period, or nil. Runs
// on the caller's transaction so the read stays consistent with the mutation
// it feeds.
func GetActivePeriod(tx *gorm.DB, workspaceId string) (*ReconciliationPeriod, error) {

	var period ReconciliationPeriod
	err := tx.
		Where("workspace_id = ?", workspaceId).
		Where("status = ?", PeriodStatusActive).
		Order("start_date DESC").
		Limit(1).
		Find(&period).Error
	if err != nil {
		return nil, err
	}
	if period.ID == "" {
		return nil, nil
	}
	return &period, nil
}

func GetPeriod(ctx context.Context, id string) (*ReconciliationPeriod, error) {

	workspaceId, ok := utils.GetWorkspaceIdFromContext(ctx)
	if !ok || workspaceId == "" {
		return nil, utils.NewValidationError("workspace_id", "workspace id is required")
	}
	return utils.FetchModel[ReconciliationPeriod](ctx, workspaceId, id)
}

// CreatePeriod opens a new active period starting at the given checkpoint.
func CreatePeriod(tx *gorm.DB, workspaceId, startCheckpointId string, startDate time.Time) (*ReconciliationPeriod, error) {

	period := ReconciliationPeriod{
		ID:                 uuid.NewString(),
		WorkspaceId:        workspaceId,
		StartCheckpointId:  startCheckpointId,
		StartDate:          startDate,
		Status:             PeriodStatusActive,
		TotalAmount:        decimal.Zero,
		LockedTransactions: []int{},
	}
	if err := tx.Create(&period).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

// AttachEndCheckpoint pins the period's end to a newly created checkpoint and
// freezes its transaction statistics plus the ids that fed the gap
// computation.
func AttachEndCheckpoint(tx *gorm.DB, period *ReconciliationPeriod, checkpoint *Checkpoint, totalTransactions int, totalAmount decimal.Decimal, lockedTransactionIds []int) error {

	endDate := checkpoint.CreatedAt.Time
	period.EndCheckpointId = &checkpoint.ID
	period.EndDate = &endDate
	period.TotalTransactions = totalTransactions
	period.TotalAmount = totalAmount
	period.LockedTransactions = utils.UniqueSlice(lockedTransactionIds)

	return tx.Model(&ReconciliationPeriod{}).
		Where("id = ? AND workspace_id = ?", period.ID, period.WorkspaceId).
		Updates(map[string]interface{}{
			"EndCheckpointId":    period.EndCheckpointId,
			"EndDate":            period.EndDate,
			"TotalTransactions":  period.TotalTransactions,
			"TotalAmount":        period.TotalAmount,
			"LockedTransactions": period.LockedTransactions,
		}).Error
}

// ClosePeriodCAS performs the atomic check-and-set transition. The WHERE on
// status makes two racing closers resolve to exactly one winner; the loser
// gets a ConcurrencyConflict and must re-read.
func ClosePeriodCAS(tx *gorm.DB, period *ReconciliationPeriod) error {

	res := tx.Model(&ReconciliationPeriod{}).
		Where("id = ? AND workspace_id = ? AND status = ?", period.ID, period.WorkspaceId, PeriodStatusActive).
		Update("status", PeriodStatusClosed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.NewConcurrencyConflict("reconciliation_period", "period was closed or mutated concurrently")
	}
	period.Status = PeriodStatusClosed
	return nil
}

// CheckLockedTransactions detects edits to the ledger rows that produced the
// last gap computation. Any mutation or soft delete after the checkpoint
// invalidates cached gaps; the caller must recompute. Runs on the mutating
// transaction and locks the rows, so no ledger edit can land between this
// check and the commit.
func CheckLockedTransactions(tx *gorm.DB, period *ReconciliationPeriod, since time.Time) error {

	if len(period.LockedTransactions) == 0 {
		return nil
	}
	txns, err := FetchTransactionsByIds(tx, period.WorkspaceId, period.LockedTransactions)
	if err != nil {
		return err
	}
	if len(txns) != len(utils.UniqueSlice(period.LockedTransactions)) {
		return utils.NewDataIntegrityError("transaction", "locked transaction row disappeared")
	}
	for _, txn := range txns {
		if txn.DeletedAt.Valid {
			return utils.NewConcurrencyConflict("transaction", "locked transaction was deleted during resolution")
		}
		if txn.UpdatedAt.After(since) {
			return utils.NewConcurrencyConflict("transaction", "locked transaction was edited during resolution")
		}
	}
	return nil
}
