package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/reconcile_backend/config"
	"bitbucket.org/mmdatafocus/reconcile_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountBalance is the per-account snapshot line inside a checkpoint:
// declared actual vs computed expected. GapAmount is always
// actual - expected; GapPercentage is relative to period transaction volume.
type AccountBalance struct {
	AccountId       int             `json:"account_id"`
	AccountName     string          `json:"account_name"`
	Currency        string          `json:"currency"`
	ActualBalance   decimal.Decimal `json:"actual_balance"`
	ExpectedBalance decimal.Decimal `json:"expected_balance"`
	GapAmount       decimal.Decimal `json:"gap_amount"`
	GapPercentage   decimal.Decimal `json:"gap_percentage"`
}

// ReconciliationGap carries one account's discrepancy through the resolution
// workflow. GapAmount is zeroed when the gap is resolved; ResolutionMethod
// records how.
type ReconciliationGap struct {
	AccountId               int               `json:"account_id"`
	GapAmount               decimal.Decimal   `json:"gap_amount"`
	GapPercentage           decimal.Decimal   `json:"gap_percentage"`
	Severity                GapSeverity       `json:"severity"`
	ResolutionMethod        *ResolutionMethod `json:"resolution_method,omitempty"`
	AdjustmentTransactionId *int              `json:"adjustment_transaction_id,omitempty"`
}

func (g ReconciliationGap) IsResolved() bool {
	return IsGapResolved(g.GapAmount)
}

// Checkpoint is an immutable snapshot of declared vs computed balances at a
// point in time. The account-balance snapshot and timestamps never change
// after creation; only the gap resolution state and the open -> closed status
// transition do.
type Checkpoint struct {
	ID                     string              `gorm:"primary_key;size:36" json:"id"`
	WorkspaceId            string              `gorm:"size:64;index;not null;index:idx_cp_ws_status_created,priority:1" json:"workspace_id"`
	CreatedAt              MilliTime           `gorm:"type:datetime(3);not null;index:idx_cp_ws_status_created,priority:3" json:"created_at"`
	CreatedBy              int                 `gorm:"not null" json:"created_by"`
	AccountBalances        []AccountBalance    `gorm:"serializer:json" json:"account_balances"`
	Gaps                   []ReconciliationGap `gorm:"serializer:json" json:"gaps"`
	PeriodTransactionTotal decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"period_transaction_total"`
	Status                 CheckpointStatus    `gorm:"type:enum('open','closed');default:'open';not null;index:idx_cp_ws_status_created,priority:2" json:"status"`
	UpdatedAt              time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c Checkpoint) GetId() string {
	return c.ID
}

// BalanceForAccount finds the snapshot line for an account.
func (c *Checkpoint) BalanceForAccount(accountId int) (*AccountBalance, bool) {
	for i := range c.AccountBalances {
		if c.AccountBalances[i].AccountId == accountId {
			return &c.AccountBalances[i], true
		}
	}
	return nil, false
}

// GapForAccount finds the workflow gap entry for an account.
func (c *Checkpoint) GapForAccount(accountId int) (*ReconciliationGap, bool) {
	for i := range c.Gaps {
		if c.Gaps[i].AccountId == accountId {
			return &c.Gaps[i], true
		}
	}
	return nil, false
}

// CreateCheckpoint persists the snapshot with a server-assigned,
// millisecond-precision timestamp. Append-only: concurrent creations for the
// same workspace yield two distinct checkpoints.
func CreateCheckpoint(tx *gorm.DB, workspaceId string, createdBy int, balances []AccountBalance, gaps []ReconciliationGap, periodTotal decimal.Decimal) (*Checkpoint, error) {

	checkpoint := Checkpoint{
		ID:                     uuid.NewString(),
		WorkspaceId:            workspaceId,
		CreatedAt:              NewMilliTime(config.GetClock().Now()),
		CreatedBy:              createdBy,
		AccountBalances:        balances,
		Gaps:                   gaps,
		PeriodTransactionTotal: periodTotal,
		Status:                 CheckpointStatusOpen,
	}
	if err := tx.Create(&checkpoint).Error; err != nil {
		return nil, err
	}
	return &checkpoint, nil
}

func GetCheckpoint(ctx context.Context, id string) (*Checkpoint, error) {

	workspaceId, ok := utils.GetWorkspaceIdFromContext(ctx)
	if !ok || workspaceId == "" {
		return nil, errors.New("workspace id is required")
	}
	return utils.FetchModel[Checkpoint](ctx, workspaceId, id)
}

// latestBalanceForAccount scans checkpoints, assumed ordered newest first,
// and returns the first one carrying a balance entry for the account.
func latestBalanceForAccount(checkpoints []Checkpoint, accountId int) (*Checkpoint, *AccountBalance) {
	for i := range checkpoints {
		if balance, ok := checkpoints[i].BalanceForAccount(accountId); ok {
			return &checkpoints[i], balance
		}
	}
	return nil, nil
}

// PreviousClosedCheckpointForAccount returns the latest CLOSED checkpoint
// strictly before the given instant that includes the account, or nil when
// the account appears in no closed checkpoint at all. The newest closed
// checkpoint of a workspace does not necessarily cover every account, so the
// walk continues past it rather than treating the account as never
// reconciled. The status filter is what keeps a half-committed concurrent
// checkpoint from being treated as prior state.
func PreviousClosedCheckpointForAccount(ctx context.Context, workspaceId string, accountId int, before time.Time) (*Checkpoint, *AccountBalance, error) {

	db := config.GetDB()
	const pageSize = 20
	for offset := 0; ; offset += pageSize {
		var checkpoints []Checkpoint
		err := db.WithContext(ctx).
			Where("workspace_id = ?", workspaceId).
			Where("status = ?", CheckpointStatusClosed).
			Where("created_at < ?", before).
			Order("created_at DESC").
			Limit(pageSize).
			Offset(offset).
			Find(&checkpoints).Error
		if err != nil {
			return nil, nil, err
		}
		if checkpoint, balance := latestBalanceForAccount(checkpoints, accountId); checkpoint != nil {
			return checkpoint, balance, nil
		}
		if len(checkpoints) < pageSize {
			return nil, nil, nil
		}
	}
}

// SaveCheckpointGaps persists updated gap resolution state. The balance
// snapshot is deliberately not writable through this path.
func SaveCheckpointGaps(tx *gorm.DB, checkpoint *Checkpoint) error {
	return tx.Model(&Checkpoint{}).
		Where("id = ? AND workspace_id = ?", checkpoint.ID, checkpoint.WorkspaceId).
		Update("gaps", checkpoint.Gaps).Error
}

// CloseCheckpoint flips open -> closed. Idempotent: closing an already closed
// checkpoint is a no-op.
func CloseCheckpoint(tx *gorm.DB, workspaceId, id string) error {
	return tx.Model(&Checkpoint{}).
		Where("id = ? AND workspace_id = ? AND status = ?", id, workspaceId, CheckpointStatusOpen).
		Update("status", CheckpointStatusClosed).Error
}

// GapSummary is the per-checkpoint gap view.
type GapSummary struct {
	CheckpointId string              `json:"checkpoint_id"`
	Gaps         []ReconciliationGap `json:"gaps"`
	Aggregate    GapAggregate        `json:"aggregate"`
}

// GetGapSummary returns the per-account gaps and the cross-account aggregate
// for one checkpoint.
func GetGapSummary(ctx context.Context, checkpointId string) (*GapSummary, error) {

	checkpoint, err := GetCheckpoint(ctx, checkpointId)
	if err != nil {
		return nil, err
	}
	return &GapSummary{
		CheckpointId: checkpoint.ID,
		Gaps:         checkpoint.Gaps,
		Aggregate:    AggregateMultiAccountGaps(checkpoint.AccountBalances, checkpoint.PeriodTransactionTotal),
	}, nil
}
