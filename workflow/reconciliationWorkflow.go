package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/reconcile_backend/config"
	"bitbucket.org/mmdatafocus/reconcile_backend/models"
	"bitbucket.org/mmdatafocus/reconcile_backend/utils"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type NewAccountBalance struct {
	AccountId     int             `json:"account_id" validate:"required,gt=0"`
	AccountName   string          `json:"account_name" validate:"required"`
	Currency      string          `json:"currency" validate:"required,min=3,max=3"`
	ActualBalance decimal.Decimal `json:"actual_balance"`
}

type NewCheckpoint struct {
	AccountBalances []NewAccountBalance `json:"account_balances" validate:"required,min=1,dive"`
	DeviceType      string              `json:"device_type"`
}

type OpenCheckpointResult struct {
	Checkpoint *models.Checkpoint            `json:"checkpoint"`
	Period     *models.ReconciliationPeriod  `json:"period"`
	Session    *models.ReconciliationSession `json:"session"`
}

// bestEffortLock takes a short redis lock per workspace so two users opening
// checkpoints at once do not both hit the DB path at the same moment.
// Reliability does not depend on redis: the MySQL advisory lock inside the
// transaction is the layer that actually serializes.
func bestEffortLock(ctx context.Context, name string) *redislock.Lock {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil
	}
	lock, err := locker.Obtain(ctx, name, 30*time.Second, nil)
	if err != nil {
		return nil
	}
	return lock
}

// OpenCheckpoint computes expected balances and gaps for the declared actual
// balances, persists the immutable snapshot, pins it as the active period's
// end checkpoint (or bootstraps the first period), and starts a
// reconciliation session.
func OpenCheckpoint(ctx context.Context, input *NewCheckpoint) (*OpenCheckpointResult, error) {

	logger := config.GetLogger()

	workspaceId, ok := utils.GetWorkspaceIdFromContext(ctx)
	if !ok || workspaceId == "" {
		return nil, utils.NewValidationError("workspace_id", "workspace id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	seen := map[int]bool{}
	for _, balance := range input.AccountBalances {
		if seen[balance.AccountId] {
			return nil, utils.NewValidationError("account_id", "duplicate account in checkpoint input")
		}
		seen[balance.AccountId] = true
	}

	if lock := bestEffortLock(ctx, "reconcile:open:"+workspaceId); lock != nil {
		defer lock.Release(ctx)
	}

	asOf := config.GetClock().Now()

	// Expected balances and period activity, account by account. Reads only;
	// the consistent-prior guarantee comes from the closed-status filter in
	// PreviousClosedCheckpointForAccount.
	balances := make([]models.AccountBalance, 0, len(input.AccountBalances))
	periodTotal := decimal.Zero
	totalTransactions := 0
	lockedIds := []int{}
	for _, in := range input.AccountBalances {
		res, err := models.CalculateExpectedBalance(ctx, in.AccountId, workspaceId, asOf)
		if err != nil {
			return nil, err
		}
		periodTotal = periodTotal.Add(models.TransactionVolume(res.Transactions))
		totalTransactions += len(res.Transactions)
		lockedIds = append(lockedIds, res.TransactionIds()...)
		balances = append(balances, models.AccountBalance{
			AccountId:       in.AccountId,
			AccountName:     in.AccountName,
			Currency:        in.Currency,
			ActualBalance:   in.ActualBalance,
			ExpectedBalance: res.ExpectedBalance,
			GapAmount:       in.ActualBalance.Sub(res.ExpectedBalance),
		})
	}
	for i := range balances {
		balances[i].GapPercentage = models.GapPercentage(balances[i].GapAmount, periodTotal)
	}
	gaps := make([]models.ReconciliationGap, 0, len(balances))
	for _, balance := range balances {
		gaps = append(gaps, models.NewReconciliationGap(balance, periodTotal))
	}

	var checkpoint *models.Checkpoint
	var period *models.ReconciliationPeriod
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireWorkspaceReconcileLock(tx, workspaceId); err != nil {
			return err
		}
		defer ReleaseWorkspaceReconcileLock(tx, workspaceId)

		var err error
		checkpoint, err = models.CreateCheckpoint(tx, workspaceId, userId, balances, gaps, periodTotal)
		if err != nil {
			return err
		}

		period, err = models.GetActivePeriod(tx, workspaceId)
		if err != nil {
			return err
		}
		if period == nil {
			period, err = models.CreatePeriod(tx, workspaceId, checkpoint.ID, checkpoint.CreatedAt.Time)
			return err
		}
		return models.AttachEndCheckpoint(tx, period, checkpoint, totalTransactions, periodTotal, lockedIds)
	})
	if err != nil {
		return nil, err
	}

	session, err := models.CreateReconciliationSession(ctx, checkpoint, input.DeviceType)
	if err != nil {
		config.LogError(logger, "reconciliationWorkflow.go", "OpenCheckpoint", "creating session", checkpoint.ID, err)
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"workspace_id":  workspaceId,
		"checkpoint_id": checkpoint.ID,
		"period_id":     period.ID,
		"accounts":      len(balances),
		"period_total":  periodTotal,
	}).Info("checkpoint opened")

	return &OpenCheckpointResult{Checkpoint: checkpoint, Period: period, Session: session}, nil
}

type ResolveGapInput struct {
	CheckpointId string                  `json:"checkpoint_id" validate:"required"`
	SessionId    string                  `json:"session_id"`
	AccountId    int                     `json:"account_id" validate:"required,gt=0"`
	Method       models.ResolutionMethod `json:"method" validate:"required"`
}

// ResolveGap shrinks one account's gap: either by synthesizing an adjustment
// transaction or by quick-closing (accepting the discrepancy). Quick close
// forces the recorded gap to zero via the resolution flag; it never bypasses
// the closure invariant. The checkpoint is re-read and saved under the
// workspace advisory lock: the gaps column is one JSON blob, so an unlocked
// read-modify-write of it would let two concurrent resolutions on different
// accounts overwrite each other and resurrect a gap whose adjustment already
// hit the ledger.
func ResolveGap(ctx context.Context, input *ResolveGapInput) (*models.ReconciliationGap, error) {

	workspaceId, ok := utils.GetWorkspaceIdFromContext(ctx)
	if !ok || workspaceId == "" {
		return nil, utils.NewValidationError("workspace_id", "workspace id is required")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	var resolved models.ReconciliationGap
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireWorkspaceReconcileLock(tx, workspaceId); err != nil {
			return err
		}
		defer ReleaseWorkspaceReconcileLock(tx, workspaceId)

		var checkpoint models.Checkpoint
		if err := tx.Where("workspace_id = ?", workspaceId).First(&checkpoint, "id = ?", input.CheckpointId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		gap, found := checkpoint.GapForAccount(input.AccountId)
		if !found {
			return utils.NewValidationError("account_id", "no gap recorded for account in checkpoint")
		}
		if gap.IsResolved() {
			return utils.NewValidationError("gap_amount", "gap is already within resolution threshold")
		}

		// A ledger edit to any locked transaction invalidates the cached gap;
		// surface the conflict so the caller recomputes instead of resolving a
		// stale figure.
		period, err := models.GetActivePeriod(tx, workspaceId)
		if err != nil {
			return err
		}
		if period != nil {
			if err := models.CheckLockedTransactions(tx, period, checkpoint.CreatedAt.Time); err != nil {
				return err
			}
		}

		if input.Method == models.ResolutionMethodManualTransaction {
			spec, err := models.DetermineAdjustmentType(gap.GapAmount)
			if err != nil {
				return err
			}
			txn, err := models.CreateAdjustmentTransaction(tx, workspaceId, input.AccountId, gap.GapAmount.Abs(), *spec, config.GetClock().Now())
			if err != nil {
				return err
			}
			gap.AdjustmentTransactionId = &txn.ID
		}
		method := input.Method
		gap.ResolutionMethod = &method
		gap.GapAmount = decimal.Zero
		if err := models.SaveCheckpointGaps(tx, &checkpoint); err != nil {
			return err
		}
		resolved = *gap
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.SessionId != "" {
		session, serr := models.FindSessionForCheckpoint(ctx, input.CheckpointId, input.SessionId)
		if serr == nil {
			session.RecordResolution(input.Method)
			if serr := models.SaveReconciliationSession(session); serr != nil {
				config.LogError(config.GetLogger(), "reconciliationWorkflow.go", "ResolveGap", "saving session", session.ID, serr)
			}
		} else if !errors.Is(serr, utils.ErrorRecordNotFound) {
			return nil, serr
		}
	}

	return &resolved, nil
}

type ClosePeriodResult struct {
	Closed bool   `json:"closed"`
	Reason string `json:"reason,omitempty"`
}

// AttemptClosePeriod validates the zero-gap constraint and seals the period
// as one atomic check-and-set. Refusal is a normal result; only infra
// failures and concurrency conflicts surface as errors. On success the end
// checkpoint closes and the successor period opens at it.
func AttemptClosePeriod(ctx context.Context, periodId string) (*ClosePeriodResult, error) {

	logger := config.GetLogger()

	workspaceId, ok := utils.GetWorkspaceIdFromContext(ctx)
	if !ok || workspaceId == "" {
		return nil, utils.NewValidationError("workspace_id", "workspace id is required")
	}

	// Fast-path refusals before taking any lock; everything is re-validated
	// inside the transaction.
	period, err := models.GetPeriod(ctx, periodId)
	if err != nil {
		return nil, err
	}
	if period.Status != models.PeriodStatusActive {
		return &ClosePeriodResult{Closed: false, Reason: models.ClosureReasonPeriodInactive}, nil
	}

	if lock := bestEffortLock(ctx, "reconcile:close:"+workspaceId); lock != nil {
		defer lock.Release(ctx)
	}

	result := &ClosePeriodResult{}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireWorkspaceReconcileLock(tx, workspaceId); err != nil {
			return err
		}
		defer ReleaseWorkspaceReconcileLock(tx, workspaceId)

		// Re-read the period under the lock: another closer may have won, or
		// a concurrent checkpoint may have changed the end checkpoint and the
		// locked transaction list.
		if err := tx.Where("workspace_id = ?", workspaceId).First(period, "id = ?", periodId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if period.Status != models.PeriodStatusActive {
			result.Reason = models.ClosureReasonPeriodInactive
			return nil
		}
		if period.EndCheckpointId == nil {
			result.Reason = "period has no end checkpoint"
			return nil
		}

		// Re-read the checkpoint too: a gap may have reopened between the
		// caller's last look and now.
		var checkpoint models.Checkpoint
		if err := tx.Where("workspace_id = ?", workspaceId).First(&checkpoint, "id = ?", *period.EndCheckpointId).Error; err != nil {
			return utils.NewDataIntegrityError("checkpoint", "end checkpoint of period cannot be resolved")
		}

		if err := models.CheckLockedTransactions(tx, period, checkpoint.CreatedAt.Time); err != nil {
			return err
		}

		allZero := models.AllGapsZero(checkpoint.Gaps)
		check := models.ValidateClosureConstraints(period, allZero)
		if !check.CanClose {
			result.Reason = check.Reason
			return nil
		}

		if err := models.ClosePeriodCAS(tx, period); err != nil {
			return err
		}
		if err := models.CloseCheckpoint(tx, workspaceId, checkpoint.ID); err != nil {
			return err
		}
		if _, err := models.CreatePeriod(tx, workspaceId, checkpoint.ID, checkpoint.CreatedAt.Time); err != nil {
			return err
		}
		result.Closed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Closed {
		logger.WithFields(logrus.Fields{
			"workspace_id": workspaceId,
			"period_id":    period.ID,
		}).Info("reconciliation period closed")
	}
	return result, nil
}

type SessionProgress struct {
	SessionId              string                    `json:"session_id"`
	CurrentStep            models.ReconciliationStep `json:"current_step"`
	Status                 models.SessionStatus      `json:"status"`
	Percentage             float64                   `json:"percentage"`
	EstimatedTimeRemaining int                       `json:"estimated_time_remaining"`
	GapsSummary            models.GapsSummary        `json:"gaps_summary"`
}

// GetSessionProgress reports workflow position for polling callers. Pure over
// the stored session state, so repeated calls are stable.
func GetSessionProgress(ctx context.Context, sessionId string) (*SessionProgress, error) {

	session, err := models.GetReconciliationSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	return &SessionProgress{
		SessionId:   session.ID,
		CurrentStep: session.CurrentStep,
		Status:      session.Status,
		Percentage: models.CalculateProgressPercentage(
			session.CurrentStep, session.CompletedSteps(), session.GapsRemaining, session.Metadata.InitialGapCount),
		EstimatedTimeRemaining: models.EstimateCompletionTime(
			session.CurrentStep, models.RemainingSteps(session.CurrentStep), session.GapsRemaining),
		GapsSummary: models.GenerateGapsSummary(session),
	}, nil
}

// AdvanceSessionStep validates the current step and moves the session
// forward, completing it on the terminal step.
func AdvanceSessionStep(ctx context.Context, sessionId string) (*models.ReconciliationSession, error) {

	session, err := models.GetReconciliationSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, utils.NewValidationError("status", "session is not active")
	}
	if err := session.AdvanceStep(); err != nil {
		return nil, err
	}
	if err := models.SaveReconciliationSession(session); err != nil {
		return nil, err
	}
	return session, nil
}
