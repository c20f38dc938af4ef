package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireWorkspaceReconcileLock serializes checkpoint creation and period
// closure per workspace across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the mutating transaction.
func AcquireWorkspaceReconcileLock(tx *gorm.DB, workspaceId string) error {
	lockName := fmt.Sprintf("reconcile:%s", workspaceId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire reconcile lock for workspace_id=%s", workspaceId)
	}
	return nil
}

func ReleaseWorkspaceReconcileLock(tx *gorm.DB, workspaceId string) {
	lockName := fmt.Sprintf("reconcile:%s", workspaceId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
