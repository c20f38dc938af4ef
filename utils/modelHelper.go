package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/reconcile_backend/config"
)

// fetch model from db
// (workspace_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, workspaceId string, id any) (*T, error) {

	db := config.GetDB()
	var result T
	err := db.WithContext(ctx).
		Where("workspace_id = ?", workspaceId).
		First(&result, "id = ?", id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}
