package models

import (
	"bitbucket.org/mmdatafocus/reconcile_backend/config"
)

// Migrate creates/updates the durable tables. Sessions are redis-only and do
// not migrate.
func Migrate() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Transaction{},
		&Checkpoint{},
		&ReconciliationPeriod{},
	)
}
