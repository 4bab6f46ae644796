package models

import "time"

type MigrationStatus string

const (
	MigrationStatusPending    MigrationStatus = "pending"
	MigrationStatusRunning    MigrationStatus = "running"
	MigrationStatusCompleted  MigrationStatus = "completed"
	MigrationStatusFailed     MigrationStatus = "failed"
	MigrationStatusRolledBack MigrationStatus = "rolled_back"
)

// MigrationTask is the append-only history of applied schema migrations.
// Rollback flips Status to rolled_back; rows are never deleted.
type MigrationTask struct {
	ID                int             `gorm:"primary_key" json:"id"`
	Name              string          `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Version           string          `gorm:"size:50;index;not null" json:"version"`
	Status            MigrationStatus `gorm:"size:20;index;not null" json:"status"`
	RollbackAvailable bool            `json:"rollback_available"`
	ErrorMessage      *string         `gorm:"type:text" json:"error_message"`
	StartedAt         *time.Time      `json:"started_at"`
	FinishedAt        *time.Time      `json:"finished_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
