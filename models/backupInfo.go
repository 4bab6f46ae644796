package models

import "time"

type BackupType string

const (
	BackupTypeFull         BackupType = "full"
	BackupTypeIncremental  BackupType = "incremental"
	BackupTypeDifferential BackupType = "differential"
)

type BackupStatus string

const (
	BackupStatusInProgress BackupStatus = "in_progress"
	BackupStatusCompleted  BackupStatus = "completed"
	BackupStatusFailed     BackupStatus = "failed"
)

// BackupInfo is the persisted backup registry. One row per backup attempt,
// created InProgress and flipped to a terminal status. Retention pruning
// deletes the artifact file and this row together.
type BackupInfo struct {
	ID           int          `gorm:"primary_key" json:"id"`
	BackupId     string       `gorm:"size:64;uniqueIndex;not null" json:"backup_id"`
	FarmId       string       `gorm:"size:64;index;not null" json:"farm_id"`
	Type         BackupType   `gorm:"size:20;not null" json:"type"`
	FilePath     string       `gorm:"size:500" json:"file_path"`
	FileSize     int64        `json:"file_size"`
	Checksum     string       `gorm:"size:64" json:"checksum"`
	Compressed   bool         `json:"compressed"`
	Status       BackupStatus `gorm:"size:20;index;not null" json:"status"`
	ErrorMessage *string      `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	CompletedAt  *time.Time   `json:"completed_at"`
}
