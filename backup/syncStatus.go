package backup

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmagritech/farm_backend/config"
	"bitbucket.org/mmagritech/farm_backend/models"
	"gorm.io/gorm"
)

const (
	SyncStatusOK      = "ok"
	SyncStatusWarning = "warning"
	SyncStatusError   = "error"
)

// SyncReport summarizes how protected and how caught-up a farm's data is:
// the age of the last successful backup against the configured thresholds,
// plus the depth of the unprocessed event backlog.
type SyncReport struct {
	Status        string     `json:"status"`
	LastBackupId  string     `json:"last_backup_id,omitempty"`
	LastBackupAt  *time.Time `json:"last_backup_at"`
	BackupAge     string     `json:"backup_age,omitempty"`
	PendingEvents int        `json:"pending_events"`
	CheckedAt     time.Time  `json:"checked_at"`
}

func statusForBackupAge(age time.Duration) string {
	switch {
	case age > config.BackupErrorAfter():
		return SyncStatusError
	case age > config.BackupWarnAfter():
		return SyncStatusWarning
	default:
		return SyncStatusOK
	}
}

// applyLastBackup fills the backup-recency fields from the newest completed
// backup. No completed backup ever taken is a warning, not an error: a fresh
// farm has nothing to restore yet, and the age thresholds only escalate once
// a backup history exists.
func (r *SyncReport) applyLastBackup(last *models.BackupInfo) {
	if last == nil {
		r.Status = SyncStatusWarning
		return
	}
	r.LastBackupId = last.BackupId
	completedAt := last.CreatedAt
	if last.CompletedAt != nil {
		completedAt = *last.CompletedAt
	}
	r.LastBackupAt = &completedAt
	age := time.Since(completedAt)
	r.BackupAge = age.Round(time.Minute).String()
	r.Status = statusForBackupAge(age)
}

// SyncStatus reports ok/warning/error. Warning when the last completed
// backup is older than BackupWarnAfter or none was ever taken, error when
// older than BackupErrorAfter.
func (o *Orchestrator) SyncStatus(ctx context.Context, farmId string) (*SyncReport, error) {
	report := &SyncReport{CheckedAt: time.Now().UTC()}

	var last models.BackupInfo
	err := o.DB.WithContext(ctx).
		Where("farm_id = ? AND status = ?", farmId, models.BackupStatusCompleted).
		Order("id DESC").
		First(&last).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		report.applyLastBackup(nil)
	case err != nil:
		return nil, err
	default:
		report.applyLastBackup(&last)
	}

	pending, err := models.PendingEvents(ctx, farmId)
	if err != nil {
		return nil, err
	}
	report.PendingEvents = len(pending)
	return report, nil
}
