package backup

import (
	"testing"
	"time"

	"bitbucket.org/mmagritech/farm_backend/models"
)

func TestStatusForBackupAge(t *testing.T) {
	t.Setenv("BACKUP_WARN_AFTER_HOURS", "24")
	t.Setenv("BACKUP_ERROR_AFTER_HOURS", "72")

	cases := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"fresh", 1 * time.Hour, SyncStatusOK},
		{"just under warn", 23 * time.Hour, SyncStatusOK},
		{"past warn", 25 * time.Hour, SyncStatusWarning},
		{"just under error", 71 * time.Hour, SyncStatusWarning},
		{"past error", 73 * time.Hour, SyncStatusError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusForBackupAge(tc.age); got != tc.want {
				t.Errorf("statusForBackupAge(%s) = %s, want %s", tc.age, got, tc.want)
			}
		})
	}
}

func TestApplyLastBackupNoneEverTaken(t *testing.T) {
	r := &SyncReport{}
	r.applyLastBackup(nil)
	if r.Status != SyncStatusWarning {
		t.Errorf("status = %s, want warning when no backup was ever taken", r.Status)
	}
	if r.LastBackupAt != nil {
		t.Errorf("last backup at = %v, want nil", r.LastBackupAt)
	}
}

func TestApplyLastBackupFresh(t *testing.T) {
	t.Setenv("BACKUP_WARN_AFTER_HOURS", "24")
	t.Setenv("BACKUP_ERROR_AFTER_HOURS", "72")

	completed := time.Now().UTC().Add(-time.Hour)
	r := &SyncReport{}
	r.applyLastBackup(&models.BackupInfo{BackupId: "b-1", CompletedAt: &completed})
	if r.Status != SyncStatusOK {
		t.Errorf("status = %s, want ok", r.Status)
	}
	if r.LastBackupId != "b-1" || r.LastBackupAt == nil {
		t.Errorf("report = %+v, want backup id and timestamp filled", r)
	}
}

func TestStatusForBackupAge_DefaultThresholds(t *testing.T) {
	t.Setenv("BACKUP_WARN_AFTER_HOURS", "")
	t.Setenv("BACKUP_ERROR_AFTER_HOURS", "")

	if got := statusForBackupAge(12 * time.Hour); got != SyncStatusOK {
		t.Errorf("12h under defaults = %s, want ok", got)
	}
	if got := statusForBackupAge(48 * time.Hour); got != SyncStatusWarning {
		t.Errorf("48h under defaults = %s, want warning", got)
	}
	if got := statusForBackupAge(100 * time.Hour); got != SyncStatusError {
		t.Errorf("100h under defaults = %s, want error", got)
	}
}
