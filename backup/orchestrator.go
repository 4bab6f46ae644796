package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bitbucket.org/mmagritech/farm_backend/config"
	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/utils"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// runLockTTL covers the longest expected dump. The lock is refreshed
	// nowhere, so a crashed run frees itself after this.
	runLockTTL = 30 * time.Minute

	DefaultRetentionCount = 10
)

type Options struct {
	// Dir is where backup artifacts are written. Required.
	Dir  string
	Type models.BackupType
	// Compress gzips the dump after it is written.
	Compress bool
	// Encrypt and RemoteUpload are declared capabilities with no
	// implementation behind them; setting either fails validation.
	Encrypt      bool
	RemoteUpload bool
	// RetentionCount keeps this many most-recent completed backups per farm
	// (0 means DefaultRetentionCount; negative disables pruning).
	RetentionCount int
}

func (o Options) validate() error {
	if o.Dir == "" {
		return utils.PreconditionError("backup dir is required")
	}
	if o.Encrypt {
		return fmt.Errorf("%w: backup encryption", utils.ErrUnsupported)
	}
	if o.RemoteUpload {
		return fmt.Errorf("%w: remote upload", utils.ErrUnsupported)
	}
	switch o.Type {
	case "", models.BackupTypeFull:
	case models.BackupTypeIncremental, models.BackupTypeDifferential:
		return fmt.Errorf("%w: %s backups", utils.ErrUnsupported, o.Type)
	default:
		return utils.PreconditionError("unknown backup type %q", o.Type)
	}
	return nil
}

type RestoreOptions struct {
	// Confirm must be true; restoring overwrites live data.
	Confirm bool
	// Clean drops and recreates the database before replaying the dump.
	Clean bool
}

// Orchestrator runs database backups and restores and keeps the BackupInfo
// registry. A redis lock serializes runs across replicas; with a nil locker
// (dev, cmd tools) runs are unserialized.
type Orchestrator struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Locker *redislock.Client
}

func NewOrchestrator(db *gorm.DB, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{DB: db, Logger: logger, Locker: config.GetRedisLock()}
}

// CreateBackup dumps the database to Options.Dir, records a BackupInfo row
// (in_progress, then a terminal status) and prunes old backups past the
// retention count. The returned row is terminal.
func (o *Orchestrator) CreateBackup(ctx context.Context, farmId string, opts Options) (*models.BackupInfo, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if o.Locker != nil {
		lock, err := o.Locker.Obtain(ctx, "backup:run:"+farmId, runLockTTL, nil)
		if err != nil {
			if err == redislock.ErrNotObtained {
				return nil, utils.PreconditionError("another backup is already running for farm %s", farmId)
			}
			return nil, err
		}
		defer lock.Release(context.Background())
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	backupType := opts.Type
	if backupType == "" {
		backupType = models.BackupTypeFull
	}
	backupId := uuid.NewString()
	filePath := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.sql", time.Now().UTC().Format("20060102T150405"), backupId[:8]))
	if opts.Compress {
		filePath += ".gz"
	}

	info := models.BackupInfo{
		BackupId:   backupId,
		FarmId:     farmId,
		Type:       backupType,
		FilePath:   filePath,
		Compressed: opts.Compress,
		Status:     models.BackupStatusInProgress,
	}
	if err := o.DB.WithContext(ctx).Create(&info).Error; err != nil {
		return nil, err
	}

	err := o.runDump(ctx, filePath, opts.Compress)
	if err == nil {
		info.Checksum, err = fileChecksum(filePath)
	}
	var size int64
	if err == nil {
		var stat os.FileInfo
		stat, err = os.Stat(filePath)
		if err == nil {
			size = stat.Size()
		}
	}

	now := time.Now().UTC()
	info.CompletedAt = &now
	if err != nil {
		os.Remove(filePath)
		msg := err.Error()
		info.Status = models.BackupStatusFailed
		info.ErrorMessage = &msg
		_ = o.DB.WithContext(ctx).Save(&info).Error
		config.LogError(o.Logger, "Backup", "CreateBackup", "dump failed", backupId, err)
		return &info, err
	}
	info.FileSize = size
	info.Status = models.BackupStatusCompleted
	if err := o.DB.WithContext(ctx).Save(&info).Error; err != nil {
		return nil, err
	}

	o.Logger.WithFields(logrus.Fields{
		"field":     "Backup",
		"backup_id": backupId,
		"file":      filePath,
		"bytes":     size,
	}).Info("backup completed")

	if opts.RetentionCount >= 0 {
		o.pruneRetention(ctx, farmId, opts.RetentionCount)
	}
	return &info, nil
}

// RestoreBackup replays a completed backup into the database. The artifact's
// checksum is verified first; a mismatch aborts with no data touched.
func (o *Orchestrator) RestoreBackup(ctx context.Context, backupId string, opts RestoreOptions) error {
	if !opts.Confirm {
		return utils.PreconditionError("restore requires explicit confirmation")
	}

	var info models.BackupInfo
	if err := o.DB.WithContext(ctx).Where("backup_id = ?", backupId).First(&info).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.PreconditionError("backup %s not found", backupId)
		}
		return err
	}
	if info.Status != models.BackupStatusCompleted {
		return utils.PreconditionError("backup %s is %s, only completed backups can restore", backupId, info.Status)
	}

	checksum, err := fileChecksum(info.FilePath)
	if err != nil {
		return err
	}
	if info.Checksum != "" && checksum != info.Checksum {
		return fmt.Errorf("%w: backup %s checksum mismatch (have %s want %s)",
			utils.ErrIntegrity, backupId, checksum, info.Checksum)
	}

	dumpPath := info.FilePath
	if info.Compressed {
		dumpPath, err = decompressToTemp(info.FilePath)
		if err != nil {
			return err
		}
		defer os.Remove(dumpPath)
	}

	if opts.Clean {
		if err := o.recreateDatabase(ctx); err != nil {
			return err
		}
	}
	if err := o.runRestore(ctx, dumpPath); err != nil {
		return err
	}

	o.Logger.WithFields(logrus.Fields{
		"field":     "Backup",
		"backup_id": backupId,
		"clean":     opts.Clean,
	}).Info("restore completed")
	return nil
}

// BackupHistory returns the newest backups for a farm, any status.
func (o *Orchestrator) BackupHistory(ctx context.Context, farmId string, limit int) ([]models.BackupInfo, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	var backups []models.BackupInfo
	err := o.DB.WithContext(ctx).
		Where("farm_id = ?", farmId).
		Order("id DESC").
		Limit(limit).
		Find(&backups).Error
	return backups, err
}

// DeleteBackup removes the artifact file and its registry row.
func (o *Orchestrator) DeleteBackup(ctx context.Context, backupId string) error {
	var info models.BackupInfo
	if err := o.DB.WithContext(ctx).Where("backup_id = ?", backupId).First(&info).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.PreconditionError("backup %s not found", backupId)
		}
		return err
	}
	if info.FilePath != "" {
		if err := os.Remove(info.FilePath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return o.DB.WithContext(ctx).Delete(&models.BackupInfo{}, info.ID).Error
}

func (o *Orchestrator) pruneRetention(ctx context.Context, farmId string, keep int) {
	if keep == 0 {
		keep = DefaultRetentionCount
	}
	var stale []models.BackupInfo
	err := o.DB.WithContext(ctx).
		Where("farm_id = ? AND status = ?", farmId, models.BackupStatusCompleted).
		Order("id DESC").
		Offset(keep).
		Find(&stale).Error
	if err != nil {
		config.LogError(o.Logger, "Backup", "pruneRetention", "retention scan failed", farmId, err)
		return
	}
	for _, info := range stale {
		if err := o.DeleteBackup(ctx, info.BackupId); err != nil {
			config.LogError(o.Logger, "Backup", "pruneRetention", "prune failed", info.BackupId, err)
			continue
		}
		o.Logger.WithFields(logrus.Fields{
			"field":     "Backup",
			"backup_id": info.BackupId,
		}).Info("pruned backup past retention")
	}
}
