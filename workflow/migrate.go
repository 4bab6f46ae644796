package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmagritech/farm_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MigrationStep is one named, versioned schema change. Down is optional;
// steps without it are recorded as not rollback-available.
type MigrationStep struct {
	Name    string
	Version string
	Up      func(tx *gorm.DB) error
	Down    func(tx *gorm.DB) error
}

// DataMigrations is the ordered list of one-off data fixes and manual DDL
// that AutoMigrate cannot express. Append only; never reorder or rename.
func DataMigrations() []MigrationStep {
	return []MigrationStep{
		{
			Name:    "backfill_cattle_health_status",
			Version: "2026.01",
			Up: func(tx *gorm.DB) error {
				return tx.Exec(`UPDATE cattles SET health_status = 'healthy' WHERE health_status IS NULL OR health_status = ''`).Error
			},
		},
		{
			Name:    "normalize_material_names",
			Version: "2026.01",
			Up: func(tx *gorm.DB) error {
				// Feeding deduction resolves materials by normalized name.
				return tx.Exec(`UPDATE materials SET name = LOWER(TRIM(name))`).Error
			},
		},
		{
			Name:    "idx_data_flow_events_claim",
			Version: "2026.02",
			Up: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE INDEX idx_data_flow_events_claim ON data_flow_events (status, locked_at)`).Error
			},
			Down: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX idx_data_flow_events_claim ON data_flow_events`).Error
			},
		},
	}
}

// RunMigrations applies the given steps in order, skipping steps already
// recorded completed. Each step runs in its own transaction and leaves a
// MigrationTask history row in a terminal state.
func RunMigrations(ctx context.Context, db *gorm.DB, logger *logrus.Logger, steps []MigrationStep) error {
	for _, step := range steps {
		var existing models.MigrationTask
		err := db.WithContext(ctx).Where("name = ?", step.Name).First(&existing).Error
		if err == nil && existing.Status == models.MigrationStatusCompleted {
			continue
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		task := existing
		if task.ID == 0 {
			task = models.MigrationTask{Name: step.Name, Version: step.Version}
		}
		task.Status = models.MigrationStatusRunning
		task.RollbackAvailable = step.Down != nil
		task.StartedAt = &now
		task.ErrorMessage = nil
		task.FinishedAt = nil
		if err := db.WithContext(ctx).Save(&task).Error; err != nil {
			return err
		}

		upErr := db.WithContext(ctx).Transaction(step.Up)
		finished := time.Now().UTC()
		task.FinishedAt = &finished
		if upErr != nil {
			msg := upErr.Error()
			task.Status = models.MigrationStatusFailed
			task.ErrorMessage = &msg
			_ = db.WithContext(ctx).Save(&task).Error
			return fmt.Errorf("migration %s failed: %w", step.Name, upErr)
		}
		task.Status = models.MigrationStatusCompleted
		if err := db.WithContext(ctx).Save(&task).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"field":     "Migrations",
				"migration": step.Name,
				"version":   step.Version,
			}).Info("migration applied")
		}
	}
	return nil
}

// RollbackMigration runs a completed step's Down and flips its history row to
// rolled_back. History rows are never deleted.
func RollbackMigration(ctx context.Context, db *gorm.DB, logger *logrus.Logger, steps []MigrationStep, name string) error {
	var step *MigrationStep
	for i := range steps {
		if steps[i].Name == name {
			step = &steps[i]
			break
		}
	}
	if step == nil {
		return fmt.Errorf("unknown migration %s", name)
	}
	if step.Down == nil {
		return fmt.Errorf("migration %s has no rollback", name)
	}

	var task models.MigrationTask
	if err := db.WithContext(ctx).Where("name = ?", name).First(&task).Error; err != nil {
		return err
	}
	if task.Status != models.MigrationStatusCompleted {
		return fmt.Errorf("migration %s is %s, only completed migrations can roll back", name, task.Status)
	}

	if err := db.WithContext(ctx).Transaction(step.Down); err != nil {
		return fmt.Errorf("rollback of %s failed: %w", name, err)
	}
	now := time.Now().UTC()
	if err := db.WithContext(ctx).Model(&models.MigrationTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":      models.MigrationStatusRolledBack,
			"finished_at": now,
		}).Error; err != nil {
		return err
	}
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":     "Migrations",
			"migration": name,
		}).Info("migration rolled back")
	}
	return nil
}
