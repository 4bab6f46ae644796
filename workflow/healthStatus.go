package workflow

import (
	"bitbucket.org/mmagritech/farm_backend/models"
	"gorm.io/gorm"
)

// DeriveHealthStatus computes an animal's health status from its health
// records: any ongoing record wins, then treatment, else healthy. Pure and
// order-insensitive, so recomputing is always idempotent.
func DeriveHealthStatus(statuses []models.HealthRecordStatus) models.HealthStatus {
	hasTreatment := false
	for _, s := range statuses {
		switch s {
		case models.HealthRecordStatusOngoing:
			return models.HealthStatusSick
		case models.HealthRecordStatusTreatment:
			hasTreatment = true
		}
	}
	if hasTreatment {
		return models.HealthStatusTreatment
	}
	return models.HealthStatusHealthy
}

// RecomputeCattleHealthStatus re-derives and persists the status for one
// animal inside tx. Returns the new status and whether it changed.
func RecomputeCattleHealthStatus(tx *gorm.DB, farmId string, cattleId int, operatorId int) (models.HealthStatus, bool, error) {
	cattle, err := models.GetCattleForUpdate(tx, farmId, cattleId)
	if err != nil {
		return "", false, err
	}
	statuses, err := models.ListHealthRecordStatuses(tx, farmId, cattleId)
	if err != nil {
		return "", false, err
	}
	derived := DeriveHealthStatus(statuses)
	if derived == cattle.HealthStatus {
		return derived, false, nil
	}
	if err := tx.Model(&models.Cattle{}).
		Where("id = ?", cattle.ID).
		Update("health_status", derived).Error; err != nil {
		return "", false, err
	}
	event := models.CattleEvent{
		FarmId:      farmId,
		CattleId:    cattle.ID,
		EventType:   models.CattleEventTypeHealthChange,
		Description: string(cattle.HealthStatus) + " -> " + string(derived),
		OperatorId:  operatorId,
	}
	if err := tx.Create(&event).Error; err != nil {
		return "", false, err
	}
	return derived, true, nil
}
