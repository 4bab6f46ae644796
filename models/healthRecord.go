package models

import (
	"time"

	"gorm.io/gorm"
)

type HealthRecord struct {
	ID           int                `gorm:"primary_key" json:"id"`
	FarmId       string             `gorm:"size:64;index;not null" json:"farm_id"`
	CattleId     int                `gorm:"index;not null" json:"cattle_id"`
	Status       HealthRecordStatus `gorm:"size:20;index;not null" json:"status"`
	Diagnosis    string             `gorm:"size:500" json:"diagnosis"`
	Treatment    string             `gorm:"size:500" json:"treatment"`
	VetId        int                `json:"vet_id"`
	RecordDate   time.Time          `json:"record_date"`
	ResolvedDate *time.Time         `json:"resolved_date"`
	CreatedAt    time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetHealthRecord(tx *gorm.DB, farmId string, id int) (*HealthRecord, error) {
	var rec HealthRecord
	if err := tx.Where("farm_id = ? AND id = ?", farmId, id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListHealthRecordStatuses returns the statuses of all health records for one
// animal. Input to the derived health-status rule.
func ListHealthRecordStatuses(tx *gorm.DB, farmId string, cattleId int) ([]HealthRecordStatus, error) {
	var statuses []HealthRecordStatus
	if err := tx.Model(&HealthRecord{}).
		Where("farm_id = ? AND cattle_id = ?", farmId, cattleId).
		Order("id ASC").
		Pluck("status", &statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}
