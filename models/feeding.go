package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeedFormula struct {
	ID          int                     `gorm:"primary_key" json:"id"`
	FarmId      string                  `gorm:"size:64;index;not null" json:"farm_id"`
	Name        string                  `gorm:"size:255;not null" json:"name"`
	Description string                  `gorm:"size:500" json:"description"`
	Ingredients []FeedFormulaIngredient `gorm:"foreignKey:FormulaId" json:"ingredients"`
	CreatedAt   time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

// FeedFormulaIngredient names a material by business name and the percentage
// of the feeding amount it contributes. Ratios are percent values (60 = 60%).
type FeedFormulaIngredient struct {
	ID           int             `gorm:"primary_key" json:"id"`
	FormulaId    int             `gorm:"index;not null" json:"formula_id"`
	MaterialName string          `gorm:"size:255;not null" json:"material_name"`
	Ratio        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"ratio"`
}

type FeedingRecord struct {
	ID           int             `gorm:"primary_key" json:"id"`
	FarmId       string          `gorm:"size:64;index;not null" json:"farm_id"`
	FormulaId    int             `gorm:"index;not null" json:"formula_id"`
	BaseId       int             `gorm:"index;not null" json:"base_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	FeedingDate  time.Time       `json:"feeding_date"`
	OperatorId   int             `json:"operator_id"`
	PropagatedAt *time.Time      `json:"propagated_at"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetFeedingRecordForPropagation(tx *gorm.DB, farmId string, id int) (*FeedingRecord, error) {
	var rec FeedingRecord
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("farm_id = ? AND id = ?", farmId, id).
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func GetFeedFormulaWithIngredients(tx *gorm.DB, farmId string, id int) (*FeedFormula, error) {
	var formula FeedFormula
	if err := tx.Where("farm_id = ? AND id = ?", farmId, id).First(&formula).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("formula_id = ?", id).Order("id ASC").Find(&formula.Ingredients).Error; err != nil {
		return nil, err
	}
	return &formula, nil
}
