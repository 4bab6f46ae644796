package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Cattle struct {
	ID           int             `gorm:"primary_key" json:"id"`
	FarmId       string          `gorm:"size:64;not null;index:uniq_ear_tag,unique" json:"farm_id"`
	EarTag       string          `gorm:"size:100;not null;index:uniq_ear_tag,unique" json:"ear_tag"`
	Breed        string          `gorm:"size:100" json:"breed"`
	Gender       string          `gorm:"size:10" json:"gender"`
	Weight       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weight"`
	BaseId       *int            `gorm:"index" json:"base_id"`
	HealthStatus HealthStatus    `gorm:"size:20;default:healthy" json:"health_status"`
	Status       CattleStatus    `gorm:"size:20;default:active;index" json:"status"`
	// SourceOrderItemId records which purchase order item created this animal.
	// Unique: re-running purchase propagation cannot create it twice.
	SourceOrderItemId *int             `gorm:"uniqueIndex" json:"source_order_item_id"`
	PurchaseDate      *time.Time       `json:"purchase_date"`
	PurchasePrice     *decimal.Decimal `gorm:"type:decimal(20,4)" json:"purchase_price"`
	SaleDate          *time.Time       `json:"sale_date"`
	SalePrice         *decimal.Decimal `gorm:"type:decimal(20,4)" json:"sale_price"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// CattleEvent is the per-animal audit trail (purchase, sale, health changes).
type CattleEvent struct {
	ID            int             `gorm:"primary_key" json:"id"`
	FarmId        string          `gorm:"size:64;index;not null" json:"farm_id"`
	CattleId      int             `gorm:"index;not null" json:"cattle_id"`
	EventType     CattleEventType `gorm:"size:30;index;not null" json:"event_type"`
	Description   string          `gorm:"size:500" json:"description"`
	ReferenceType string          `gorm:"size:30" json:"reference_type"`
	ReferenceId   int             `json:"reference_id"`
	OperatorId    int             `json:"operator_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func GetCattle(tx *gorm.DB, farmId string, id int) (*Cattle, error) {
	var c Cattle
	if err := tx.Where("farm_id = ? AND id = ?", farmId, id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCattleForUpdate locks the animal row for the remainder of the tx.
func GetCattleForUpdate(tx *gorm.DB, farmId string, id int) (*Cattle, error) {
	var c Cattle
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("farm_id = ? AND id = ?", farmId, id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
