package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Material struct {
	ID        int       `gorm:"primary_key" json:"id"`
	FarmId    string    `gorm:"size:64;not null;index:uniq_material_name,unique" json:"farm_id"`
	Name      string    `gorm:"size:255;not null;index:uniq_material_name,unique" json:"name"`
	Category  string    `gorm:"size:100" json:"category"`
	Unit      string    `gorm:"size:20" json:"unit"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Inventory is one material's stock level at one base. CurrentStock is the
// contended resource: it is only ever read+written under a FOR UPDATE lock
// inside the mutating transaction (requires read-committed + row locking).
type Inventory struct {
	ID           int             `gorm:"primary_key" json:"id"`
	FarmId       string          `gorm:"size:64;not null;index:uniq_inventory,unique" json:"farm_id"`
	MaterialId   int             `gorm:"not null;index:uniq_inventory,unique" json:"material_id"`
	BaseId       int             `gorm:"not null;index:uniq_inventory,unique" json:"base_id"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_stock"`
	MinStock     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"min_stock"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// InventoryTransaction is the append-only movement ledger behind CurrentStock.
type InventoryTransaction struct {
	ID              int                      `gorm:"primary_key" json:"id"`
	FarmId          string                   `gorm:"size:64;index;not null" json:"farm_id"`
	InventoryId     int                      `gorm:"index;not null" json:"inventory_id"`
	Type            InventoryTransactionType `gorm:"size:10;index;not null" json:"type"`
	Quantity        decimal.Decimal          `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice       *decimal.Decimal         `gorm:"type:decimal(20,4)" json:"unit_price"`
	ReferenceType   string                   `gorm:"size:30;index" json:"reference_type"`
	ReferenceId     int                      `gorm:"index" json:"reference_id"`
	ReferenceItemId int                      `gorm:"index" json:"reference_item_id"`
	Remark          string                   `gorm:"size:500" json:"remark"`
	OperatorId      int                      `json:"operator_id"`
	CreatedAt       time.Time                `gorm:"autoCreateTime" json:"created_at"`
}

// FirstOrCreateInventory finds (locking FOR UPDATE) or creates the inventory
// row for a material at a base, starting at zero stock.
func FirstOrCreateInventory(tx *gorm.DB, farmId string, materialId int, baseId int) (*Inventory, bool, error) {
	inventory := Inventory{
		FarmId:     farmId,
		MaterialId: materialId,
		BaseId:     baseId,
	}
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("farm_id = ? AND material_id = ? AND base_id = ?", farmId, materialId, baseId).
		FirstOrCreate(&inventory)
	if result.Error != nil {
		return nil, false, result.Error
	}
	return &inventory, result.RowsAffected == 1, nil
}

func GetMaterialByName(tx *gorm.DB, farmId string, name string) (*Material, error) {
	var m Material
	if err := tx.Where("farm_id = ? AND name = ?", farmId, name).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
