package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseOrder struct {
	ID          int         `gorm:"primary_key" json:"id"`
	FarmId      string      `gorm:"size:64;index;not null" json:"farm_id"`
	OrderNumber string      `gorm:"size:100;index;not null" json:"order_number"`
	SupplierId  int         `gorm:"index" json:"supplier_id"`
	BaseId      int         `gorm:"index;not null" json:"base_id"`
	Status      OrderStatus `gorm:"size:20;index;default:pending" json:"status"`
	OrderDate   time.Time   `json:"order_date"`
	// PropagatedAt is the processed marker for downstream propagation.
	// Checked-and-set inside the same transaction as the side effects, so a
	// retried completion call cannot double-apply line items.
	PropagatedAt *time.Time          `json:"propagated_at"`
	Items        []PurchaseOrderItem `gorm:"foreignKey:OrderId" json:"items"`
	CreatedAt    time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderItem struct {
	ID               int              `gorm:"primary_key" json:"id"`
	FarmId           string           `gorm:"size:64;index;not null" json:"farm_id"`
	OrderId          int              `gorm:"index;not null" json:"order_id"`
	ItemType         PurchaseItemType `gorm:"size:20;not null" json:"item_type"`
	MaterialId       *int             `gorm:"index" json:"material_id"`
	Description      string           `gorm:"size:500" json:"description"`
	Quantity         decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"quantity"`
	ReceivedQuantity *decimal.Decimal `gorm:"type:decimal(20,4)" json:"received_quantity"`
	UnitPrice        decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
}

// GetPurchaseOrderForPropagation loads the order with items, locking the
// order row so concurrent propagation attempts serialize on it.
func GetPurchaseOrderForPropagation(tx *gorm.DB, farmId string, id int) (*PurchaseOrder, error) {
	var order PurchaseOrder
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("farm_id = ? AND id = ?", farmId, id).
		First(&order).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("order_id = ?", id).Order("id ASC").Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
