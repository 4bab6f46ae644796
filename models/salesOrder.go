package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SalesOrder struct {
	ID           int              `gorm:"primary_key" json:"id"`
	FarmId       string           `gorm:"size:64;index;not null" json:"farm_id"`
	OrderNumber  string           `gorm:"size:100;index;not null" json:"order_number"`
	CustomerId   int              `gorm:"index" json:"customer_id"`
	Status       OrderStatus      `gorm:"size:20;index;default:pending" json:"status"`
	OrderDate    time.Time        `json:"order_date"`
	PropagatedAt *time.Time       `json:"propagated_at"`
	Items        []SalesOrderItem `gorm:"foreignKey:OrderId" json:"items"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type SalesOrderItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	FarmId    string          `gorm:"size:64;index;not null" json:"farm_id"`
	OrderId   int             `gorm:"index;not null" json:"order_id"`
	CattleId  int             `gorm:"index;not null" json:"cattle_id"`
	SalePrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"sale_price"`
}

func GetSalesOrderForPropagation(tx *gorm.DB, farmId string, id int) (*SalesOrder, error) {
	var order SalesOrder
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
