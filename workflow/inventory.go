package workflow

import (
	"fmt"

	"bitbucket.org/mmagritech/farm_backend/config"
	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DeductMode selects the policy when stock is short of the requested
// quantity. The two policies are intentionally both kept: feeding
// auto-deduction skips, explicit outbound movements reject.
type DeductMode string

const (
	DeductModeReject DeductMode = "reject"
	DeductModeSkip   DeductMode = "skip"
)

// StockMovement describes one inbound or outbound quantity against a
// material at a base, with the document that caused it.
type StockMovement struct {
	FarmId          string
	MaterialId      int
	BaseId          int
	Quantity        decimal.Decimal
	UnitPrice       *decimal.Decimal
	ReferenceType   string
	ReferenceId     int
	ReferenceItemId int
	Remark          string
	OperatorId      int
}

func stockCacheKey(farmId string, materialId, baseId int) string {
	return fmt.Sprintf("stock:%s:%d:%d", farmId, materialId, baseId)
}

// AddStock locks-or-creates the inventory row, increments current_stock and
// appends an inbound transaction. Must run inside the caller's tx.
func AddStock(tx *gorm.DB, logger *logrus.Logger, mv StockMovement) (*models.Inventory, error) {
	inventory, isNew, err := models.FirstOrCreateInventory(tx, mv.FarmId, mv.MaterialId, mv.BaseId)
	if err != nil {
		return nil, err
	}
	if isNew && logger != nil {
		logger.WithFields(logrus.Fields{
			"field":       "Inventory",
			"farm_id":     mv.FarmId,
			"material_id": mv.MaterialId,
			"base_id":     mv.BaseId,
		}).Info("created inventory row at zero stock")
	}
	if err := tx.Exec("UPDATE inventories SET current_stock = current_stock + ? WHERE id = ?",
		mv.Quantity, inventory.ID).Error; err != nil {
		return nil, err
	}
	txn := models.InventoryTransaction{
		FarmId:          mv.FarmId,
		InventoryId:     inventory.ID,
		Type:            models.InventoryTransactionTypeInbound,
		Quantity:        mv.Quantity,
		UnitPrice:       mv.UnitPrice,
		ReferenceType:   mv.ReferenceType,
		ReferenceId:     mv.ReferenceId,
		ReferenceItemId: mv.ReferenceItemId,
		Remark:          mv.Remark,
		OperatorId:      mv.OperatorId,
	}
	if err := tx.Create(&txn).Error; err != nil {
		return nil, err
	}
	// Cached stock readings are stale after any movement.
	_ = config.RemoveRedisKey(stockCacheKey(mv.FarmId, mv.MaterialId, mv.BaseId))
	return inventory, nil
}

// DeductStock applies an outbound movement. The inventory row is locked FOR
// UPDATE before the stock check, so concurrent deductions for the same
// (farm, material, base) serialize and current_stock can never go negative.
// Returns applied=false when mode is DeductModeSkip and stock is short.
func DeductStock(tx *gorm.DB, logger *logrus.Logger, mv StockMovement, mode DeductMode) (applied bool, err error) {
	inventory, _, err := models.FirstOrCreateInventory(tx, mv.FarmId, mv.MaterialId, mv.BaseId)
	if err != nil {
		return false, err
	}
	if inventory.CurrentStock.LessThan(mv.Quantity) {
		if mode == DeductModeSkip {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"field":       "Inventory",
					"farm_id":     mv.FarmId,
					"material_id": mv.MaterialId,
					"base_id":     mv.BaseId,
					"available":   inventory.CurrentStock.String(),
					"requested":   mv.Quantity.String(),
				}).Warn("insufficient stock; movement skipped")
			}
			return false, nil
		}
		return false, fmt.Errorf("%w: material_id=%d base_id=%d available=%s requested=%s",
			utils.ErrInsufficientStock, mv.MaterialId, mv.BaseId,
			inventory.CurrentStock.String(), mv.Quantity.String())
	}
	if err := tx.Exec("UPDATE inventories SET current_stock = current_stock - ? WHERE id = ?",
		mv.Quantity, inventory.ID).Error; err != nil {
		return false, err
	}
	txn := models.InventoryTransaction{
		FarmId:          mv.FarmId,
		InventoryId:     inventory.ID,
		Type:            models.InventoryTransactionTypeOutbound,
		Quantity:        mv.Quantity,
		UnitPrice:       mv.UnitPrice,
		ReferenceType:   mv.ReferenceType,
		ReferenceId:     mv.ReferenceId,
		ReferenceItemId: mv.ReferenceItemId,
		Remark:          mv.Remark,
		OperatorId:      mv.OperatorId,
	}
	if err := tx.Create(&txn).Error; err != nil {
		return false, err
	}
	_ = config.RemoveRedisKey(stockCacheKey(mv.FarmId, mv.MaterialId, mv.BaseId))
	return true, nil
}
