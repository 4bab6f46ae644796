package workflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const handlerPurchaseCompletion = "purchase_order_completion"

// HandlePurchaseOrderCompletion propagates a completed purchase order into
// downstream entities: cattle line items become animal records, material
// items increment inventory, equipment items are logged for manual follow-up.
// Safe to retry: the order's PropagatedAt marker and a durable idempotency
// key are checked-and-set inside the same transaction as the side effects.
func (p *Pipeline) HandlePurchaseOrderCompletion(ctx context.Context, callerTx *gorm.DB, orderId int) error {
	farmId, operatorId, err := farmAndOperator(ctx)
	if err != nil {
		return err
	}

	evt := NewDataFlowEvent(ctx, farmId, "purchase", "inventory", "purchase_completed",
		map[string]int{"order_id": orderId})

	alreadyDone := false
	err = p.runInTransaction(ctx, callerTx, func(tx *gorm.DB) error {
		order, err := models.GetPurchaseOrderForPropagation(tx, farmId, orderId)
		if err != nil {
			return notFoundAsPrecondition(err, "purchase order %d not found", orderId)
		}
		if order.Status != models.OrderStatusCompleted {
			return utils.PreconditionError("purchase order %d status is %s, want %s", orderId, order.Status, models.OrderStatusCompleted)
		}
		if order.PropagatedAt != nil {
			alreadyDone = true
			return nil
		}
		skip, err := BeginIdempotency(tx, farmId, handlerPurchaseCompletion, strconv.Itoa(orderId))
		if err != nil {
			return err
		}
		if skip {
			alreadyDone = true
			return nil
		}

		for i := range order.Items {
			if err := p.applyPurchaseItem(tx, order, &order.Items[i], operatorId); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.PurchaseOrder{}).
			Where("id = ?", order.ID).
			Update("propagated_at", now).Error; err != nil {
			return err
		}
		if err := MarkIdempotencySucceeded(tx, farmId, handlerPurchaseCompletion, strconv.Itoa(orderId)); err != nil {
			return err
		}
		return p.Events.Record(tx, evt)
	})
	if err != nil {
		p.Events.RecordFailure(ctx, p.DB, p.Logger, evt, err)
		_ = MarkIdempotencyFailed(p.DB.WithContext(ctx), farmId, handlerPurchaseCompletion, strconv.Itoa(orderId), err)
		return err
	}
	if alreadyDone && p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"field":    "PurchaseWorkflow",
			"farm_id":  farmId,
			"order_id": orderId,
		}).Info("purchase order already propagated; skipped")
	}
	return nil
}

func (p *Pipeline) applyPurchaseItem(tx *gorm.DB, order *models.PurchaseOrder, item *models.PurchaseOrderItem, operatorId int) error {
	switch item.ItemType {
	case models.PurchaseItemTypeCattle:
		return p.createPurchasedCattle(tx, order, item, operatorId)
	case models.PurchaseItemTypeMaterial:
		if item.MaterialId == nil {
			return fmt.Errorf("purchase item %d has type material but no material_id", item.ID)
		}
		// Prefer the received quantity when the warehouse recorded one.
		qty := item.Quantity
		if item.ReceivedQuantity != nil {
			qty = *item.ReceivedQuantity
		}
		_, err := AddStock(tx, p.Logger, StockMovement{
			FarmId:          order.FarmId,
			MaterialId:      *item.MaterialId,
			BaseId:          order.BaseId,
			Quantity:        qty,
			UnitPrice:       &item.UnitPrice,
			ReferenceType:   "purchase_order",
			ReferenceId:     order.ID,
			ReferenceItemId: item.ID,
			Remark:          "purchase receipt " + order.OrderNumber,
			OperatorId:      operatorId,
		})
		return err
	case models.PurchaseItemTypeEquipment:
		// Equipment intake stays manual; only leave a trace in the logs.
		if p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{
				"field":    "PurchaseWorkflow",
				"farm_id":  order.FarmId,
				"order_id": order.ID,
				"item_id":  item.ID,
			}).Warn("equipment item requires manual registration")
		}
		return nil
	default:
		return fmt.Errorf("purchase item %d has unknown item_type %q", item.ID, item.ItemType)
	}
}

func (p *Pipeline) createPurchasedCattle(tx *gorm.DB, order *models.PurchaseOrder, item *models.PurchaseOrderItem, operatorId int) error {
	purchaseDate := order.OrderDate
	cattle := models.Cattle{
		FarmId: order.FarmId,
		// Provisional tag until the farm assigns a physical ear tag.
		EarTag:            fmt.Sprintf("PO%d-%d", order.ID, item.ID),
		BaseId:            &order.BaseId,
		HealthStatus:      models.HealthStatusHealthy,
		Status:            models.CattleStatusActive,
		SourceOrderItemId: &item.ID,
		PurchaseDate:      &purchaseDate,
		PurchasePrice:     &item.UnitPrice,
	}
	if err := tx.Create(&cattle).Error; err != nil {
		return err
	}
	event := models.CattleEvent{
		FarmId:        order.FarmId,
		CattleId:      cattle.ID,
		EventType:     models.CattleEventTypePurchase,
		Description:   "purchased via order " + order.OrderNumber,
		ReferenceType: "purchase_order",
		ReferenceId:   order.ID,
		OperatorId:    operatorId,
	}
	return tx.Create(&event).Error
}
