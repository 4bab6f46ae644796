package workflow

import (
	"context"
	"strconv"
	"time"

	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const handlerSalesCompletion = "sales_order_completion"

// HandleSalesOrderCompletion marks every sold animal on a completed sales
// order as sold with the sale date and price, and writes a sale audit event
// per animal.
func (p *Pipeline) HandleSalesOrderCompletion(ctx context.Context, callerTx *gorm.DB, orderId int) error {
	farmId, operatorId, err := farmAndOperator(ctx)
	if err != nil {
		return err
	}

	evt := NewDataFlowEvent(ctx, farmId, "sales", "cattle", "sales_completed",
		map[string]int{"order_id": orderId})

	alreadyDone := false
	err = p.runInTransaction(ctx, callerTx, func(tx *gorm.DB) error {
		order, err := models.GetSalesOrderForPropagation(tx, farmId, orderId)
		if err != nil {
			return notFoundAsPrecondition(err, "sales order %d not found", orderId)
		}
		if order.Status != models.OrderStatusCompleted {
			return utils.PreconditionError("sales order %d status is %s, want %s", orderId, order.Status, models.OrderStatusCompleted)
		}
		if order.PropagatedAt != nil {
			alreadyDone = true
			return nil
		}
		skip, err := BeginIdempotency(tx, farmId, handlerSalesCompletion, strconv.Itoa(orderId))
		if err != nil {
			return err
		}
		if skip {
			alreadyDone = true
			return nil
		}

		saleDate := order.OrderDate
		for _, item := range order.Items {
			cattle, err := models.GetCattleForUpdate(tx, farmId, item.CattleId)
			if err != nil {
				return notFoundAsPrecondition(err, "cattle %d on sales order %d not found", item.CattleId, orderId)
			}
			if cattle.Status == models.CattleStatusSold {
				continue
			}
			if err := tx.Model(&models.Cattle{}).
				Where("id = ?", cattle.ID).
				Updates(map[string]interface{}{
					"status":     models.CattleStatusSold,
					"sale_date":  saleDate,
					"sale_price": item.SalePrice,
				}).Error; err != nil {
				return err
			}
			event := models.CattleEvent{
				FarmId:        farmId,
				CattleId:      cattle.ID,
				EventType:     models.CattleEventTypeSale,
				Description:   "sold via order " + order.OrderNumber,
				ReferenceType: "sales_order",
				ReferenceId:   order.ID,
				OperatorId:    operatorId,
			}
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.SalesOrder{}).
			Where("id = ?", order.ID).
			Update("propagated_at", now).Error; err != nil {
			return err
		}
		if err := MarkIdempotencySucceeded(tx, farmId, handlerSalesCompletion, strconv.Itoa(orderId)); err != nil {
			return err
		}
		return p.Events.Record(tx, evt)
	})
	if err != nil {
		p.Events.RecordFailure(ctx, p.DB, p.Logger, evt, err)
		_ = MarkIdempotencyFailed(p.DB.WithContext(ctx), farmId, handlerSalesCompletion, strconv.Itoa(orderId), err)
		return err
	}
	if alreadyDone && p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"field":    "SalesWorkflow",
			"farm_id":  farmId,
			"order_id": orderId,
		}).Info("sales order already propagated; skipped")
	}
	return nil
}
