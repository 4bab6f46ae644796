package workflow

import (
	"context"
	"errors"
	"strconv"
	"time"

	"bitbucket.org/mmagritech/farm_backend/config"
	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const handlerFeedingCreation = "feeding_record_creation"

// FeedingDeduction is one ingredient's planned consumption for a feeding.
type FeedingDeduction struct {
	MaterialName string
	Quantity     decimal.Decimal
}

// PlanFeedingDeductions expands a feeding amount over the formula's
// ingredient ratios. Ratios are percentages; consumed = amount * ratio / 100.
// Zero and negative results are dropped. Ingredient names are normalized to
// match stored material names, which are kept lower-trimmed.
func PlanFeedingDeductions(amount decimal.Decimal, ingredients []models.FeedFormulaIngredient) []FeedingDeduction {
	out := make([]FeedingDeduction, 0, len(ingredients))
	for _, ing := range ingredients {
		qty := utils.PercentOf(amount, ing.Ratio)
		if !qty.IsPositive() {
			continue
		}
		out = append(out, FeedingDeduction{
			MaterialName: utils.NormalizeName(ing.MaterialName),
			Quantity:     qty,
		})
	}
	return out
}

// HandleFeedingRecordCreation depletes inventory according to the feeding
// record's formula. By default short-stock ingredients are skipped with a
// warning (partial fulfilment); FEEDING_DEDUCTION_STRICT=true rejects the
// whole record instead.
func (p *Pipeline) HandleFeedingRecordCreation(ctx context.Context, callerTx *gorm.DB, recordId int) error {
	farmId, operatorId, err := farmAndOperator(ctx)
	if err != nil {
		return err
	}

	evt := NewDataFlowEvent(ctx, farmId, "feeding", "inventory", "feeding_created",
		map[string]int{"record_id": recordId})

	mode := DeductModeSkip
	if config.FeedingDeductionStrict() {
		mode = DeductModeReject
	}

	alreadyDone := false
	err = p.runInTransaction(ctx, callerTx, func(tx *gorm.DB) error {
		record, err := models.GetFeedingRecordForPropagation(tx, farmId, recordId)
		if err != nil {
			return notFoundAsPrecondition(err, "feeding record %d not found", recordId)
		}
		if record.PropagatedAt != nil {
			alreadyDone = true
			return nil
		}
		skip, err := BeginIdempotency(tx, farmId, handlerFeedingCreation, strconv.Itoa(recordId))
		if err != nil {
			return err
		}
		if skip {
			alreadyDone = true
			return nil
		}

		formula, err := models.GetFeedFormulaWithIngredients(tx, farmId, record.FormulaId)
		if err != nil {
			return notFoundAsPrecondition(err, "feed formula %d for record %d not found", record.FormulaId, recordId)
		}

		for _, ded := range PlanFeedingDeductions(record.Amount, formula.Ingredients) {
			material, err := models.GetMaterialByName(tx, farmId, ded.MaterialName)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					if p.Logger != nil {
						p.Logger.WithFields(logrus.Fields{
							"field":     "FeedingWorkflow",
							"farm_id":   farmId,
							"record_id": recordId,
							"material":  ded.MaterialName,
						}).Warn("formula ingredient has no matching material; skipped")
					}
					continue
				}
				return err
			}
			if _, err := DeductStock(tx, p.Logger, StockMovement{
				FarmId:          farmId,
				MaterialId:      material.ID,
				BaseId:          record.BaseId,
				Quantity:        ded.Quantity,
				ReferenceType:   "feeding_record",
				ReferenceId:     record.ID,
				ReferenceItemId: 0,
				Remark:          "feeding deduction " + formula.Name,
				OperatorId:      operatorId,
			}, mode); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.FeedingRecord{}).
			Where("id = ?", record.ID).
			Update("propagated_at", now).Error; err != nil {
			return err
		}
		if err := MarkIdempotencySucceeded(tx, farmId, handlerFeedingCreation, strconv.Itoa(recordId)); err != nil {
			return err
		}
		return p.Events.Record(tx, evt)
	})
	if err != nil {
		p.Events.RecordFailure(ctx, p.DB, p.Logger, evt, err)
		_ = MarkIdempotencyFailed(p.DB.WithContext(ctx), farmId, handlerFeedingCreation, strconv.Itoa(recordId), err)
		return err
	}
	if alreadyDone && p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"field":     "FeedingWorkflow",
			"farm_id":   farmId,
			"record_id": recordId,
		}).Info("feeding record already propagated; skipped")
	}
	return nil
}
