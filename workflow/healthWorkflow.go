package workflow

import (
	"context"

	"bitbucket.org/mmagritech/farm_backend/models"
	"gorm.io/gorm"
)

// HandleHealthRecordUpdate re-derives the owning animal's health status after
// a health record changes. The derivation is idempotent, so no propagation
// marker is needed: re-running for the same record converges on the same
// stored status and only the first run writes an audit event.
func (p *Pipeline) HandleHealthRecordUpdate(ctx context.Context, callerTx *gorm.DB, recordId int) error {
	farmId, operatorId, err := farmAndOperator(ctx)
	if err != nil {
		return err
	}

	evt := NewDataFlowEvent(ctx, farmId, "health", "cattle", "health_record_updated",
		map[string]int{"record_id": recordId})

	changed := false
	err = p.runInTransaction(ctx, callerTx, func(tx *gorm.DB) error {
		record, err := models.GetHealthRecord(tx, farmId, recordId)
		if err != nil {
			return notFoundAsPrecondition(err, "health record %d not found", recordId)
		}
		_, didChange, err := RecomputeCattleHealthStatus(tx, farmId, record.CattleId, operatorId)
		if err != nil {
			return err
		}
		changed = didChange
		if !changed {
			return nil
		}
		return p.Events.Record(tx, evt)
	})
	if err != nil {
		p.Events.RecordFailure(ctx, p.DB, p.Logger, evt, err)
		return err
	}
	return nil
}
