package main

import (
	"context"
	"time"

	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventDrainWorker finalizes PENDING data flow events. The producing
// transaction already applied the side effects, so draining an event is just
// flipping it COMPLETED and surfacing it in the recent-events ring. Claims
// use SKIP LOCKED plus a stale-lock takeover, so multiple replicas can run
// the worker concurrently without double-finalizing.
type EventDrainWorker struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Events    *workflow.EventLog
	WorkerID  string
	BatchSize int
	Interval  time.Duration
	LockTTL   time.Duration
}

func NewEventDrainWorker(db *gorm.DB, logger *logrus.Logger, events *workflow.EventLog) *EventDrainWorker {
	return &EventDrainWorker{
		DB:        db,
		Logger:    logger,
		Events:    events,
		WorkerID:  "drain-" + time.Now().Format("20060102-150405.000"),
		BatchSize: 50,
		Interval:  2 * time.Second,
		LockTTL:   30 * time.Second,
	}
}

func (w *EventDrainWorker) Run(ctx context.Context) {
	if w == nil || w.DB == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.drainOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.Interval):
		}
	}
}

// claimQuery selects the events this worker may take: unclaimed PENDING rows,
// plus PROCESSING rows whose lock expired because a worker died between its
// claim committing and the finalize pass.
func (w *EventDrainWorker) claimQuery(tx *gorm.DB, staleBefore time.Time) *gorm.DB {
	return tx.
		Where("status IN (?, ?)", models.EventStatusPending, models.EventStatusProcessing).
		Where("(locked_at IS NULL OR locked_at <= ?)", staleBefore).
		Order("id ASC").
		Limit(w.BatchSize).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
}

func (w *EventDrainWorker) drainOnce(ctx context.Context) {
	now := time.Now().UTC()
	staleBefore := now.Add(-w.LockTTL)

	var claimed []models.DataFlowEvent
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := w.claimQuery(tx, staleBefore).Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		for i := range claimed {
			claimed[i].Status = models.EventStatusProcessing
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &w.WorkerID
			if err := tx.Model(&models.DataFlowEvent{}).
				Where("id = ?", claimed[i].ID).
				Updates(map[string]interface{}{
					"status":    models.EventStatusProcessing,
					"locked_at": claimed[i].LockedAt,
					"locked_by": claimed[i].LockedBy,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if w.Logger != nil {
			w.Logger.WithFields(logrus.Fields{
				"field": "EventDrainWorker",
			}).Error("claim failed: " + err.Error())
		}
		return
	}
	if len(claimed) == 0 {
		return
	}

	for _, evt := range claimed {
		processedAt := time.Now().UTC()
		err := w.DB.WithContext(ctx).Model(&models.DataFlowEvent{}).
			Where("id = ? AND status = ?", evt.ID, models.EventStatusProcessing).
			Updates(map[string]interface{}{
				"status":       models.EventStatusCompleted,
				"processed_at": processedAt,
				"locked_at":    nil,
				"locked_by":    nil,
			}).Error
		if err != nil {
			if w.Logger != nil {
				w.Logger.WithFields(logrus.Fields{
					"field":    "EventDrainWorker",
					"farm_id":  evt.FarmId,
					"event_id": evt.EventId,
				}).Error("finalize failed: " + err.Error())
			}
			continue
		}
		evt.Status = models.EventStatusCompleted
		evt.ProcessedAt = &processedAt
		evt.LockedAt = nil
		evt.LockedBy = nil
		if w.Events != nil {
			w.Events.Append(evt)
		}
	}
}
