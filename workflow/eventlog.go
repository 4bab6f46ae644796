package workflow

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const DefaultEventRingCapacity = 512

// EventLog records cross-module notifications. Durable rows live in the
// data_flow_events table (written inside the producing transaction); a small
// bounded ring of recent terminal events backs cheap ops reads. The ring is
// capped and evicts oldest — it is observability, not a work queue.
type EventLog struct {
	mu       sync.Mutex
	ring     []models.DataFlowEvent
	capacity int
}

func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultEventRingCapacity
	}
	return &EventLog{capacity: capacity}
}

// NewDataFlowEvent builds a PENDING event with a fresh event id and the
// context's correlation id. Payload marshal errors degrade to a nil payload;
// the event record must never block the business write.
func NewDataFlowEvent(ctx context.Context, farmId, sourceModule, targetModule, eventType string, payload any) *models.DataFlowEvent {
	var raw []byte
	if payload != nil {
		if s, err := utils.MarshalToJSON(payload); err == nil {
			raw = []byte(s)
		}
	}
	return &models.DataFlowEvent{
		EventId:       uuid.NewString(),
		FarmId:        farmId,
		SourceModule:  sourceModule,
		TargetModule:  targetModule,
		EventType:     eventType,
		Payload:       raw,
		Status:        models.EventStatusPending,
		CorrelationId: utils.CorrelationIdFromContextOrNew(ctx),
	}
}

// Record writes the PENDING event row inside the producing transaction, so
// the event exists iff the side effects committed. The drain worker
// finalizes it afterwards.
func (l *EventLog) Record(tx *gorm.DB, evt *models.DataFlowEvent) error {
	return tx.Create(evt).Error
}

// RecordFailure writes a terminal FAILED event outside the (rolled back)
// business transaction. Best effort: a failure to record the failure is
// logged and swallowed so it never masks the original error.
func (l *EventLog) RecordFailure(ctx context.Context, db *gorm.DB, logger *logrus.Logger, evt *models.DataFlowEvent, cause error) {
	now := time.Now().UTC()
	msg := cause.Error()
	evt.Status = models.EventStatusFailed
	evt.ErrorMessage = &msg
	evt.ProcessedAt = &now
	if err := db.WithContext(ctx).Create(evt).Error; err != nil {
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"field":    "EventLog",
				"farm_id":  evt.FarmId,
				"event_id": evt.EventId,
			}).Error("failed to record failure event: " + err.Error())
		}
		return
	}
	l.Append(*evt)
}

// Append pushes a terminal event into the ring, evicting the oldest entry
// once capacity is reached.
func (l *EventLog) Append(evt models.DataFlowEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring = append(l.ring, evt)
	if len(l.ring) > l.capacity {
		l.ring = l.ring[len(l.ring)-l.capacity:]
	}
}

// Recent returns up to limit ring entries, newest first.
func (l *EventLog) Recent(limit int) []models.DataFlowEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.ring) {
		limit = len(l.ring)
	}
	out := make([]models.DataFlowEvent, 0, limit)
	for i := len(l.ring) - 1; i >= len(l.ring)-limit; i-- {
		out = append(out, l.ring[i])
	}
	return out
}

func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ring)
}
