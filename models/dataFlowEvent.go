package models

import (
	"context"
	"time"

	"bitbucket.org/mmagritech/farm_backend/config"
)

// Event statuses. PENDING/PROCESSING are transient; COMPLETED/FAILED terminal.
const (
	EventStatusPending    = "PENDING"
	EventStatusProcessing = "PROCESSING"
	EventStatusCompleted  = "COMPLETED"
	EventStatusFailed     = "FAILED"
)

// DataFlowEvent is the cross-module notification record. It is written inside
// the propagation handler's transaction (transactional outbox), so an event
// row exists iff its side effects committed. A background drain worker moves
// PENDING rows to a terminal status; the rows double as the operational
// event history.
type DataFlowEvent struct {
	ID            int        `gorm:"primary_key" json:"id"`
	EventId       string     `gorm:"size:64;uniqueIndex;not null" json:"event_id"`
	FarmId        string     `gorm:"size:64;index;not null" json:"farm_id"`
	SourceModule  string     `gorm:"size:50;index;not null" json:"source_module"`
	TargetModule  string     `gorm:"size:50;index;not null" json:"target_module"`
	EventType     string     `gorm:"size:50;index;not null" json:"event_type"`
	Payload       []byte     `gorm:"type:json" json:"payload"`
	Status        string     `gorm:"size:20;index;not null;default:PENDING" json:"status"`
	ErrorMessage  *string    `gorm:"type:text" json:"error_message"`
	CorrelationId string     `gorm:"size:64;index" json:"correlation_id"`
	LockedAt      *time.Time `json:"locked_at"`
	LockedBy      *string    `gorm:"size:100" json:"locked_by"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at"`
}

// EventHistory returns up to limit most-recent terminal events, newest first.
func EventHistory(ctx context.Context, farmId string, limit int) ([]DataFlowEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	db := config.GetDB()
	var events []DataFlowEvent
	err := db.WithContext(ctx).
		Where("farm_id = ? AND status IN (?)", farmId, []string{EventStatusCompleted, EventStatusFailed}).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// PendingEvents returns all events not yet in a terminal state.
func PendingEvents(ctx context.Context, farmId string) ([]DataFlowEvent, error) {
	db := config.GetDB()
	var events []DataFlowEvent
	err := db.WithContext(ctx).
		Where("farm_id = ? AND status IN (?)", farmId, []string{EventStatusPending, EventStatusProcessing}).
		Order("id ASC").
		Find(&events).Error
	return events, err
}
