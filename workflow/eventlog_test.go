package workflow

import (
	"context"
	"fmt"
	"testing"

	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/utils"
)

func TestEventLog_RecentNewestFirst(t *testing.T) {
	l := NewEventLog(10)
	for i := 1; i <= 3; i++ {
		l.Append(models.DataFlowEvent{ID: i, EventType: fmt.Sprintf("e%d", i)})
	}
	recent := l.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("got %d events, want 3", len(recent))
	}
	for i, want := range []int{3, 2, 1} {
		if recent[i].ID != want {
			t.Errorf("recent[%d].ID = %d, want %d", i, recent[i].ID, want)
		}
	}
}

func TestEventLog_CapacityEvictsOldest(t *testing.T) {
	l := NewEventLog(3)
	for i := 1; i <= 5; i++ {
		l.Append(models.DataFlowEvent{ID: i})
	}
	if l.Len() != 3 {
		t.Fatalf("len = %d, want 3", l.Len())
	}
	recent := l.Recent(3)
	// Events 1 and 2 evicted; newest first.
	for i, want := range []int{5, 4, 3} {
		if recent[i].ID != want {
			t.Errorf("recent[%d].ID = %d, want %d", i, recent[i].ID, want)
		}
	}
}

func TestEventLog_RecentLimit(t *testing.T) {
	l := NewEventLog(10)
	for i := 1; i <= 5; i++ {
		l.Append(models.DataFlowEvent{ID: i})
	}
	if got := len(l.Recent(2)); got != 2 {
		t.Errorf("Recent(2) returned %d events", got)
	}
	if got := len(l.Recent(99)); got != 5 {
		t.Errorf("Recent(99) returned %d events, want all 5", got)
	}
}

func TestNewEventLog_DefaultCapacity(t *testing.T) {
	l := NewEventLog(0)
	for i := 0; i < DefaultEventRingCapacity+50; i++ {
		l.Append(models.DataFlowEvent{ID: i})
	}
	if l.Len() != DefaultEventRingCapacity {
		t.Errorf("len = %d, want %d", l.Len(), DefaultEventRingCapacity)
	}
}

func TestNewDataFlowEvent(t *testing.T) {
	ctx := utils.SetCorrelationIdInContext(context.Background(), "cid-123")
	evt := NewDataFlowEvent(ctx, "farm-1", "purchase", "cattle", "order_completed",
		map[string]int{"order_id": 7})

	if evt.EventId == "" {
		t.Error("event id not assigned")
	}
	if evt.Status != models.EventStatusPending {
		t.Errorf("status = %s, want PENDING", evt.Status)
	}
	if evt.CorrelationId != "cid-123" {
		t.Errorf("correlation id = %s, want cid-123", evt.CorrelationId)
	}
	var payload map[string]int
	if err := utils.UnmarshalFromJSON(evt.Payload, &payload); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if payload["order_id"] != 7 {
		t.Errorf("payload = %s", evt.Payload)
	}

	// Without a context correlation id a fresh one is minted.
	evt2 := NewDataFlowEvent(context.Background(), "farm-1", "a", "b", "t", nil)
	if evt2.CorrelationId == "" {
		t.Error("correlation id not minted")
	}
	if evt2.EventId == evt.EventId {
		t.Error("event ids not unique")
	}
}
