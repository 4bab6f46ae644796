package workflow

import (
	"sync"
	"testing"
)

// NOTE: These tests are intentionally DB-free. They validate the intended
// propagation semantics: at-least-once delivery is safe because every handler
// runs behind a durable idempotency key scoped to (farm, handler, message).
// Full DB integration tests need an environment that can run MySQL.

type fakeDispatcher struct {
	mu    sync.Mutex
	seen  map[string]bool
	calls int
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{seen: map[string]bool{}}
}

// dispatch mirrors BeginIdempotency/MarkIdempotencySucceeded: the first
// delivery of a key runs fn, every later delivery is skipped.
func (d *fakeDispatcher) dispatch(farmId, handlerName, messageId string, fn func()) {
	key := farmId + "|" + handlerName + "|" + messageId
	d.mu.Lock()
	if d.seen[key] {
		d.mu.Unlock()
		return
	}
	d.seen[key] = true
	d.mu.Unlock()

	fn()

	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
}

func TestDuplicateDelivery_IsProcessedOnce(t *testing.T) {
	d := newFakeDispatcher()
	var applied int
	for i := 0; i < 5; i++ {
		d.dispatch("farm-1", "purchase_order_completion", "42", func() { applied++ })
	}
	if applied != 1 {
		t.Errorf("handler applied %d times, want 1", applied)
	}
}

func TestConcurrentDuplicates_AreProcessedOnce(t *testing.T) {
	d := newFakeDispatcher()
	var mu sync.Mutex
	applied := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.dispatch("farm-1", "feeding_record_creation", "7", func() {
				mu.Lock()
				applied++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()
	if applied != 1 {
		t.Errorf("handler applied %d times, want 1", applied)
	}
}

func TestDistinctMessages_AllProcessed(t *testing.T) {
	d := newFakeDispatcher()
	keys := []struct{ farm, handler, msg string }{
		{"farm-1", "purchase_order_completion", "1"},
		{"farm-1", "purchase_order_completion", "2"},
		{"farm-2", "purchase_order_completion", "1"},
		{"farm-1", "sales_order_completion", "1"},
	}
	var applied int
	for _, k := range keys {
		d.dispatch(k.farm, k.handler, k.msg, func() { applied++ })
	}
	if applied != len(keys) {
		t.Errorf("applied %d, want %d: scope must be (farm, handler, message)", applied, len(keys))
	}
}
