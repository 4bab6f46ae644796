package main

import (
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmagritech/farm_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestClaimQueryReclaimsStaleProcessing(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	w := &EventDrainWorker{BatchSize: 50}
	cutoff := time.Now().UTC().Add(-30 * time.Second)

	var claimed []models.DataFlowEvent
	stmt := w.claimQuery(db, cutoff).Find(&claimed).Statement
	sql := stmt.SQL.String()

	if !strings.Contains(sql, "status IN") {
		t.Errorf("claim sql selects a single status only: %s", sql)
	}
	if !strings.Contains(sql, "locked_at IS NULL OR locked_at <=") {
		t.Errorf("claim sql lacks the expired-lock takeover: %s", sql)
	}
	if !strings.Contains(sql, "FOR UPDATE SKIP LOCKED") {
		t.Errorf("claim sql lacks the skip-locked claim: %s", sql)
	}

	// A crashed worker leaves its row PROCESSING with a stale lock; the claim
	// must cover that status, not just PENDING.
	seen := map[interface{}]bool{}
	for _, v := range stmt.Vars {
		seen[v] = true
	}
	if !seen[models.EventStatusPending] || !seen[models.EventStatusProcessing] {
		t.Errorf("claim vars = %v, want both PENDING and PROCESSING", stmt.Vars)
	}
}
