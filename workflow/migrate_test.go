package workflow

import (
	"context"
	"strings"
	"testing"
)

func TestRollbackMigrationUnknownStep(t *testing.T) {
	err := RollbackMigration(context.Background(), nil, nil, DataMigrations(), "no_such_step")
	if err == nil || !strings.Contains(err.Error(), "unknown migration") {
		t.Errorf("err = %v, want unknown migration", err)
	}
}

func TestRollbackMigrationWithoutDown(t *testing.T) {
	err := RollbackMigration(context.Background(), nil, nil, DataMigrations(), "backfill_cattle_health_status")
	if err == nil || !strings.Contains(err.Error(), "no rollback") {
		t.Errorf("err = %v, want no rollback", err)
	}
}

func TestDataMigrationsNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, step := range DataMigrations() {
		if step.Name == "" || step.Up == nil {
			t.Errorf("step %q missing name or Up", step.Name)
		}
		if seen[step.Name] {
			t.Errorf("duplicate migration name %q", step.Name)
		}
		seen[step.Name] = true
	}
}
