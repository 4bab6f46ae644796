package workflow

import (
	"testing"

	"bitbucket.org/mmagritech/farm_backend/models"
)

func TestDeriveHealthStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []models.HealthRecordStatus
		want     models.HealthStatus
	}{
		{"no records", nil, models.HealthStatusHealthy},
		{"all completed", []models.HealthRecordStatus{
			models.HealthRecordStatusCompleted,
			models.HealthRecordStatusCompleted,
		}, models.HealthStatusHealthy},
		{"ongoing wins", []models.HealthRecordStatus{
			models.HealthRecordStatusCompleted,
			models.HealthRecordStatusOngoing,
		}, models.HealthStatusSick},
		{"ongoing beats treatment", []models.HealthRecordStatus{
			models.HealthRecordStatusTreatment,
			models.HealthRecordStatusOngoing,
		}, models.HealthStatusSick},
		{"treatment without ongoing", []models.HealthRecordStatus{
			models.HealthRecordStatusCompleted,
			models.HealthRecordStatusTreatment,
		}, models.HealthStatusTreatment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveHealthStatus(tc.statuses); got != tc.want {
				t.Errorf("DeriveHealthStatus(%v) = %s, want %s", tc.statuses, got, tc.want)
			}
		})
	}
}

// Recomputing from the same records must always yield the same status,
// regardless of record order.
func TestDeriveHealthStatus_OrderInsensitive(t *testing.T) {
	a := []models.HealthRecordStatus{
		models.HealthRecordStatusTreatment,
		models.HealthRecordStatusOngoing,
		models.HealthRecordStatusCompleted,
	}
	b := []models.HealthRecordStatus{
		models.HealthRecordStatusCompleted,
		models.HealthRecordStatusTreatment,
		models.HealthRecordStatusOngoing,
	}
	if DeriveHealthStatus(a) != DeriveHealthStatus(b) {
		t.Errorf("status depends on record order: %s vs %s", DeriveHealthStatus(a), DeriveHealthStatus(b))
	}
	// Idempotent: repeated derivation is stable.
	first := DeriveHealthStatus(a)
	for i := 0; i < 3; i++ {
		if got := DeriveHealthStatus(a); got != first {
			t.Fatalf("derivation not stable: %s then %s", first, got)
		}
	}
}
