package workflow

import (
	"testing"

	"bitbucket.org/mmagritech/farm_backend/models"
)

func reportWith(statuses ...models.CheckStatus) *models.ConsistencyReport {
	report := &models.ConsistencyReport{}
	for _, s := range statuses {
		report.Results = append(report.Results, models.ConsistencyCheckResult{Status: s})
	}
	report.TotalChecks = len(report.Results)
	return report
}

func TestQualityScore(t *testing.T) {
	cases := []struct {
		name     string
		statuses []models.CheckStatus
		want     int
	}{
		{"all passed", []models.CheckStatus{models.CheckStatusPassed, models.CheckStatusPassed}, 100},
		{"half passed", []models.CheckStatus{models.CheckStatusPassed, models.CheckStatusFailed}, 50},
		{"warnings count against", []models.CheckStatus{models.CheckStatusPassed, models.CheckStatusWarning}, 50},
		{"all failed", []models.CheckStatus{models.CheckStatusFailed, models.CheckStatusFailed}, 0},
		{"floors", []models.CheckStatus{models.CheckStatusPassed, models.CheckStatusPassed, models.CheckStatusFailed}, 66},
		{"empty report", nil, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := QualityScore(reportWith(tc.statuses...))
			if d.Score != tc.want {
				t.Errorf("score = %d, want %d", d.Score, tc.want)
			}
			if d.TotalChecks != len(tc.statuses) {
				t.Errorf("total = %d, want %d", d.TotalChecks, len(tc.statuses))
			}
		})
	}
}

// Degrading any passed check can only lower the score.
func TestQualityScore_Monotonic(t *testing.T) {
	base := []models.CheckStatus{
		models.CheckStatusPassed, models.CheckStatusPassed,
		models.CheckStatusPassed, models.CheckStatusPassed,
	}
	baseScore := QualityScore(reportWith(base...)).Score
	for i := range base {
		for _, worse := range []models.CheckStatus{models.CheckStatusWarning, models.CheckStatusFailed} {
			degraded := append([]models.CheckStatus{}, base...)
			degraded[i] = worse
			if got := QualityScore(reportWith(degraded...)).Score; got > baseScore {
				t.Errorf("degrading check %d to %s raised score %d -> %d", i, worse, baseScore, got)
			}
		}
	}
}

func TestOverallStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []models.CheckStatus
		want     models.ReportStatus
	}{
		{"all passed", []models.CheckStatus{models.CheckStatusPassed}, models.ReportStatusHealthy},
		{"warning only", []models.CheckStatus{models.CheckStatusPassed, models.CheckStatusWarning}, models.ReportStatusWarning},
		{"any failure is critical", []models.CheckStatus{models.CheckStatusWarning, models.CheckStatusFailed}, models.ReportStatusCritical},
		{"empty", nil, models.ReportStatusHealthy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := reportWith(tc.statuses...)
			if got := overallStatus(report.Results); got != tc.want {
				t.Errorf("overallStatus = %s, want %s", got, tc.want)
			}
		})
	}
}
