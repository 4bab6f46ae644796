package models

import "time"

type CheckStatus string

const (
	CheckStatusPassed  CheckStatus = "passed"
	CheckStatusFailed  CheckStatus = "failed"
	CheckStatusWarning CheckStatus = "warning"
)

type ReportStatus string

const (
	ReportStatusHealthy  ReportStatus = "healthy"
	ReportStatusWarning  ReportStatus = "warning"
	ReportStatusCritical ReportStatus = "critical"
)

// ConsistencyCheckResult is one row of a consistency report. Ephemeral: built
// fresh on every run, never persisted.
type ConsistencyCheckResult struct {
	Module          string      `json:"module"`
	Table           string      `json:"table"`
	CheckType       string      `json:"check_type"`
	Status          CheckStatus `json:"status"`
	Message         string      `json:"message"`
	AffectedRecords int         `json:"affected_records"`
	FindingIds      []int       `json:"finding_ids,omitempty"`
}

type ConsistencyReport struct {
	OverallStatus ReportStatus             `json:"overall_status"`
	TotalChecks   int                      `json:"total_checks"`
	Results       []ConsistencyCheckResult `json:"results"`
	CorrelationId string                   `json:"correlation_id"`
	GeneratedAt   time.Time                `json:"generated_at"`
}

// ConsistencyFinding is a persisted, fixable violation detected by a check
// run. Fix operations address findings by id; resolved findings keep the row
// with ResolvedAt set.
type ConsistencyFinding struct {
	ID            int        `gorm:"primary_key" json:"id"`
	FarmId        string     `gorm:"size:64;index;not null" json:"farm_id"`
	CheckType     string     `gorm:"size:50;index;not null" json:"check_type"`
	EntityType    string     `gorm:"size:50;index;not null" json:"entity_type"`
	EntityId      int        `gorm:"index;not null" json:"entity_id"`
	Details       string     `gorm:"type:text" json:"details"`
	CorrelationId string     `gorm:"size:64;index" json:"correlation_id"`
	ResolvedAt    *time.Time `json:"resolved_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// FixOutcome is the per-finding result of a fix operation.
type FixOutcome struct {
	FindingId int    `json:"finding_id"`
	CheckType string `json:"check_type"`
	Fixed     bool   `json:"fixed"`
	Message   string `json:"message"`
}
