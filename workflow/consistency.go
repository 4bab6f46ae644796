package workflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	CheckUniqueEarTag         = "unique_ear_tag"
	CheckCattleBaseReference  = "cattle_base_reference"
	CheckInventoryMaterialRef = "inventory_material_reference"
	CheckHealthStatusDrift    = "health_status_consistency"
	CheckStockNonNegative     = "stock_non_negative"
	CheckPurchasePropagation  = "purchase_propagation"
)

type consistencyCheck struct {
	name string
	fn   func(ctx context.Context, db *gorm.DB, farmId string) (models.ConsistencyCheckResult, []models.ConsistencyFinding, error)
}

// RunFullConsistencyCheck scans the ledger for cross-entity violations and
// returns a fresh report. Checks are isolated: one check's internal error
// becomes a failed result row, the remaining checks still run. Fixable
// violations are persisted as findings addressed by FixInconsistencies.
func (p *Pipeline) RunFullConsistencyCheck(ctx context.Context, farmId string) (*models.ConsistencyReport, error) {
	cid := utils.CorrelationIdFromContextOrNew(ctx)
	now := time.Now().UTC()

	checks := []consistencyCheck{
		{CheckUniqueEarTag, checkUniqueEarTag},
		{CheckCattleBaseReference, checkCattleBaseReference},
		{CheckInventoryMaterialRef, checkInventoryMaterialReference},
		{CheckHealthStatusDrift, checkHealthStatusDrift},
		{CheckStockNonNegative, checkStockNonNegative},
		{CheckPurchasePropagation, checkPurchasePropagation},
	}

	report := &models.ConsistencyReport{
		CorrelationId: cid,
		GeneratedAt:   now,
	}

	for _, check := range checks {
		result, findings, err := check.fn(ctx, p.DB, farmId)
		if err != nil {
			result = models.ConsistencyCheckResult{
				Module:    result.Module,
				Table:     result.Table,
				CheckType: check.name,
				Status:    models.CheckStatusFailed,
				Message:   "check error: " + err.Error(),
			}
		}
		for i := range findings {
			findings[i].FarmId = farmId
			findings[i].CheckType = check.name
			findings[i].CorrelationId = cid
			if createErr := p.DB.WithContext(ctx).Create(&findings[i]).Error; createErr == nil {
				result.FindingIds = append(result.FindingIds, findings[i].ID)
			}
		}
		report.Results = append(report.Results, result)
	}

	report.TotalChecks = len(report.Results)
	report.OverallStatus = overallStatus(report.Results)

	if p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"field":          "ConsistencyCheck",
			"farm_id":        farmId,
			"correlation_id": cid,
			"total_checks":   report.TotalChecks,
			"overall_status": report.OverallStatus,
		}).Info("full consistency check completed")
	}
	return report, nil
}

func overallStatus(results []models.ConsistencyCheckResult) models.ReportStatus {
	status := models.ReportStatusHealthy
	for _, r := range results {
		switch r.Status {
		case models.CheckStatusFailed:
			return models.ReportStatusCritical
		case models.CheckStatusWarning:
			status = models.ReportStatusWarning
		}
	}
	return status
}

// QualityScoreDetail is the 0-100 data quality summary derived from a report.
type QualityScoreDetail struct {
	Score       int `json:"score"`
	TotalChecks int `json:"total_checks"`
	Passed      int `json:"passed"`
	Warnings    int `json:"warnings"`
	Failed      int `json:"failed"`
}

// QualityScore is 100 * passed / total, floored. Monotonic: turning a passed
// check into a warning or failure can only lower the score. An empty report
// scores 100 (nothing checked, nothing wrong).
func QualityScore(report *models.ConsistencyReport) QualityScoreDetail {
	d := QualityScoreDetail{TotalChecks: len(report.Results)}
	for _, r := range report.Results {
		switch r.Status {
		case models.CheckStatusPassed:
			d.Passed++
		case models.CheckStatusWarning:
			d.Warnings++
		case models.CheckStatusFailed:
			d.Failed++
		}
	}
	if d.TotalChecks == 0 {
		d.Score = 100
		return d
	}
	d.Score = 100 * d.Passed / d.TotalChecks
	return d
}

func checkUniqueEarTag(ctx context.Context, db *gorm.DB, farmId string) (models.ConsistencyCheckResult, []models.ConsistencyFinding, error) {
	result := models.ConsistencyCheckResult{
		Module: "cattle", Table: "cattles", CheckType: CheckUniqueEarTag,
	}

	type dupRow struct {
		Id     int
		EarTag string
		KeepId int
		Cnt    int
	}
	var dups []dupRow
	err := db.WithContext(ctx).Raw(`
		SELECT c.id, c.ear_tag, d.keep_id, d.cnt
		FROM cattles c
		JOIN (
			SELECT ear_tag, MIN(id) AS keep_id, COUNT(*) AS cnt
			FROM cattles
			WHERE farm_id = ?
			GROUP BY ear_tag
			HAVING COUNT(*) > 1
		) d ON c.ear_tag = d.ear_tag
		WHERE c.farm_id = ?
		ORDER BY c.id ASC
	`, farmId, farmId).Scan(&dups).Error
	if err != nil {
		return result, nil, err
	}
	if len(dups) == 0 {
		result.Status = models.CheckStatusPassed
		result.Message = "all ear tags unique"
		return result, nil, nil
	}

	// One finding per duplicate beyond the kept (oldest) animal.
	var findings []models.ConsistencyFinding
	for _, d := range dups {
		if d.Id == d.KeepId {
			continue
		}
		findings = append(findings, models.ConsistencyFinding{
			EntityType: "Cattle",
			EntityId:   d.Id,
			Details:    fmt.Sprintf("duplicate ear_tag %q (kept animal id=%d)", d.EarTag, d.KeepId),
		})
	}
	result.Status = models.CheckStatusFailed
	result.AffectedRecords = len(dups)
	result.Message = fmt.Sprintf("%d animals share duplicated ear tags", len(dups))
	return result, findings, nil
}

func checkCattleBaseReference(ctx context.Context, db *gorm.DB, farmId string) (models.ConsistencyCheckResult, []models.ConsistencyFinding, error) {
	result := models.ConsistencyCheckResult{
		Module: "cattle", Table: "cattles", CheckType: CheckCattleBaseReference,
	}
	var count int64
	err := db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM cattles c
		WHERE c.farm_id = ?
		  AND c.base_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM bases b WHERE b.id = c.base_id AND b.farm_id = c.farm_id)
	`, farmId).Scan(&count).Error
	if err != nil {
		return result, nil, err
	}
	if count == 0 {
		result.Status = models.CheckStatusPassed
		result.Message = "all cattle reference existing bases"
		return result, nil, nil
	}
	result.Status = models.CheckStatusFailed
	result.AffectedRecords = int(count)
	result.Message = fmt.Sprintf("%d animals reference a missing base", count)
	return result, nil, nil
}

func checkInventoryMaterialReference(ctx context.Context, db *gorm.DB, farmId string) (models.ConsistencyCheckResult, []models.ConsistencyFinding, error) {
	result := models.ConsistencyCheckResult{
		Module: "inventory", Table: "inventories", CheckType: CheckInventoryMaterialRef,
	}
	var count int64
	err := db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM inventories i
		WHERE i.farm_id = ?
		  AND NOT EXISTS (SELECT 1 FROM materials m WHERE m.id = i.material_id AND m.farm_id = i.farm_id)
	`, farmId).Scan(&count).Error
	if err != nil {
		return result, nil, err
	}
	if count == 0 {
		result.Status = models.CheckStatusPassed
		result.Message = "all inventory rows reference existing materials"
		return result, nil, nil
	}
	result.Status = models.CheckStatusFailed
	result.AffectedRecords = int(count)
	result.Message = fmt.Sprintf("%d inventory rows reference a missing material", count)
	return result, nil, nil
}

func checkHealthStatusDrift(ctx context.Context, db *gorm.DB, farmId string) (models.ConsistencyCheckResult, []models.ConsistencyFinding, error) {
	result := models.ConsistencyCheckResult{
		Module: "health", Table: "cattles", CheckType: CheckHealthStatusDrift,
	}
	type row struct {
		Id             int
		HealthStatus   string
		OngoingCount   int
		TreatmentCount int
	}
	var rows []row
	err := db.WithContext(ctx).Raw(`
		SELECT c.id, c.health_status,
			SUM(CASE WHEN hr.status = 'ongoing' THEN 1 ELSE 0 END) AS ongoing_count,
			SUM(CASE WHEN hr.status = 'treatment' THEN 1 ELSE 0 END) AS treatment_count
		FROM cattles c
		LEFT JOIN health_records hr ON hr.cattle_id = c.id AND hr.farm_id = c.farm_id
		WHERE c.farm_id = ? AND c.status = 'active'
		GROUP BY c.id, c.health_status
	`, farmId).Scan(&rows).Error
	if err != nil {
		return result, nil, err
	}

	var findings []models.ConsistencyFinding
	for _, r := range rows {
		expected := models.HealthStatusHealthy
		if r.OngoingCount > 0 {
			expected = models.HealthStatusSick
		} else if r.TreatmentCount > 0 {
			expected = models.HealthStatusTreatment
		}
		if string(expected) != r.HealthStatus {
			findings = append(findings, models.ConsistencyFinding{
				EntityType: "Cattle",
				EntityId:   r.Id,
				Details:    fmt.Sprintf("stored health_status=%s, derived=%s", r.HealthStatus, expected),
			})
		}
	}
	if len(findings) == 0 {
		result.Status = models.CheckStatusPassed
		result.Message = "stored health statuses match derivation"
		return result, nil, nil
	}
	result.Status = models.CheckStatusFailed
	result.AffectedRecords = len(findings)
	result.Message = fmt.Sprintf("%d animals have drifted health status", len(findings))
	return result, findings, nil
}

func checkStockNonNegative(ctx context.Context, db *gorm.DB, farmId string) (models.ConsistencyCheckResult, []models.ConsistencyFinding, error) {
	result := models.ConsistencyCheckResult{
		Module: "inventory", Table: "inventories", CheckType: CheckStockNonNegative,
	}
	type row struct {
		Id           int
		CurrentStock string
	}
	var rows []row
	err := db.WithContext(ctx).Raw(`
		SELECT id, CAST(current_stock AS CHAR) AS current_stock
		FROM inventories
		WHERE farm_id = ? AND current_stock < 0
	`, farmId).Scan(&rows).Error
	if err != nil {
		return result, nil, err
	}
	if len(rows) == 0 {
		result.Status = models.CheckStatusPassed
		result.Message = "no negative stock"
		return result, nil, nil
	}
	var findings []models.ConsistencyFinding
	for _, r := range rows {
		findings = append(findings, models.ConsistencyFinding{
			EntityType: "Inventory",
			EntityId:   r.Id,
			Details:    "current_stock=" + r.CurrentStock,
		})
	}
	result.Status = models.CheckStatusFailed
	result.AffectedRecords = len(rows)
	result.Message = fmt.Sprintf("%d inventory rows have negative stock", len(rows))
	return result, findings, nil
}

func checkPurchasePropagation(ctx context.Context, db *gorm.DB, farmId string) (models.ConsistencyCheckResult, []models.ConsistencyFinding, error) {
	result := models.ConsistencyCheckResult{
		Module: "purchase", Table: "purchase_orders", CheckType: CheckPurchasePropagation,
	}
	// Grace period: a just-completed order may not be propagated yet.
	var count int64
	err := db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM purchase_orders
		WHERE farm_id = ?
		  AND status = 'completed'
		  AND propagated_at IS NULL
		  AND updated_at < ?
	`, farmId, time.Now().UTC().Add(-10*time.Minute)).Scan(&count).Error
	if err != nil {
		return result, nil, err
	}
	if count == 0 {
		result.Status = models.CheckStatusPassed
		result.Message = "all completed purchase orders propagated"
		return result, nil, nil
	}
	result.Status = models.CheckStatusWarning
	result.AffectedRecords = int(count)
	result.Message = fmt.Sprintf("%d completed purchase orders never propagated", count)
	return result, nil, nil
}

// FixInconsistencies applies the predefined remediation per check type to
// each finding id. Unknown ids and unfixable check types are reported in the
// outcome, never silently dropped. Each fix runs in its own transaction.
func (p *Pipeline) FixInconsistencies(ctx context.Context, farmId string, findingIds []int) ([]models.FixOutcome, error) {
	outcomes := make([]models.FixOutcome, 0, len(findingIds))
	for _, id := range findingIds {
		outcomes = append(outcomes, p.fixFinding(ctx, farmId, id))
	}
	return outcomes, nil
}

func (p *Pipeline) fixFinding(ctx context.Context, farmId string, findingId int) models.FixOutcome {
	outcome := models.FixOutcome{FindingId: findingId}

	var finding models.ConsistencyFinding
	if err := p.DB.WithContext(ctx).
		Where("id = ? AND farm_id = ? AND resolved_at IS NULL", findingId, farmId).
		First(&finding).Error; err != nil {
		outcome.Message = "finding not found or already resolved"
		return outcome
	}
	outcome.CheckType = finding.CheckType

	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch finding.CheckType {
		case CheckUniqueEarTag:
			newTag := gorm.Expr("CONCAT(ear_tag, ?)", "-D"+strconv.Itoa(finding.ID))
			if err := tx.Model(&models.Cattle{}).
				Where("id = ? AND farm_id = ?", finding.EntityId, farmId).
				Update("ear_tag", newTag).Error; err != nil {
				return err
			}
			outcome.Message = "ear tag suffixed to restore uniqueness"
		case CheckHealthStatusDrift:
			if _, _, err := RecomputeCattleHealthStatus(tx, farmId, finding.EntityId, 0); err != nil {
				return err
			}
			outcome.Message = "health status recomputed"
		case CheckStockNonNegative:
			var inv models.Inventory
			if err := tx.Where("id = ? AND farm_id = ?", finding.EntityId, farmId).First(&inv).Error; err != nil {
				return err
			}
			if inv.CurrentStock.IsNegative() {
				if err := tx.Model(&models.Inventory{}).
					Where("id = ?", inv.ID).
					Update("current_stock", 0).Error; err != nil {
					return err
				}
				adjust := models.InventoryTransaction{
					FarmId:        farmId,
					InventoryId:   inv.ID,
					Type:          models.InventoryTransactionTypeInbound,
					Quantity:      inv.CurrentStock.Neg(),
					ReferenceType: "consistency_fix",
					ReferenceId:   finding.ID,
					Remark:        "negative stock clamped to zero",
				}
				if err := tx.Create(&adjust).Error; err != nil {
					return err
				}
			}
			outcome.Message = "negative stock clamped to zero"
		default:
			outcome.Message = "no automated fix for check type " + finding.CheckType
			return nil
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.ConsistencyFinding{}).
			Where("id = ?", finding.ID).
			Update("resolved_at", now).Error; err != nil {
			return err
		}
		outcome.Fixed = true
		return nil
	})
	if err != nil {
		outcome.Fixed = false
		outcome.Message = "fix failed: " + err.Error()
	}
	return outcome
}
