package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmagritech/farm_backend/config"
	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/utils"
	"bitbucket.org/mmagritech/farm_backend/workflow"
)

// Re-runs propagation for completed orders that never propagated (crashed
// before the marker write, imported historical data, etc.). Safe to run
// repeatedly: the handlers skip anything already propagated.
func main() {
	farmID := flag.String("farm-id", "", "Required: farm id")
	dryRun := flag.Bool("dry-run", true, "List candidates only (no writes)")
	unlock := flag.Bool("unlock-stuck", false, "Also reset PROCESSING events with no live worker back to PENDING")
	flag.Parse()

	if strings.TrimSpace(*farmID) == "" {
		fmt.Fprintln(os.Stderr, "--farm-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()

	ctx := utils.SetFarmIdInContext(context.Background(), *farmID)
	ctx = utils.SetUserNameInContext(ctx, "System")
	pipeline := workflow.NewPipeline(db, logger)

	var purchaseIds []int
	if err := db.WithContext(ctx).Model(&models.PurchaseOrder{}).
		Where("farm_id = ? AND status = ? AND propagated_at IS NULL", *farmID, models.OrderStatusCompleted).
		Order("id ASC").
		Pluck("id", &purchaseIds).Error; err != nil {
		fmt.Fprintf(os.Stderr, "scan purchase orders: %v\n", err)
		os.Exit(1)
	}
	var salesIds []int
	if err := db.WithContext(ctx).Model(&models.SalesOrder{}).
		Where("farm_id = ? AND status = ? AND propagated_at IS NULL", *farmID, models.OrderStatusCompleted).
		Order("id ASC").
		Pluck("id", &salesIds).Error; err != nil {
		fmt.Fprintf(os.Stderr, "scan sales orders: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("unpropagated: purchase=%d sales=%d\n", len(purchaseIds), len(salesIds))
	if *dryRun {
		for _, id := range purchaseIds {
			fmt.Printf("  purchase order %d\n", id)
		}
		for _, id := range salesIds {
			fmt.Printf("  sales order %d\n", id)
		}
		fmt.Println("dry run; re-run with --dry-run=false to backfill")
		return
	}

	var failed int
	for _, id := range purchaseIds {
		if err := pipeline.HandlePurchaseOrderCompletion(ctx, nil, id); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  purchase order %d: %v\n", id, err)
		}
	}
	for _, id := range salesIds {
		if err := pipeline.HandleSalesOrderCompletion(ctx, nil, id); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  sales order %d: %v\n", id, err)
		}
	}

	if *unlock {
		res := db.WithContext(ctx).Model(&models.DataFlowEvent{}).
			Where("farm_id = ? AND status = ? AND locked_at < NOW() - INTERVAL 5 MINUTE", *farmID, models.EventStatusProcessing).
			Updates(map[string]interface{}{
				"status":    models.EventStatusPending,
				"locked_at": nil,
				"locked_by": nil,
			})
		if res.Error != nil {
			fmt.Fprintf(os.Stderr, "unlock stuck events: %v\n", res.Error)
			os.Exit(1)
		}
		fmt.Printf("unlocked %d stuck events\n", res.RowsAffected)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d orders failed to backfill\n", failed)
		os.Exit(1)
	}
	fmt.Println("backfill complete")
}
