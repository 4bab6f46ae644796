package models

import (
	"log"

	"bitbucket.org/mmagritech/farm_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Base{},
		&Cattle{}, &CattleEvent{},
		&Material{}, &Inventory{}, &InventoryTransaction{},
		&PurchaseOrder{}, &PurchaseOrderItem{},
		&SalesOrder{}, &SalesOrderItem{},
		&FeedFormula{}, &FeedFormulaIngredient{}, &FeedingRecord{},
		&HealthRecord{},
		&DataFlowEvent{},
		&IdempotencyKey{},
		&ConsistencyFinding{},
		&BackupInfo{},
		&MigrationTask{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
