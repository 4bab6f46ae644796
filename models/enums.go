package models

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type CattleStatus string

const (
	CattleStatusActive CattleStatus = "active"
	CattleStatusSold   CattleStatus = "sold"
	CattleStatusDead   CattleStatus = "dead"
)

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusSick      HealthStatus = "sick"
	HealthStatusTreatment HealthStatus = "treatment"
)

type HealthRecordStatus string

const (
	HealthRecordStatusOngoing   HealthRecordStatus = "ongoing"
	HealthRecordStatusTreatment HealthRecordStatus = "treatment"
	HealthRecordStatusCompleted HealthRecordStatus = "completed"
)

type PurchaseItemType string

const (
	PurchaseItemTypeCattle    PurchaseItemType = "cattle"
	PurchaseItemTypeMaterial  PurchaseItemType = "material"
	PurchaseItemTypeEquipment PurchaseItemType = "equipment"
)

type InventoryTransactionType string

const (
	InventoryTransactionTypeInbound  InventoryTransactionType = "inbound"
	InventoryTransactionTypeOutbound InventoryTransactionType = "outbound"
)

type CattleEventType string

const (
	CattleEventTypePurchase     CattleEventType = "purchase"
	CattleEventTypeSale         CattleEventType = "sale"
	CattleEventTypeHealthChange CattleEventType = "health_change"
)
