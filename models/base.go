package models

import "time"

// Base is a physical farm site (场区): cattle barns and material stores hang
// off a base. Referential target for Cattle.BaseId and Inventory.BaseId.
type Base struct {
	ID        int       `gorm:"primary_key" json:"id"`
	FarmId    string    `gorm:"size:64;index;not null" json:"farm_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Address   string    `gorm:"size:500" json:"address"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
