package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CurrentInventory is the ledger head: the latest observed quantity of one
// product at one location. At most one row exists per (location, product).
type CurrentInventory struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	LocationID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_current_location_product" json:"locationId"`
	ProductID       string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_current_location_product;index" json:"productId"`
	Quantity        int       `gorm:"not null;default:0" json:"quantity"`
	LastCheckedAt   time.Time `gorm:"not null" json:"lastCheckedAt"`
	LastCheckedByID string    `gorm:"type:varchar(36);not null;index" json:"lastCheckedById"`

	// Relations
	Location      *StorageLocation `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Product       *ProductVariant  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	LastCheckedBy *User            `gorm:"foreignKey:LastCheckedByID" json:"lastCheckedBy,omitempty"`
}

// TableName specifies the table name for CurrentInventory model
func (CurrentInventory) TableName() string {
	return "current_inventory"
}

// BeforeCreate assigns a UUID
func (c *CurrentInventory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// InventoryLog is one accepted quantity change. Rows are append-only.
// PreviousQty is nil when the pair was recorded for the first time.
type InventoryLog struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	LocationID  string    `gorm:"type:varchar(36);not null;index" json:"locationId"`
	ProductID   string    `gorm:"type:varchar(36);not null;index" json:"productId"`
	PreviousQty *int      `json:"previousQty"`
	NewQty      int       `gorm:"not null" json:"newQty"`
	ChangedByID string    `gorm:"type:varchar(36);not null;index" json:"changedById"`
	ChangedAt   time.Time `gorm:"not null;index" json:"changedAt"`

	// Relations
	Location  *StorageLocation `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Product   *ProductVariant  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ChangedBy *User            `gorm:"foreignKey:ChangedByID" json:"changedBy,omitempty"`
}

// TableName specifies the table name for InventoryLog model
func (InventoryLog) TableName() string {
	return "inventory_logs"
}

// BeforeCreate assigns a UUID
func (l *InventoryLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// Delta is the signed quantity change this row records
func (l InventoryLog) Delta() int {
	if l.PreviousQty == nil {
		return l.NewQty
	}
	return l.NewQty - *l.PreviousQty
}
