package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Snapshot sources
const (
	SnapshotManual    = "manual"
	SnapshotScheduled = "scheduled"
)

// InventorySnapshot is an immutable point-in-time bundle of quantities.
// TakenByID is nil for snapshots taken by the scheduler.
type InventorySnapshot struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TakenAt   time.Time      `gorm:"not null;index" json:"takenAt"`
	TakenByID *string        `gorm:"type:varchar(36);index" json:"takenById"`
	Notes     *string        `json:"notes"`
	Source    string         `gorm:"not null;default:'manual'" json:"source"`
	Summary   datatypes.JSON `json:"summary"`
	CreatedAt time.Time      `json:"createdAt"`

	// Relations
	TakenBy *User            `gorm:"foreignKey:TakenByID" json:"takenBy,omitempty"`
	Entries []InventoryEntry `gorm:"foreignKey:SnapshotID" json:"entries,omitempty"`

	// EntryCount is filled by list queries, not persisted
	EntryCount int `gorm:"-" json:"entryCount"`
}

// TableName specifies the table name for InventorySnapshot model
func (InventorySnapshot) TableName() string {
	return "inventory_snapshots"
}

// BeforeCreate assigns a UUID
func (s *InventorySnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// InventoryEntry is one (location, product, quantity) line of a snapshot
type InventoryEntry struct {
	ID         string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SnapshotID string `gorm:"type:varchar(36);not null;index" json:"snapshotId"`
	LocationID string `gorm:"type:varchar(36);not null;index" json:"locationId"`
	ProductID  string `gorm:"type:varchar(36);not null;index" json:"productId"`
	Quantity   int    `gorm:"not null" json:"quantity"`

	// Relations
	Location *StorageLocation `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Product  *ProductVariant  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName specifies the table name for InventoryEntry model
func (InventoryEntry) TableName() string {
	return "inventory_entries"
}

// BeforeCreate assigns a UUID
func (e *InventoryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
