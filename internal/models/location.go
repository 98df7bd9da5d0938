package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StorageLocation is a storage zone on the floor plan. Locations form a forest:
// root areas (floors, halls) with nested sub-zones. Capacity is only meaningful
// on leaves.
type StorageLocation struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string         `gorm:"not null;index" json:"name"`
	Description *string        `json:"description"`
	ParentID    *string        `gorm:"type:varchar(36);index" json:"parentId"`
	X           int            `gorm:"default:0" json:"x"`
	Y           int            `gorm:"default:0" json:"y"`
	Width       int            `gorm:"default:1" json:"width"`
	Height      int            `gorm:"default:1" json:"height"`
	Color       *string        `json:"color"`
	Capacity    *int           `json:"capacity"` // pallets, leaf only
	IsActive    bool           `gorm:"default:true" json:"isActive"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Parent   *StorageLocation  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []StorageLocation `gorm:"foreignKey:ParentID" json:"children,omitempty"`

	// ChildCount is filled by list queries, not persisted
	ChildCount int `gorm:"-" json:"childCount"`
}

// TableName specifies the table name for StorageLocation model
func (StorageLocation) TableName() string {
	return "storage_locations"
}

// BeforeCreate assigns a UUID when the caller did not
func (l *StorageLocation) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
