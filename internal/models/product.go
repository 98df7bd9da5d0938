package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductVariant is a trackable good (a pallet type)
type ProductVariant struct {
	ID             string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name           string              `gorm:"not null" json:"name"`
	Code           *string             `gorm:"index" json:"code"`
	ArticleNumber  *string             `json:"articleNumber"`
	Category       string              `gorm:"not null;default:'finished';index" json:"category"`
	Color          *string             `json:"color"`
	ResourceWeight decimal.NullDecimal `gorm:"type:numeric(12,3)" json:"resourceWeight"` // kg per pallet
	IsActive       bool                `gorm:"default:true" json:"isActive"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt      `gorm:"index" json:"-"`
}

// TableName specifies the table name for ProductVariant model
func (ProductVariant) TableName() string {
	return "product_variants"
}

// BeforeCreate assigns a UUID and the default category
func (p *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Category == "" {
		p.Category = CategoryFinished
	}
	return nil
}
