// Package models contains domain entities for the product image upload service
package models

import (
	"time"

	"github.com/thisisfaizi/product-image-upload/utils"
	"gorm.io/gorm"
)

// Product types as exposed by the storefront catalog
const (
	ProductTypeSimple    = "simple"
	ProductTypeVariable  = "variable"
	ProductTypeGrouped   = "grouped"
	ProductTypeExternal  = "external"
	ProductTypeAffiliate = "affiliate"
)

// Product statuses
const (
	ProductStatusPublish = "publish"
	ProductStatusDraft   = "draft"
	ProductStatusPrivate = "private"
)

// Product is a catalog entry shoppers can attach custom images to
type Product struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	SKU       *string   `gorm:"type:varchar(100);uniqueIndex" json:"sku,omitempty"`
	Type      string    `gorm:"type:varchar(20);not null;default:'simple';index" json:"type"`
	Status    string    `gorm:"type:varchar(20);not null;default:'publish';index" json:"status"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.Type == "" {
		p.Type = ProductTypeSimple
	}
	if p.Status == "" {
		p.Status = ProductStatusPublish
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// AcceptsCustomImages reports whether the storefront can put this product in a cart.
// External and affiliate products link elsewhere and never reach the cart.
func (p *Product) AcceptsCustomImages() bool {
	return p.Type != ProductTypeExternal && p.Type != ProductTypeAffiliate
}

// ProductFilter represents filter criteria for product queries
type ProductFilter struct {
	ID     *uint   `json:"id,omitempty"`
	Type   *string `json:"type,omitempty"`
	Status *string `json:"status,omitempty"`
	Name   *string `json:"name,omitempty"`
}
