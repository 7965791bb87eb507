package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/thisisfaizi/product-image-upload/utils"
	"gorm.io/gorm"
)

// Cart item statuses
const (
	CartItemStatusActive    = "active"
	CartItemStatusOrdered   = "ordered"
	CartItemStatusAbandoned = "abandoned"
)

// CartItem is a pending order line carrying the images uploaded for it
type CartItem struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID           uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	CustomerID     *uint          `gorm:"index" json:"customer_id,omitempty"`
	GuestToken     *string        `gorm:"type:varchar(64);index" json:"guest_token,omitempty"`
	ProductID      uint           `gorm:"not null;index" json:"product_id"`
	Quantity       int            `gorm:"not null;default:1" json:"quantity"`
	ImageURLs      pq.StringArray `gorm:"type:text[];not null" json:"image_urls"`
	ImageFilenames pq.StringArray `gorm:"type:text[];not null" json:"image_filenames"`
	Status         string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	ExpiresAt      time.Time      `gorm:"not null;index" json:"expires_at"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID;references:ID" json:"product,omitempty"`
}

func (CartItem) TableName() string { return "cart_items" }

// BeforeCreate ensures UUID, status and timestamps are set.
func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CartItemStatusActive
	}
	if c.Quantity == 0 {
		c.Quantity = 1
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// IsLive reports whether the item still protects its images from the retention sweep
func (c *CartItem) IsLive(now time.Time) bool {
	switch c.Status {
	case CartItemStatusOrdered:
		return true
	case CartItemStatusActive:
		return now.Before(c.ExpiresAt)
	}
	return false
}

// CartItemFilter represents filter criteria for cart item queries
type CartItemFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	CustomerID    *uint      `json:"customer_id,omitempty"`
	GuestToken    *string    `json:"guest_token,omitempty"`
	ProductID     *uint      `json:"product_id,omitempty"`
	Status        *string    `json:"status,omitempty"`
	ExpiresBefore *time.Time `json:"expires_before,omitempty"`
}
