package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/thisisfaizi/product-image-upload/utils"
	"gorm.io/gorm"
)

// ProductImageConfig holds the per-product upload policy
type ProductImageConfig struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID    uint           `gorm:"not null;uniqueIndex" json:"product_id"`
	Enabled      bool           `gorm:"not null;default:true" json:"enabled"`
	ImageCount   int            `gorm:"not null;default:9" json:"image_count"`
	AllowedTypes pq.StringArray `gorm:"type:text[];not null" json:"allowed_types"`
	MaxFileSize  int64          `gorm:"type:bigint;not null" json:"max_file_size"`

	ResolutionValidation bool `gorm:"not null;default:false" json:"resolution_validation"`
	MinWidth             int  `gorm:"not null;default:0" json:"min_width"`
	MinHeight            int  `gorm:"not null;default:0" json:"min_height"`
	MaxWidth             int  `gorm:"not null;default:0" json:"max_width"`
	MaxHeight            int  `gorm:"not null;default:0" json:"max_height"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID;references:ID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
}

func (ProductImageConfig) TableName() string { return "product_image_configs" }

func (c *ProductImageConfig) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// ProductImageConfigFilter represents filter criteria for product image config queries
type ProductImageConfigFilter struct {
	ID        *uint `json:"id,omitempty"`
	ProductID *uint `json:"product_id,omitempty"`
	Enabled   *bool `json:"enabled,omitempty"`
}

// UploadSettings is the singleton row of store-wide upload defaults.
// Products without their own value for a field inherit it from here.
type UploadSettings struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	DefaultImageCount   int            `gorm:"not null;default:9" json:"default_image_count"`
	DefaultMaxFileSize  int64          `gorm:"type:bigint;not null" json:"default_max_file_size"`
	DefaultAllowedTypes pq.StringArray `gorm:"type:text[];not null" json:"default_allowed_types"`
	DefaultResolution   bool           `gorm:"not null;default:false" json:"default_resolution"`
	DefaultMinWidth     int            `gorm:"not null;default:0" json:"default_min_width"`
	DefaultMinHeight    int            `gorm:"not null;default:0" json:"default_min_height"`
	DefaultMaxWidth     int            `gorm:"not null;default:0" json:"default_max_width"`
	DefaultMaxHeight    int            `gorm:"not null;default:0" json:"default_max_height"`
	UpdatedAt           time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (UploadSettings) TableName() string { return "upload_settings" }

// UploadSettingsID is the primary key of the single settings row
const UploadSettingsID uint = 1
