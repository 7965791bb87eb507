// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thisisfaizi/product-image-upload/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ProductRepository defines catalog lookups
type ProductRepository interface {
	Repository[models.Product, models.ProductFilter]
}

// ProductImageConfigRepository defines operations for per-product upload policies
type ProductImageConfigRepository interface {
	Repository[models.ProductImageConfig, models.ProductImageConfigFilter]
	ByProductID(ctx context.Context, productID uint) (*models.ProductImageConfig, error)
	Upsert(ctx context.Context, cfg *models.ProductImageConfig) error
}

// UploadSettingsRepository defines operations for the store-wide upload defaults
type UploadSettingsRepository interface {
	Get(ctx context.Context) (*models.UploadSettings, error)
	Save(ctx context.Context, settings *models.UploadSettings) error
}

// CartItemRepository defines operations for cart items
type CartItemRepository interface {
	Repository[models.CartItem, models.CartItemFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.CartItem, error)
	ReferencesFile(ctx context.Context, filename string, now time.Time) (bool, error)
	ReferencedFilenames(ctx context.Context, now time.Time) (map[string]struct{}, error)
	MarkExpiredAbandoned(ctx context.Context, now time.Time) (int64, error)
}

// UploadLogRepository defines operations for the bounded upload audit log
type UploadLogRepository interface {
	Repository[models.UploadLog, models.UploadLogFilter]
	Append(ctx context.Context, entry *models.UploadLog, capacity int) error
	Recent(ctx context.Context, limit int) ([]*models.UploadLog, error)
	Clear(ctx context.Context) (int64, error)
}
