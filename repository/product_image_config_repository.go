package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/thisisfaizi/product-image-upload/models"
	"github.com/thisisfaizi/product-image-upload/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductImageConfigRepositoryImpl implements ProductImageConfigRepository interface
type ProductImageConfigRepositoryImpl struct {
	*BaseRepository[models.ProductImageConfig, models.ProductImageConfigFilter]
}

// NewProductImageConfigRepository creates a new product image config repository
func NewProductImageConfigRepository(db *gorm.DB) ProductImageConfigRepository {
	return &ProductImageConfigRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ProductImageConfig, models.ProductImageConfigFilter](db),
	}
}

// ByProductID returns the upload policy row of a product, or nil when none exists
func (r *ProductImageConfigRepositoryImpl) ByProductID(ctx context.Context, productID uint) (*models.ProductImageConfig, error) {
	db := r.getDB(ctx)
	var row models.ProductImageConfig
	if err := db.Where("product_id = ?", productID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find image config for product %d: %w", productID, err)
	}
	return &row, nil
}

// Upsert inserts the config or replaces the existing row of the same product
func (r *ProductImageConfigRepositoryImpl) Upsert(ctx context.Context, cfg *models.ProductImageConfig) error {
	db := r.getDB(ctx)
	cfg.UpdatedAt = utils.UTCNow()
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"enabled", "image_count", "allowed_types", "max_file_size",
			"resolution_validation", "min_width", "min_height", "max_width", "max_height",
			"updated_at",
		}),
	}).Create(cfg).Error
	if err != nil {
		return fmt.Errorf("failed to upsert image config for product %d: %w", cfg.ProductID, err)
	}
	return nil
}

func (r *ProductImageConfigRepositoryImpl) applyFilter(query *gorm.DB, filter models.ProductImageConfigFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Enabled != nil {
		query = query.Where("enabled = ?", *filter.Enabled)
	}
	return query
}

// ByFilter retrieves configs based on filter criteria
func (r *ProductImageConfigRepositoryImpl) ByFilter(ctx context.Context, filter models.ProductImageConfigFilter, orderBy string, limit, offset int) ([]*models.ProductImageConfig, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.ProductImageConfig{}), filter)
	if orderBy == "" {
		orderBy = "product_id ASC"
	}
	query = query.Order(orderBy)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.ProductImageConfig
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list image configs: %w", err)
	}
	return rows, nil
}

// Count returns number of configs matching filter
func (r *ProductImageConfigRepositoryImpl) Count(ctx context.Context, filter models.ProductImageConfigFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.ProductImageConfig{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any config matches the filter
func (r *ProductImageConfigRepositoryImpl) Exists(ctx context.Context, filter models.ProductImageConfigFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
