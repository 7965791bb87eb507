package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thisisfaizi/product-image-upload/models"
	"gorm.io/gorm"
)

// CartItemRepositoryImpl implements CartItemRepository interface
type CartItemRepositoryImpl struct {
	*BaseRepository[models.CartItem, models.CartItemFilter]
}

// NewCartItemRepository creates a new cart item repository
func NewCartItemRepository(db *gorm.DB) CartItemRepository {
	return &CartItemRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CartItem, models.CartItemFilter](db),
	}
}

// ByUUID retrieves a cart item by UUID
func (r *CartItemRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	rows, err := r.ByFilter(ctx, models.CartItemFilter{UUID: &id}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// liveScope matches ordered items and active items that have not expired yet
func liveScope(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ? OR (status = ? AND expires_at > ?)",
			models.CartItemStatusOrdered, models.CartItemStatusActive, now)
	}
}

// ReferencesFile reports whether a live cart item lists the stored filename
func (r *CartItemRepositoryImpl) ReferencesFile(ctx context.Context, filename string, now time.Time) (bool, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.CartItem{}).
		Scopes(liveScope(now)).
		Where("? = ANY(image_filenames)", filename).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check cart references for %s: %w", filename, err)
	}
	return count > 0, nil
}

// ReferencedFilenames returns every filename protected by a live cart item
func (r *CartItemRepositoryImpl) ReferencedFilenames(ctx context.Context, now time.Time) (map[string]struct{}, error) {
	var names []string
	err := r.getDB(ctx).Model(&models.CartItem{}).
		Scopes(liveScope(now)).
		Distinct().
		Pluck("unnest(image_filenames)", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list referenced filenames: %w", err)
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out, nil
}

// MarkExpiredAbandoned flips active items past their expiry to abandoned
func (r *CartItemRepositoryImpl) MarkExpiredAbandoned(ctx context.Context, now time.Time) (int64, error) {
	res := r.getDB(ctx).Model(&models.CartItem{}).
		Where("status = ? AND expires_at <= ?", models.CartItemStatusActive, now).
		Updates(map[string]any{"status": models.CartItemStatusAbandoned, "updated_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to abandon expired cart items: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *CartItemRepositoryImpl) applyFilter(query *gorm.DB, filter models.CartItemFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.GuestToken != nil {
		query = query.Where("guest_token = ?", *filter.GuestToken)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at < ?", *filter.ExpiresBefore)
	}
	return query
}

// ByFilter retrieves cart items based on filter criteria
func (r *CartItemRepositoryImpl) ByFilter(ctx context.Context, filter models.CartItemFilter, orderBy string, limit, offset int) ([]*models.CartItem, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.CartItem{}), filter)
	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.CartItem
	if err := query.Find(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	return rows, nil
}

// Count returns number of cart items matching filter
func (r *CartItemRepositoryImpl) Count(ctx context.Context, filter models.CartItemFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.CartItem{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any cart item matches the filter
func (r *CartItemRepositoryImpl) Exists(ctx context.Context, filter models.CartItemFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
