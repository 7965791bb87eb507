package repository

import (
	"context"
	"fmt"

	"github.com/thisisfaizi/product-image-upload/models"
	"gorm.io/gorm"
)

// UploadLogRepositoryImpl implements UploadLogRepository interface
type UploadLogRepositoryImpl struct {
	*BaseRepository[models.UploadLog, models.UploadLogFilter]
}

// NewUploadLogRepository creates a new upload log repository
func NewUploadLogRepository(db *gorm.DB) UploadLogRepository {
	return &UploadLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UploadLog, models.UploadLogFilter](db),
	}
}

// Append inserts the entry and evicts everything older than the newest capacity rows
func (r *UploadLogRepositoryImpl) Append(ctx context.Context, entry *models.UploadLog, capacity int) error {
	if _, inTx := ctx.Value(TxContextKey).(*gorm.DB); inTx {
		return r.appendAndEvict(ctx, entry, capacity)
	}
	return WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		return r.appendAndEvict(txCtx, entry, capacity)
	})
}

func (r *UploadLogRepositoryImpl) appendAndEvict(ctx context.Context, entry *models.UploadLog, capacity int) error {
	db := r.getDB(ctx)
	if err := db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append upload log: %w", err)
	}
	if capacity <= 0 {
		return nil
	}

	keep := db.Model(&models.UploadLog{}).Select("id").Order("id DESC").Limit(capacity)
	if err := db.Where("id NOT IN (?)", keep).Delete(&models.UploadLog{}).Error; err != nil {
		return fmt.Errorf("failed to evict old upload logs: %w", err)
	}
	return nil
}

// Recent returns the newest entries first
func (r *UploadLogRepositoryImpl) Recent(ctx context.Context, limit int) ([]*models.UploadLog, error) {
	return r.ByFilter(ctx, models.UploadLogFilter{}, "id DESC", limit, 0)
}

// Clear removes every entry and returns how many were deleted
func (r *UploadLogRepositoryImpl) Clear(ctx context.Context) (int64, error) {
	res := r.getDB(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.UploadLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear upload logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *UploadLogRepositoryImpl) applyFilter(query *gorm.DB, filter models.UploadLogFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Outcome != nil {
		query = query.Where("outcome = ?", *filter.Outcome)
	}
	if filter.SubmitterID != nil {
		query = query.Where("submitter_id = ?", *filter.SubmitterID)
	}
	if filter.IPAddress != nil {
		query = query.Where("ip_address = ?", *filter.IPAddress)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves upload logs based on filter criteria
func (r *UploadLogRepositoryImpl) ByFilter(ctx context.Context, filter models.UploadLogFilter, orderBy string, limit, offset int) ([]*models.UploadLog, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.UploadLog{}), filter)
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
	var rows []*models.UploadLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list upload logs: %w", err)
	}
	return rows, nil
}

// Count returns number of upload logs matching filter
func (r *UploadLogRepositoryImpl) Count(ctx context.Context, filter models.UploadLogFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.UploadLog{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any upload log matches the filter
func (r *UploadLogRepositoryImpl) Exists(ctx context.Context, filter models.UploadLogFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
