package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/thisisfaizi/product-image-upload/models"
	"github.com/thisisfaizi/product-image-upload/utils"
	"gorm.io/gorm"
)

// UploadSettingsRepositoryImpl implements UploadSettingsRepository interface
type UploadSettingsRepositoryImpl struct {
	*BaseRepository[models.UploadSettings, struct{}]
}

// NewUploadSettingsRepository creates a new upload settings repository
func NewUploadSettingsRepository(db *gorm.DB) UploadSettingsRepository {
	return &UploadSettingsRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UploadSettings, struct{}](db),
	}
}

// Get returns the settings row, or nil when it has not been seeded
func (r *UploadSettingsRepositoryImpl) Get(ctx context.Context) (*models.UploadSettings, error) {
	db := r.getDB(ctx)
	var row models.UploadSettings
	if err := db.First(&row, models.UploadSettingsID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load upload settings: %w", err)
	}
	return &row, nil
}

// Save writes the settings row, creating it when missing
func (r *UploadSettingsRepositoryImpl) Save(ctx context.Context, settings *models.UploadSettings) error {
	settings.ID = models.UploadSettingsID
	settings.UpdatedAt = utils.UTCNow()
	return r.Update(ctx, settings)
}
