package tests

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisfaizi/product-image-upload/models"
	"github.com/thisisfaizi/product-image-upload/repository"
	testingutil "github.com/thisisfaizi/product-image-upload/testing"
	"github.com/thisisfaizi/product-image-upload/utils"
)

func TestProductRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) error {
		repo := repository.NewProductRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("ByID", func(t *testing.T) {
			original, err := fixtures.CreateTestProduct(models.ProductTypeVariable)
			require.NoError(t, err)

			product, err := repo.ByID(ctx, original.ID)
			require.NoError(t, err)
			require.NotNil(t, product)
			assert.Equal(t, original.Name, product.Name)
			assert.Equal(t, models.ProductTypeVariable, product.Type)
		})

		t.Run("ByIDNotFound", func(t *testing.T) {
			product, err := repo.ByID(ctx, 999999)
			assert.NoError(t, err)
			assert.Nil(t, product)
		})

		t.Run("ByFilter", func(t *testing.T) {
			_, err := fixtures.CreateTestProduct(models.ProductTypeExternal)
			require.NoError(t, err)

			productType := models.ProductTypeExternal
			products, err := repo.ByFilter(ctx, models.ProductFilter{Type: &productType}, "", 0, 0)
			require.NoError(t, err)
			require.NotEmpty(t, products)
			for _, p := range products {
				assert.Equal(t, models.ProductTypeExternal, p.Type)
			}
		})

		return nil
	})
}

func TestProductImageConfigRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) error {
		repo := repository.NewProductImageConfigRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("ByProductIDMissing", func(t *testing.T) {
			cfg, err := repo.ByProductID(ctx, 424242)
			assert.NoError(t, err)
			assert.Nil(t, cfg)
		})

		t.Run("UpsertInsertsThenReplaces", func(t *testing.T) {
			product, err := fixtures.CreateTestProduct(models.ProductTypeSimple)
			require.NoError(t, err)

			require.NoError(t, repo.Upsert(ctx, &models.ProductImageConfig{
				ProductID:    product.ID,
				Enabled:      true,
				ImageCount:   4,
				AllowedTypes: pq.StringArray{"png"},
				MaxFileSize:  1024 * 1024,
			}))

			require.NoError(t, repo.Upsert(ctx, &models.ProductImageConfig{
				ProductID:            product.ID,
				Enabled:              true,
				ImageCount:           6,
				AllowedTypes:         pq.StringArray{"jpg", "webp"},
				MaxFileSize:          2 * 1024 * 1024,
				ResolutionValidation: true,
				MinWidth:             300,
				MinHeight:            300,
			}))

			cfg, err := repo.ByProductID(ctx, product.ID)
			require.NoError(t, err)
			require.NotNil(t, cfg)
			assert.Equal(t, 6, cfg.ImageCount)
			assert.Equal(t, pq.StringArray{"jpg", "webp"}, cfg.AllowedTypes)
			assert.True(t, cfg.ResolutionValidation)
			assert.Equal(t, 300, cfg.MinWidth)

			count, err := repo.Count(ctx, models.ProductImageConfigFilter{ProductID: &product.ID})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		return nil
	})
}

func TestUploadSettingsRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) error {
		repo := repository.NewUploadSettingsRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		settings, err := repo.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, settings, "migration seeds the settings row")
		assert.Equal(t, 9, settings.DefaultImageCount)
		assert.Equal(t, int64(5242880), settings.DefaultMaxFileSize)

		settings.DefaultImageCount = 3
		settings.DefaultAllowedTypes = pq.StringArray{"png", "gif"}
		require.NoError(t, repo.Save(ctx, settings))

		reloaded, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, reloaded.DefaultImageCount)
		assert.Equal(t, pq.StringArray{"png", "gif"}, reloaded.DefaultAllowedTypes)
		return nil
	})
}

func TestCartItemRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) error {
		repo := repository.NewCartItemRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		product, err := fixtures.CreateTestProduct(models.ProductTypeSimple)
		require.NoError(t, err)

		active, err := fixtures.CreateTestCartItem(product.ID, models.CartItemStatusActive, time.Hour, "prod-1-1-live-0.png", "prod-1-1-live-1.png")
		require.NoError(t, err)
		_, err = fixtures.CreateTestCartItem(product.ID, models.CartItemStatusActive, -time.Hour, "prod-1-1-expired-0.png")
		require.NoError(t, err)
		_, err = fixtures.CreateTestCartItem(product.ID, models.CartItemStatusOrdered, -time.Hour, "prod-1-1-ordered-0.png")
		require.NoError(t, err)
		_, err = fixtures.CreateTestCartItem(product.ID, models.CartItemStatusAbandoned, time.Hour, "prod-1-1-gone-0.png")
		require.NoError(t, err)

		now := utils.UTCNow()

		t.Run("ByUUID", func(t *testing.T) {
			item, err := repo.ByUUID(ctx, active.UUID)
			require.NoError(t, err)
			require.NotNil(t, item)
			assert.Equal(t, active.ID, item.ID)
			assert.Equal(t, pq.StringArray{"prod-1-1-live-0.png", "prod-1-1-live-1.png"}, item.ImageFilenames)
		})

		t.Run("ReferencesFile", func(t *testing.T) {
			for name, want := range map[string]bool{
				"prod-1-1-live-1.png":    true,
				"prod-1-1-ordered-0.png": true,
				"prod-1-1-expired-0.png": false,
				"prod-1-1-gone-0.png":    false,
				"prod-1-1-unknown-0.png": false,
			} {
				got, err := repo.ReferencesFile(ctx, name, now)
				require.NoError(t, err)
				assert.Equal(t, want, got, name)
			}
		})

		t.Run("ReferencedFilenames", func(t *testing.T) {
			names, err := repo.ReferencedFilenames(ctx, now)
			require.NoError(t, err)
			assert.Len(t, names, 3)
			assert.Contains(t, names, "prod-1-1-live-0.png")
			assert.Contains(t, names, "prod-1-1-ordered-0.png")
			assert.NotContains(t, names, "prod-1-1-expired-0.png")
		})

		t.Run("MarkExpiredAbandoned", func(t *testing.T) {
			n, err := repo.MarkExpiredAbandoned(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			status := models.CartItemStatusAbandoned
			count, err := repo.Count(ctx, models.CartItemFilter{Status: &status})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			n, err = repo.MarkExpiredAbandoned(ctx, now)
			require.NoError(t, err)
			assert.Zero(t, n)
		})

		return nil
	})
}

func TestUploadLogRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) error {
		repo := repository.NewUploadLogRepository(testDB.DB)
		ctx := context.Background()

		t.Run("AppendEvictsOldest", func(t *testing.T) {
			for i := range 7 {
				require.NoError(t, repo.Append(ctx, &models.UploadLog{
					SubmitterID:   "guest_0123456789abcdef0123456789abcdef",
					SubmitterType: models.SubmitterTypeGuest,
					IPAddress:     "10.0.0.1",
					ProductID:     uint(i + 1),
					Outcome:       models.UploadOutcomeSuccess,
				}, 5))
			}

			count, err := repo.Count(ctx, models.UploadLogFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(5), count)

			recent, err := repo.Recent(ctx, 10)
			require.NoError(t, err)
			require.Len(t, recent, 5)
			assert.Equal(t, uint(7), recent[0].ProductID)
			assert.Equal(t, uint(3), recent[4].ProductID)
		})

		t.Run("Filter", func(t *testing.T) {
			require.NoError(t, repo.Append(ctx, &models.UploadLog{
				SubmitterID:   "12",
				SubmitterType: models.SubmitterTypeUser,
				IPAddress:     "10.0.0.2",
				ProductID:     99,
				Outcome:       models.UploadOutcomeFailed,
				ErrorDetail:   utils.ToPtr("type mismatch"),
			}, 0))

			outcome := models.UploadOutcomeFailed
			rows, err := repo.ByFilter(ctx, models.UploadLogFilter{Outcome: &outcome}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "type mismatch", *rows[0].ErrorDetail)
		})

		t.Run("Clear", func(t *testing.T) {
			deleted, err := repo.Clear(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(6), deleted)

			exists, err := repo.Exists(ctx, models.UploadLogFilter{})
			require.NoError(t, err)
			assert.False(t, exists)
		})

		return nil
	})
}
