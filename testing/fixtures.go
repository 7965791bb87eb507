// Package testing provides test utilities and database setup for integration tests
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/lib/pq"
	"github.com/thisisfaizi/product-image-upload/models"
	"github.com/thisisfaizi/product-image-upload/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestProduct creates a catalog product of the given type
func (tf *TestFixtures) CreateTestProduct(productType string) (*models.Product, error) {
	sku := fmt.Sprintf("SKU-%08d", rand.Intn(100000000))
	product := &models.Product{
		Name: fmt.Sprintf("Photo Tile %s", sku),
		SKU:  &sku,
		Type: productType,
	}

	if err := tf.DB.DB.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create test product: %w", err)
	}
	return product, nil
}

// CreateTestImageConfig enables custom images on a product
func (tf *TestFixtures) CreateTestImageConfig(productID uint, imageCount int) (*models.ProductImageConfig, error) {
	cfg := &models.ProductImageConfig{
		ProductID:    productID,
		Enabled:      true,
		ImageCount:   imageCount,
		AllowedTypes: pq.StringArray{"jpg", "jpeg", "png"},
		MaxFileSize:  2 * 1024 * 1024,
	}

	if err := tf.DB.DB.Create(cfg).Error; err != nil {
		return nil, fmt.Errorf("failed to create test image config: %w", err)
	}
	return cfg, nil
}

// CreateTestCartItem creates a guest cart item holding the given files
func (tf *TestFixtures) CreateTestCartItem(productID uint, status string, expiresIn time.Duration, filenames ...string) (*models.CartItem, error) {
	urls := make(pq.StringArray, 0, len(filenames))
	for _, f := range filenames {
		urls = append(urls, "/uploads/"+f)
	}
	item := &models.CartItem{
		GuestToken:     utils.ToPtr(fmt.Sprintf("guest_%032x", rand.Int63())),
		ProductID:      productID,
		Quantity:       1,
		ImageURLs:      urls,
		ImageFilenames: pq.StringArray(filenames),
		Status:         status,
		ExpiresAt:      utils.UTCNowAdd(expiresIn),
	}

	if err := tf.DB.DB.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to create test cart item: %w", err)
	}
	return item, nil
}

// CreateTestUploadLogs inserts n upload log entries one second apart, oldest first
func (tf *TestFixtures) CreateTestUploadLogs(productID uint, n int) ([]*models.UploadLog, error) {
	base := utils.UTCNow().Add(-time.Duration(n) * time.Second)
	entries := make([]*models.UploadLog, 0, n)
	for i := range n {
		entry := &models.UploadLog{
			SubmitterID:   fmt.Sprintf("guest_%032d", i),
			SubmitterType: models.SubmitterTypeGuest,
			IPAddress:     "127.0.0.1",
			ProductID:     productID,
			Outcome:       models.UploadOutcomeSuccess,
			Filename:      utils.ToPtr(fmt.Sprintf("prod-%d-%d-tok-%d.png", productID, base.Unix(), i)),
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}
		if err := tf.DB.DB.Create(entry).Error; err != nil {
			return nil, fmt.Errorf("failed to create test upload log %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
